// Copyright 2025 Certen Protocol
//
// Package task implements the asynchronous deployment task machine:
// monotonic Pending -> Running -> {Completed|Failed} transitions behind a
// reader-writer lock sized for a read-heavy polling workload.
package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is one of the four task lifecycle states.
type Status string

const (
	Pending   Status = "pending"
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
)

// Result carries the terminal payload of a Completed task.
type Result struct {
	AppID    string
	Deployer []byte
}

// Task is an immutable-by-convention snapshot; callers must not mutate a
// Task returned by Get.
type Task struct {
	ID        string
	Status    Status
	Result    *Result
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Machine tracks every task for the lifetime of the process.
type Machine struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewMachine returns an empty task machine.
func NewMachine() *Machine {
	return &Machine{tasks: make(map[string]*Task)}
}

// Create allocates a new task in Pending and returns its snapshot.
func (m *Machine) Create() Task {
	now := time.Now()
	t := &Task{
		ID:        "task-" + uuid.NewString(),
		Status:    Pending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()
	return *t
}

// Get returns a snapshot of the task, and whether it was found.
func (m *Machine) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// MarkRunning transitions a Pending task to Running. Any other current
// state is left untouched — a programmer error, not a panic.
func (m *Machine) MarkRunning(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Status != Pending {
		return
	}
	t.Status = Running
	t.UpdatedAt = time.Now()
}

// MarkCompleted transitions a Running task to Completed with result.
// Terminal states (Completed, Failed) are never re-entered.
func (m *Machine) MarkCompleted(id string, result Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Status != Running {
		return
	}
	t.Status = Completed
	t.Result = &result
	t.UpdatedAt = time.Now()
}

// MarkFailed transitions a task to Failed with the given error message.
func (m *Machine) MarkFailed(id string, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || isTerminal(t.Status) {
		return
	}
	t.Status = Failed
	t.Error = message
	t.UpdatedAt = time.Now()
}

func isTerminal(s Status) bool {
	return s == Completed || s == Failed
}
