package task

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIDFormat(t *testing.T) {
	m := NewMachine()
	tk := m.Create()
	assert.True(t, strings.HasPrefix(tk.ID, "task-"))
	assert.Equal(t, Pending, tk.Status)
}

func TestMonotonicTransitions(t *testing.T) {
	m := NewMachine()
	tk := m.Create()
	m.MarkRunning(tk.ID)
	got, ok := m.Get(tk.ID)
	require.True(t, ok)
	assert.Equal(t, Running, got.Status)

	m.MarkCompleted(tk.ID, Result{AppID: "a1", Deployer: []byte("d")})
	got, ok = m.Get(tk.ID)
	require.True(t, ok)
	assert.Equal(t, Completed, got.Status)
	assert.Equal(t, "a1", got.Result.AppID)
}

func TestFailedDoesNotReenterRunning(t *testing.T) {
	m := NewMachine()
	tk := m.Create()
	m.MarkRunning(tk.ID)
	m.MarkFailed(tk.ID, "boom")

	m.MarkRunning(tk.ID) // must be a no-op on a terminal state
	got, ok := m.Get(tk.ID)
	require.True(t, ok)
	assert.Equal(t, Failed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestCompletedNeverReenters(t *testing.T) {
	m := NewMachine()
	tk := m.Create()
	m.MarkRunning(tk.ID)
	m.MarkCompleted(tk.ID, Result{AppID: "a1"})
	m.MarkFailed(tk.ID, "too late")

	got, ok := m.Get(tk.ID)
	require.True(t, ok)
	assert.Equal(t, Completed, got.Status)
}

func TestGetUnknownID(t *testing.T) {
	m := NewMachine()
	_, ok := m.Get("task-does-not-exist")
	assert.False(t, ok)
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	m := NewMachine()
	tk := m.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Get(tk.ID)
		}()
	}
	m.MarkRunning(tk.ID)
	m.MarkCompleted(tk.ID, Result{AppID: "a1"})
	wg.Wait()

	got, ok := m.Get(tk.ID)
	require.True(t, ok)
	assert.Equal(t, Completed, got.Status)
}
