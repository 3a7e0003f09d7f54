// Copyright 2025 Certen Protocol
//
// Package boot implements the Boot Service: the orchestrator that ties the
// measurement pipeline, deployment driver, attestation surface, task
// machine, key service, and nonce ledger into the platform's public
// contract. No exception escapes a background deployment worker — every
// failure inside it is caught and converted into a Task{Failed(message)}.
package boot

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trustedstack/tapp-core/pkg/apperrors"
	"github.com/trustedstack/tapp-core/pkg/attestation"
	"github.com/trustedstack/tapp-core/pkg/deploy"
	"github.com/trustedstack/tapp-core/pkg/hashutil"
	"github.com/trustedstack/tapp-core/pkg/keys"
	"github.com/trustedstack/tapp-core/pkg/measurement"
	"github.com/trustedstack/tapp-core/pkg/metrics"
	"github.com/trustedstack/tapp-core/pkg/mount"
	"github.com/trustedstack/tapp-core/pkg/netorigin"
	"github.com/trustedstack/tapp-core/pkg/nonce"
	"github.com/trustedstack/tapp-core/pkg/task"
)

var appIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// MountFile is the boot-level request shape for one named byte blob.
type MountFile struct {
	SourcePath string
	Content    []byte
	Mode       string
}

// StartAppRequest is the public contract for StartApp.
type StartAppRequest struct {
	ComposeContent string
	AppID          string
	MountFiles     []MountFile
	Deployer       []byte
}

// GetAppSecretKeyRequest is the privileged key-retrieval request.
type GetAppSecretKeyRequest struct {
	AppID       string
	Nonce       string
	Timestamp   int64
	Signature   []byte
	RemoteAddr  string
}

type appState struct {
	measurement measurement.AppMeasurement
	composeText string
	mountAudit  string
}

// Service orchestrates the platform. Each shared map carries its own lock;
// no two are ever held across a blocking call, and cross-map consistency
// on insert is obtained by a fixed order: measurement map, then source
// material maps, then the attestation extend call.
type Service struct {
	hasher     hashutil.Hasher
	tasks      *task.Machine
	deployer   *deploy.Driver
	surface    *attestation.Surface
	nonces     *nonce.Ledger
	keySource  keys.Source
	logger     *log.Logger

	measMu sync.RWMutex
	meas   map[string]measurement.AppMeasurement

	stateMu sync.RWMutex
	state   map[string]appState
}

// NewService wires the collaborators into a Boot Service.
func NewService(hasher hashutil.Hasher, tasks *task.Machine, deployer *deploy.Driver, surface *attestation.Surface, nonces *nonce.Ledger, keySource keys.Source, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[Boot] ", log.LstdFlags)
	}
	return &Service{
		hasher:    hasher,
		tasks:     tasks,
		deployer:  deployer,
		surface:   surface,
		nonces:    nonces,
		keySource: keySource,
		logger:    logger,
		meas:      make(map[string]measurement.AppMeasurement),
		state:     make(map[string]appState),
	}
}

func validateAppID(appID string) error {
	if !appIDPattern.MatchString(appID) {
		return apperrors.InvalidParameter("boot.validateAppID", "app_id", "must be 1-64 chars, alphanumeric plus - and _")
	}
	return nil
}

// StartApp validates req, fails fast on a duplicate app_id, allocates a
// task, and returns its id immediately. The deployment itself runs in a
// background goroutine owned entirely by this call.
func (s *Service) StartApp(req StartAppRequest) (taskID string, err error) {
	if strings.TrimSpace(req.ComposeContent) == "" {
		return "", apperrors.InvalidParameter("boot.StartApp", "compose_content", "must not be empty")
	}
	if err := validateAppID(req.AppID); err != nil {
		return "", err
	}
	if len(req.Deployer) != 32 {
		return "", apperrors.InvalidParameter("boot.StartApp", "deployer", "must be exactly 32 bytes")
	}

	s.measMu.RLock()
	_, exists := s.meas[req.AppID]
	s.measMu.RUnlock()
	if exists {
		return "", apperrors.New(apperrors.Validation, "boot.StartApp", "app_id already has a measurement")
	}

	t := s.tasks.Create()
	metrics.TaskTransitionsTotal.WithLabelValues(string(task.Pending)).Inc()

	go s.runDeployment(t.ID, req)
	return t.ID, nil
}

func (s *Service) runDeployment(taskID string, req StartAppRequest) {
	start := time.Now()
	s.tasks.MarkRunning(taskID)
	metrics.TaskTransitionsTotal.WithLabelValues(string(task.Running)).Inc()

	mountFiles := make([]mount.File, len(req.MountFiles))
	deployFiles := make([]deploy.MountFile, len(req.MountFiles))
	for i, mf := range req.MountFiles {
		mountFiles[i] = mount.File{SourcePath: mf.SourcePath, Content: mf.Content}
		deployFiles[i] = deploy.MountFile{SourcePath: mf.SourcePath, Content: mf.Content, Mode: mf.Mode}
	}

	m, err := measurement.Compute(s.hasher, req.AppID, req.ComposeContent, mountFiles, req.Deployer)
	if err != nil {
		s.fail(taskID, start, err)
		return
	}
	_, audit := mount.Digest(s.hasher, mountFiles)

	if err := s.deployer.Write(req.AppID, req.ComposeContent, deployFiles); err != nil {
		s.fail(taskID, start, err)
		return
	}
	if err := s.deployer.Up(context.Background(), req.AppID); err != nil {
		s.fail(taskID, start, err)
		return
	}

	s.measMu.Lock()
	s.meas[req.AppID] = m
	s.measMu.Unlock()

	s.stateMu.Lock()
	s.state[req.AppID] = appState{measurement: m, composeText: req.ComposeContent, mountAudit: audit}
	s.stateMu.Unlock()

	if err := s.surface.ExtendRuntimeMeasurement(attestation.OpStartApp, m); err != nil {
		s.logger.Printf("extend_runtime_measurement failed for app_id=%s: %v", req.AppID, err)
		s.fail(taskID, start, err)
		return
	}

	s.tasks.MarkCompleted(taskID, task.Result{AppID: req.AppID, Deployer: req.Deployer})
	metrics.TaskTransitionsTotal.WithLabelValues(string(task.Completed)).Inc()
	metrics.DeployOutcomesTotal.WithLabelValues("completed").Inc()
	metrics.DeployDuration.Observe(time.Since(start).Seconds())
}

func (s *Service) fail(taskID string, start time.Time, err error) {
	s.tasks.MarkFailed(taskID, apperrors.Message(err))
	metrics.TaskTransitionsTotal.WithLabelValues(string(task.Failed)).Inc()
	metrics.DeployOutcomesTotal.WithLabelValues("failed").Inc()
	metrics.DeployDuration.Observe(time.Since(start).Seconds())
}

// StopApp invokes the deployment driver's stop path without discarding any
// in-memory measurement or key material.
func (s *Service) StopApp(ctx context.Context, appID string) error {
	return s.deployer.Stop(ctx, appID)
}

// GetEvidence passes through to the attestation surface.
func (s *Service) GetEvidence(reportData []byte) (evidence []byte, teeType string, timestamp int64, err error) {
	evidence, err = s.surface.GetEvidence(reportData)
	if err != nil {
		return nil, "", 0, err
	}
	return evidence, s.surface.TEEType(), time.Now().Unix(), nil
}

// GetTaskStatus returns the current snapshot for taskID.
func (s *Service) GetTaskStatus(taskID string) (task.Task, bool) {
	return s.tasks.Get(taskID)
}

// ListAppMeasurements returns a snapshot of all measurements, optionally
// filtered case-insensitively by a substring of deployer_hex (a leading
// "0x" in the filter is accepted and stripped), sorted by timestamp
// descending.
func (s *Service) ListAppMeasurements(deployerFilter string) []measurement.AppMeasurement {
	filter := strings.ToLower(strings.TrimPrefix(strings.ToLower(deployerFilter), "0x"))

	s.measMu.RLock()
	out := make([]measurement.AppMeasurement, 0, len(s.meas))
	for _, m := range s.meas {
		if filter == "" || strings.Contains(strings.ToLower(m.DeployerHex), filter) {
			out = append(out, m)
		}
	}
	s.measMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TimestampSec > out[j].TimestampSec })
	return out
}

// GetAppInfo returns the stored raw compose text and audit-joined
// mount-files string for appID.
func (s *Service) GetAppInfo(appID string) (composeContent, volumesContent string, err error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	st, ok := s.state[appID]
	if !ok {
		return "", "", apperrors.InvalidParameter("boot.GetAppInfo", "app_id", "unknown")
	}
	return st.composeText, st.mountAudit, nil
}

// GetAppKey is the non-privileged key lookup: only "ethereum" is supported
// in in-memory mode.
func (s *Service) GetAppKey(appID, keyType string) (pub65, ethAddress []byte, sourceTag string, err error) {
	return s.keySource.GetAppKey(appID, keyType)
}

// GetAppSecretKey is the privileged path: a triple gate evaluated in
// order, any failure short-circuiting with a distinct audit event.
func (s *Service) GetAppSecretKey(req GetAppSecretKeyRequest) (private, public []byte, ethAddress []byte, err error) {
	if !netorigin.IsTrusted(req.RemoteAddr) {
		metrics.PrivilegedKeyGateTotal.WithLabelValues("network_origin", "denied").Inc()
		s.logger.Printf("privileged key gate: network origin denied remote=%s app_id=%s", req.RemoteAddr, req.AppID)
		return nil, nil, nil, apperrors.New(apperrors.PermissionDenied, "boot.GetAppSecretKey", "network origin")
	}
	metrics.PrivilegedKeyGateTotal.WithLabelValues("network_origin", "allowed").Inc()

	if err := s.nonces.VerifyAndConsume(req.Nonce, req.Timestamp, time.Now().Unix()); err != nil {
		metrics.PrivilegedKeyGateTotal.WithLabelValues("nonce", "denied").Inc()
		metrics.NonceRejectionsTotal.WithLabelValues(apperrors.Message(err)).Inc()
		s.logger.Printf("privileged key gate: nonce rejected app_id=%s reason=%v", req.AppID, err)
		return nil, nil, nil, apperrors.New(apperrors.PermissionDenied, "boot.GetAppSecretKey", apperrors.Message(err))
	}
	metrics.PrivilegedKeyGateTotal.WithLabelValues("nonce", "allowed").Inc()

	s.measMu.RLock()
	m, ok := s.meas[req.AppID]
	s.measMu.RUnlock()
	if !ok {
		metrics.PrivilegedKeyGateTotal.WithLabelValues("signature", "not_found").Inc()
		return nil, nil, nil, apperrors.New(apperrors.NotFound, "boot.GetAppSecretKey", "unknown app_id")
	}

	deployerPubKey, err := hex.DecodeString(m.DeployerHex)
	if err != nil || len(deployerPubKey) != ed25519.PublicKeySize {
		metrics.PrivilegedKeyGateTotal.WithLabelValues("signature", "denied").Inc()
		return nil, nil, nil, apperrors.New(apperrors.PermissionDenied, "boot.GetAppSecretKey", "invalid signature")
	}

	msg := reconstructSignedMessage(req.AppID, req.Nonce, req.Timestamp)
	if !ed25519.Verify(ed25519.PublicKey(deployerPubKey), msg, req.Signature) {
		metrics.PrivilegedKeyGateTotal.WithLabelValues("signature", "denied").Inc()
		s.logger.Printf("privileged key gate: signature rejected app_id=%s", req.AppID)
		return nil, nil, nil, apperrors.New(apperrors.PermissionDenied, "boot.GetAppSecretKey", "invalid signature")
	}
	metrics.PrivilegedKeyGateTotal.WithLabelValues("signature", "allowed").Inc()

	priv, err := s.keySource.GetPrivateKey(req.AppID)
	if err != nil {
		return nil, nil, nil, err
	}
	pub65, ethAddr, _, err := s.keySource.GetAppKey(req.AppID, "ethereum")
	if err != nil {
		return nil, nil, nil, err
	}
	s.logger.Printf("privileged key gate: granted app_id=%s", req.AppID)
	return priv, pub65, ethAddr, nil
}

func reconstructSignedMessage(appID, nonceStr string, ts int64) []byte {
	tsBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(tsBytes, uint64(ts))
	msg := make([]byte, 0, len(appID)+len(nonceStr)+8)
	msg = append(msg, []byte(appID)...)
	msg = append(msg, []byte(nonceStr)...)
	msg = append(msg, tsBytes...)
	return msg
}
