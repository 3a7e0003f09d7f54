// Copyright 2025 Certen Protocol
//
// Package attestation wraps the TEE attestation driver behind a small
// capability set: evidence generation bound to caller report data, and
// extension of the TEE's runtime measurement register. The underlying
// driver is not concurrency-safe, so every call is serialized behind a
// single mutex, the same discipline the teacher's service layer uses for
// the network handle it cannot share.
package attestation

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/trustedstack/tapp-core/pkg/apperrors"
)

const (
	// RuntimeMeasurementDomain is the fixed domain string extended
	// measurements are recorded under. Load-bearing for remote verifiers;
	// must not change.
	RuntimeMeasurementDomain = "tapp.0g.com"

	// OpStartApp and OpStopApp are the only recognized extend operations.
	OpStartApp = "start_app"
	OpStopApp  = "stop_app"
)

const evidenceMaxLen = 64

// Driver is the capability set a concrete TEE attestation agent must
// provide. The core treats everything beyond this set as opaque.
type Driver interface {
	Init() error
	TEEType() string
	GetEvidence(reportData []byte) ([]byte, error)
	ExtendRuntimeMeasurement(domain, op string, payload []byte) error
}

// Surface serializes access to a Driver behind a single lock and applies
// the report-data padding rule before every evidence request.
type Surface struct {
	mu     sync.Mutex
	driver Driver
	logger *log.Logger
}

// NewSurface wraps driver. A nil logger falls back to a tagged default
// logger in the teacher's bracketed-prefix style.
func NewSurface(driver Driver, logger *log.Logger) (*Surface, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[Attestation] ", log.LstdFlags)
	}
	if err := driver.Init(); err != nil {
		return nil, apperrors.Wrap(apperrors.Attestation, "attestation.NewSurface", err)
	}
	logger.Printf("initialized TEE driver, type=%s", driver.TEEType())
	return &Surface{driver: driver, logger: logger}, nil
}

// TEEType returns the platform tag reported by the underlying driver.
func (s *Surface) TEEType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver.TEEType()
}

// GetEvidence accepts 0–64 bytes of caller report data. Input shorter than
// 64 bytes is right-padded with zeros; zero-length input is treated as 64
// zero bytes; longer than 64 bytes is a validation failure (the original
// implementation labeled this case with a container-family error; this
// core routes it through Validation per the redesign note).
func (s *Surface) GetEvidence(reportData []byte) ([]byte, error) {
	if len(reportData) > evidenceMaxLen {
		return nil, apperrors.InvalidParameter("attestation.GetEvidence", "report_data", "must be at most 64 bytes")
	}
	padded := make([]byte, evidenceMaxLen)
	copy(padded, reportData)

	s.mu.Lock()
	defer s.mu.Unlock()
	evidence, err := s.driver.GetEvidence(padded)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Attestation, "attestation.GetEvidence", err)
	}
	return evidence, nil
}

// ExtendRuntimeMeasurement extends the RTMR with the JSON-serialized
// measurement record under the fixed domain and the given op.
func (s *Surface) ExtendRuntimeMeasurement(op string, record interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "attestation.ExtendRuntimeMeasurement", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.driver.ExtendRuntimeMeasurement(RuntimeMeasurementDomain, op, payload); err != nil {
		s.logger.Printf("extend_runtime_measurement failed: domain=%s op=%s err=%v", RuntimeMeasurementDomain, op, err)
		return apperrors.Wrap(apperrors.Attestation, "attestation.ExtendRuntimeMeasurement", err)
	}
	s.logger.Printf("extended runtime measurement: domain=%s op=%s", RuntimeMeasurementDomain, op)
	return nil
}
