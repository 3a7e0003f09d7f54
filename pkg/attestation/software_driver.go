package attestation

import (
	"crypto/sha256"
	"sync"
)

// SoftwareDriver is a non-hardware Driver used when the process is not
// running inside a real TEE (local development, CI). Evidence is a
// deterministic digest of the report data rather than hardware-signed
// material, and the measurement register is simulated as a running hash
// chain rather than an SoC-managed register.
type SoftwareDriver struct {
	mu  sync.Mutex
	rtm [32]byte
}

// NewSoftwareDriver returns a SoftwareDriver with a zeroed measurement
// register.
func NewSoftwareDriver() *SoftwareDriver {
	return &SoftwareDriver{}
}

func (d *SoftwareDriver) Init() error { return nil }

func (d *SoftwareDriver) TEEType() string { return "software-simulated" }

func (d *SoftwareDriver) GetEvidence(reportData []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := sha256.New()
	h.Write(d.rtm[:])
	h.Write(reportData)
	return h.Sum(nil), nil
}

func (d *SoftwareDriver) ExtendRuntimeMeasurement(domain, op string, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := sha256.New()
	h.Write(d.rtm[:])
	h.Write([]byte(domain))
	h.Write([]byte(op))
	h.Write(payload)
	copy(d.rtm[:], h.Sum(nil))
	return nil
}
