// Copyright 2025 Certen Protocol
//
// Package measurement composes the manifest normalizer and mount-file
// digest into the platform's four-field measurement record.
package measurement

import (
	"encoding/hex"

	"github.com/trustedstack/tapp-core/pkg/apperrors"
	"github.com/trustedstack/tapp-core/pkg/hashutil"
	"github.com/trustedstack/tapp-core/pkg/manifest"
	"github.com/trustedstack/tapp-core/pkg/mount"
)

// AppMeasurement is the immutable record produced for a successful deploy.
type AppMeasurement struct {
	AppID         string `json:"app_id"`
	ComposeHash   string `json:"compose_hash"`
	VolumesHash   string `json:"volumes_hash"`
	DeployerHex   string `json:"deployer_hex"`
	TimestampSec  int64  `json:"timestamp_sec"`
	HashAlgorithm string `json:"hash_algorithm"`
}

// Now returns the current Unix time in seconds. A package-level var so
// tests can substitute a fixed clock without touching call sites.
var Now = func() int64 { return timeNowUnix() }

// Compute builds an AppMeasurement for appID from composeContent and
// mountFiles, hashing with h and stamping deployer/timestamp. The compose
// content is canonicalized before hashing; the raw text is never hashed
// directly, so any whitespace- or key-order-only edit hashes identically.
func Compute(h hashutil.Hasher, appID, composeContent string, mountFiles []mount.File, deployer []byte) (AppMeasurement, error) {
	if len(deployer) != 32 {
		return AppMeasurement{}, apperrors.InvalidParameter("measurement.Compute", "deployer", "must be exactly 32 bytes")
	}

	canonical, err := manifest.Canonicalize([]byte(composeContent))
	if err != nil {
		return AppMeasurement{}, err
	}
	composeHash := h.Sum(canonical)
	volumesHash, _ := mount.Digest(h, mountFiles)

	return AppMeasurement{
		AppID:         appID,
		ComposeHash:   composeHash,
		VolumesHash:   volumesHash,
		DeployerHex:   hex.EncodeToString(deployer),
		TimestampSec:  Now(),
		HashAlgorithm: h.Name(),
	}, nil
}
