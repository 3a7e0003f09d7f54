// Copyright 2025 Certen Protocol
//
// Package keys implements the per-application secp256k1 key store: generate
// once per app_id, cache, sign, verify, and derive Ethereum-style addresses.
// Built on go-ethereum/crypto the way the teacher's ethereum/crypto packages
// already do, rather than reaching for golang.org/x/crypto/secp256k1 or a
// hand-rolled ECDSA wrapper.
package keys

import (
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trustedstack/tapp-core/pkg/apperrors"
)

// KeyPair is the platform's wire shape for a generated key: 32-byte private
// key, 65-byte uncompressed SEC1 public key (0x04 prefix), and the derived
// 20-byte Ethereum-style address.
type KeyPair struct {
	Private    []byte
	Public65   []byte
	EthAddress []byte
}

// Source abstracts where a KeyPair comes from: local generation, or (in
// key-broker mode) a fetch over a remote endpoint.
type Source interface {
	// GetAppKey returns the public material for appID, generating it on
	// first use if the source supports local generation.
	GetAppKey(appID, keyType string) (pub65, ethAddress []byte, sourceTag string, err error)
	// GetPrivateKey returns the private key for appID if the source
	// permits private-key retrieval at all.
	GetPrivateKey(appID string) ([]byte, error)
}

// InMemorySource generates and caches one secp256k1 key pair per app_id.
// This is the default mode described by the key service: no key-broker
// endpoint configured.
type InMemorySource struct {
	mu    sync.Mutex
	pairs map[string]KeyPair
}

// NewInMemorySource returns an empty in-memory key store.
func NewInMemorySource() *InMemorySource {
	return &InMemorySource{pairs: make(map[string]KeyPair)}
}

func deriveKeyPair(priv *ecdsa.PrivateKey) KeyPair {
	pub65 := crypto.FromECDSAPub(&priv.PublicKey)
	ethAddr := crypto.PubkeyToAddress(priv.PublicKey)
	return KeyPair{
		Private:    crypto.FromECDSA(priv),
		Public65:   pub65,
		EthAddress: ethAddr.Bytes(),
	}
}

func (s *InMemorySource) getOrCreate(appID string) (KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kp, ok := s.pairs[appID]; ok {
		return kp, nil
	}
	priv, err := crypto.GenerateKey()
	if err != nil {
		return KeyPair{}, apperrors.Wrap(apperrors.KeyBroker, "keys.GetOrCreate", err)
	}
	kp := deriveKeyPair(priv)
	s.pairs[appID] = kp
	return kp, nil
}

// GetAppKey implements Source. Only "ethereum" is a supported key_type in
// in-memory mode.
func (s *InMemorySource) GetAppKey(appID, keyType string) (pub65, ethAddress []byte, sourceTag string, err error) {
	if keyType != "" && keyType != "ethereum" {
		return nil, nil, "", apperrors.New(apperrors.KeyBroker, "keys.GetAppKey", "unsupported key type: "+keyType)
	}
	kp, err := s.getOrCreate(appID)
	if err != nil {
		return nil, nil, "", err
	}
	return kp.Public65, kp.EthAddress, "in_memory", nil
}

// GetPrivateKey implements Source. In-memory mode always permits this.
func (s *InMemorySource) GetPrivateKey(appID string) ([]byte, error) {
	kp, err := s.getOrCreate(appID)
	if err != nil {
		return nil, err
	}
	return kp.Private, nil
}

// BrokerSource is a stub for key-broker mode: it holds the configured
// endpoint but makes no request to it. GetAppKey always returns a
// ServiceUnavailable error and GetPrivateKey always refuses. Wiring the
// broker's wire protocol is out of scope for the core; this type exists so
// Boot Service selection logic (in-memory vs broker) has a second concrete
// Source to switch on.
type BrokerSource struct {
	Endpoint string
}

// NewBrokerSource returns a key source backed by a remote key-broker
// endpoint. Fetch logic is intentionally unimplemented.
func NewBrokerSource(endpoint string) *BrokerSource {
	return &BrokerSource{Endpoint: endpoint}
}

func (b *BrokerSource) GetAppKey(appID, keyType string) (pub65, ethAddress []byte, sourceTag string, err error) {
	return nil, nil, "", apperrors.New(apperrors.ServiceUnavailable, "keys.GetAppKey", "key-broker endpoint not reachable: "+b.Endpoint)
}

func (b *BrokerSource) GetPrivateKey(appID string) ([]byte, error) {
	return nil, apperrors.New(apperrors.KeyBroker, "keys.GetPrivateKey", "private key retrieval is unavailable in key-broker mode")
}

// Sign produces a 64-byte ECDSA signature over msg using the 32-byte
// private key priv. go-ethereum's Sign returns a 65-byte [R || S || V]
// signature over the Keccak-256 digest of msg; V is trimmed to match the
// platform's 64-byte wire signature.
func Sign(priv, msg []byte) ([]byte, error) {
	key, err := crypto.ToECDSA(priv)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Validation, "keys.Sign", err)
	}
	digest := crypto.Keccak256(msg)
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "keys.Sign", err)
	}
	return sig[:64], nil
}

// Verify checks a 64-byte signature over msg against a 64-byte prefixless
// public key (X||Y, no SEC1 0x04 byte).
func Verify(pub64, msg, sig []byte) bool {
	if len(pub64) != 64 || len(sig) != 64 {
		return false
	}
	digest := crypto.Keccak256(msg)
	pub65 := append([]byte{0x04}, pub64...)
	return crypto.VerifySignature(pub65, digest, sig)
}
