package keys

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySourceGeneratesAndCaches(t *testing.T) {
	s := NewInMemorySource()
	pub1, addr1, tag, err := s.GetAppKey("app1", "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "in_memory", tag)
	assert.Len(t, pub1, 65)
	assert.Equal(t, byte(0x04), pub1[0])
	assert.Len(t, addr1, 20)

	pub2, addr2, _, err := s.GetAppKey("app1", "ethereum")
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2)
	assert.Equal(t, addr1, addr2)
}

func TestInMemorySourceDifferentAppsDifferentKeys(t *testing.T) {
	s := NewInMemorySource()
	pub1, _, _, err := s.GetAppKey("app1", "ethereum")
	require.NoError(t, err)
	pub2, _, _, err := s.GetAppKey("app2", "ethereum")
	require.NoError(t, err)
	assert.NotEqual(t, pub1, pub2)
}

func TestInMemorySourceRejectsUnsupportedKeyType(t *testing.T) {
	s := NewInMemorySource()
	_, _, _, err := s.GetAppKey("app1", "rsa")
	require.Error(t, err)
}

func TestInMemorySourceGetPrivateKeyMatchesPublic(t *testing.T) {
	s := NewInMemorySource()
	pub, _, _, err := s.GetAppKey("app1", "ethereum")
	require.NoError(t, err)
	priv, err := s.GetPrivateKey("app1")
	require.NoError(t, err)
	assert.Len(t, priv, 32)

	key, err := crypto.ToECDSA(priv)
	require.NoError(t, err)
	assert.Equal(t, pub, crypto.FromECDSAPub(&key.PublicKey))
}

func TestBrokerSourceRefusesPrivateKey(t *testing.T) {
	b := NewBrokerSource("https://kbs.example.com")
	_, err := b.GetPrivateKey("app1")
	require.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewInMemorySource()
	_, _, _, err := s.GetAppKey("app1", "ethereum")
	require.NoError(t, err)
	priv, err := s.GetPrivateKey("app1")
	require.NoError(t, err)
	pub65, _, _, err := s.GetAppKey("app1", "ethereum")
	require.NoError(t, err)
	pub64 := pub65[1:]

	msg := []byte("hello world")
	sig, err := Sign(priv, msg)
	require.NoError(t, err)
	assert.Len(t, sig, 64)
	assert.True(t, Verify(pub64, msg, sig))
}

func TestVerifyRejectsAlteredMessage(t *testing.T) {
	s := NewInMemorySource()
	pub65, _, _, err := s.GetAppKey("app1", "ethereum")
	require.NoError(t, err)
	priv, err := s.GetPrivateKey("app1")
	require.NoError(t, err)

	sig, err := Sign(priv, []byte("original"))
	require.NoError(t, err)
	assert.False(t, Verify(pub65[1:], []byte("altered"), sig))
}

func TestEthAddressIsLast20BytesOfKeccakPub(t *testing.T) {
	s := NewInMemorySource()
	pub65, addr, _, err := s.GetAppKey("app1", "ethereum")
	require.NoError(t, err)
	want := crypto.Keccak256(pub65[1:])[12:]
	assert.Equal(t, want, addr)
}
