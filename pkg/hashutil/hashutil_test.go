package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAlgorithmIsSHA384(t *testing.T) {
	h := Default()
	assert.Equal(t, string(SHA384), h.Name())
	assert.Equal(t, 48, h.Size())
}

func TestSHA256EmptyString(t *testing.T) {
	h, err := New(SHA256)
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", h.Sum([]byte("")))
}

func TestSHA384Deterministic(t *testing.T) {
	h, err := New(SHA384)
	require.NoError(t, err)
	a := h.Sum([]byte("hello"))
	b := h.Sum([]byte("hello"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 96) // 48 bytes hex-encoded
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAlgorithm, alg)

	_, err = ParseAlgorithm("md5")
	assert.Error(t, err)
}

func TestNewUnsupported(t *testing.T) {
	_, err := New("md5")
	assert.Error(t, err)
}
