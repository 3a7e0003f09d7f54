package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeKeyOrderIndependent(t *testing.T) {
	a := []byte(`
services:
  web:
    image: nginx:1.25
    ports:
      - "80:80"
version: "3.9"
`)
	b := []byte(`
version: "3.9"
services:
  web:
    ports:
      - "80:80"
    image: nginx:1.25
`)

	outA, err := Canonicalize(a)
	require.NoError(t, err)
	outB, err := Canonicalize(b)
	require.NoError(t, err)

	assert.Equal(t, string(outA), string(outB))
}

func TestCanonicalizeIsDeterministic(t *testing.T) {
	raw := []byte(`a: 1
b:
  - x
  - y
c:
  z: true
`)
	out1, err := Canonicalize(raw)
	require.NoError(t, err)
	out2, err := Canonicalize(raw)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestCanonicalizeRejectsInvalidYAML(t *testing.T) {
	_, err := Canonicalize([]byte("key: [unterminated"))
	require.Error(t, err)
}

func TestCanonicalizeDiffersOnValueChange(t *testing.T) {
	a, err := Canonicalize([]byte("image: nginx:1.25\n"))
	require.NoError(t, err)
	b, err := Canonicalize([]byte("image: nginx:1.26\n"))
	require.NoError(t, err)
	assert.NotEqual(t, string(a), string(b))
}
