package netorigin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTrustedEmptyAddress(t *testing.T) {
	assert.True(t, IsTrusted(""))
}

func TestIsTrustedLoopback(t *testing.T) {
	assert.True(t, IsTrusted("127.0.0.1"))
	assert.True(t, IsTrusted("127.0.0.1:54321"))
	assert.True(t, IsTrusted("::1"))
}

func TestIsTrustedDockerBridgeRange(t *testing.T) {
	assert.True(t, IsTrusted("172.17.0.5"))
	assert.True(t, IsTrusted("172.31.255.254"))
}

func TestIsTrustedRejectsOutOfRange(t *testing.T) {
	assert.False(t, IsTrusted("172.32.0.5"))
	assert.False(t, IsTrusted("172.16.0.5"))
	assert.False(t, IsTrusted("8.8.8.8"))
}

func TestIsTrustedRejectsMalformed(t *testing.T) {
	assert.False(t, IsTrusted("not-an-ip"))
}
