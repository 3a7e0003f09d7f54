package nonce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAndConsumeAccepts(t *testing.T) {
	l := NewLedger(300 * time.Second)
	err := l.VerifyAndConsume("n1", 1000, 1000)
	require.NoError(t, err)
}

func TestVerifyAndConsumeRejectsReplay(t *testing.T) {
	l := NewLedger(300 * time.Second)
	require.NoError(t, l.VerifyAndConsume("n1", 1000, 1000))
	err := l.VerifyAndConsume("n1", 1000, 1005)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replay")
}

func TestVerifyAndConsumeRejectsOutOfWindow(t *testing.T) {
	l := NewLedger(300 * time.Second)
	err := l.VerifyAndConsume("n1", 1000, 2000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validity window")
}

func TestVerifyAndConsumeWithinWindow(t *testing.T) {
	l := NewLedger(300 * time.Second)
	err := l.VerifyAndConsume("n1", 1000, 1299)
	require.NoError(t, err)
}

func TestSweepRemovesExpired(t *testing.T) {
	l := NewLedger(10 * time.Second)
	require.NoError(t, l.VerifyAndConsume("n1", 1000, 1000))
	assert.Equal(t, 1, l.Size())
	l.sweep(2000)
	assert.Equal(t, 0, l.Size())
}

func TestDefaultWindowAppliedOnZero(t *testing.T) {
	l := NewLedger(0)
	err := l.VerifyAndConsume("n1", 1000, 1000+defaultWindowSeconds()-1)
	require.NoError(t, err)
}

func defaultWindowSeconds() int64 {
	return int64(defaultWindow / time.Second)
}
