package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestKindOfIgnoresKindInMessageText(t *testing.T) {
	base := New(Validation, "op", "bad input")
	wrapped := errors.New("context: " + base.Error())
	assert.Equal(t, Internal, KindOf(wrapped))
	assert.Equal(t, Validation, KindOf(base))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(Internal, "op", nil))
}

func TestInvalidParameterMessage(t *testing.T) {
	err := InvalidParameter("boot.StartApp", "deployer", "must be exactly 32 bytes")
	assert.Equal(t, Validation, KindOf(err))
	assert.Contains(t, err.Error(), "deployer")
	assert.Contains(t, Message(err), "must be exactly 32 bytes")
}

func TestToGRPCCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{New(Validation, "op", "x"), codes.InvalidArgument},
		{New(ServiceUnavailable, "op", "x"), codes.Unavailable},
		{New(Config, "op", "x"), codes.FailedPrecondition},
		{New(PermissionDenied, "op", "x"), codes.PermissionDenied},
		{New(NotFound, "op", "x"), codes.NotFound},
		{New(Internal, "op", "x"), codes.Internal},
		{errors.New("not tagged"), codes.Internal},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ToGRPCCode(c.err))
	}
}

func TestToGRPCCodeAttestationFieldVariants(t *testing.T) {
	teeUnsupported := &Error{Kind: Attestation, Field: "tee_unsupported", Message: "x"}
	assert.Equal(t, codes.FailedPrecondition, ToGRPCCode(teeUnsupported))

	other := &Error{Kind: Attestation, Message: "x"}
	assert.Equal(t, codes.Internal, ToGRPCCode(other))
}

func TestToGRPCCodeKeyBrokerFieldVariants(t *testing.T) {
	assert.Equal(t, codes.Unauthenticated, ToGRPCCode(&Error{Kind: KeyBroker, Field: "auth_failed"}))
	assert.Equal(t, codes.NotFound, ToGRPCCode(&Error{Kind: KeyBroker, Field: "resource_not_found"}))
	assert.Equal(t, codes.Internal, ToGRPCCode(&Error{Kind: KeyBroker}))
}

func TestContainerOperationFailedMessage(t *testing.T) {
	err := ContainerOperationFailed("docker_compose_up", "exit status 1")
	assert.Equal(t, Container, KindOf(err))
	assert.Contains(t, err.Error(), "docker_compose_up")
}

func TestMessageFallsBackToPlainError(t *testing.T) {
	plain := errors.New("unstructured failure")
	assert.Equal(t, "unstructured failure", Message(plain))
}
