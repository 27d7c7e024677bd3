package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"domain error", Errorf(ECREDITS, "credit.consume", "no credits"), ECREDITS},
		{"wrapped domain error", fmt.Errorf("outer: %w", Invalid("op", "bad")), EINVALID},
		{"plain error", errors.New("boom"), EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	t.Run("invariant violations keep their message", func(t *testing.T) {
		err := InsufficientCredits("credit.consume", CreditBasic)
		assert.Contains(t, ErrorMessage(err), "No basic credits remaining")
	})

	t.Run("internal errors are masked", func(t *testing.T) {
		err := Internal(errors.New("pq: connection refused"), "op", "query failed")
		msg := ErrorMessage(err)
		assert.NotContains(t, msg, "pq:")
		assert.Contains(t, msg, "internal error")
	})

	t.Run("plain errors are masked", func(t *testing.T) {
		assert.NotContains(t, ErrorMessage(errors.New("secret detail")), "secret")
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"store unavailable", StoreUnavailable(errors.New("conn refused"), "op"), true},
		{"ai down", Errorf(EAIDOWN, "op", "timeout"), true},
		{"insufficient credits", InsufficientCredits("op", CreditBasic), false},
		{"already redeemed", Errorf(EREDEEMED, "op", "redeemed"), false},
		{"self referral", Errorf(ESELFREFERRAL, "op", "own code"), false},
		{"code not found", Errorf(ECODENOTFOUND, "op", "missing"), false},
		{"ai empty", Errorf(EAIEMPTY, "op", "empty"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := Wrap(inner, EUNAVAILABLE, "op", "store down")
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, "op: store down", err.Error())
}
