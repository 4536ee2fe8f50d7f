package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategory(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
	}{
		{"config code", ErrCodeConfigInvalid, CategoryConfig},
		{"store code", ErrCodeStoreIO, CategoryStore},
		{"provider code", ErrCodeUpstream, CategoryProvider},
		{"validation code", ErrCodeInvalidArgument, CategoryValidation},
		{"internal code", ErrCodeInternal, CategoryInternal},
		{"unknown code", "ERR", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(ErrCodeInvalidArgument, "weight out of range", nil)
	assert.Equal(t, "[ERR_401_INVALID_ARGUMENT] weight out of range", err.Error())
}

func TestError_Is_MatchesByCode(t *testing.T) {
	a := New(ErrCodeInvalidArgument, "first", nil)
	b := New(ErrCodeInvalidArgument, "second", nil)
	c := New(ErrCodeUpstream, "other", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Upstream(cause)

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeUpstream, err.Code)
	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeUpstream, nil))
}

func TestGetCode_WalksChain(t *testing.T) {
	inner := InvalidArgument("k must be >= 0, got %d", -1)
	outer := fmt.Errorf("fuse: %w", inner)

	assert.Equal(t, ErrCodeInvalidArgument, GetCode(outer))
	assert.Equal(t, CategoryValidation, GetCategory(outer))
	assert.Equal(t, "", GetCode(stderrors.New("plain")))
}

func TestIsInvalidArgument(t *testing.T) {
	assert.True(t, IsInvalidArgument(InvalidArgument("bad")))
	assert.True(t, IsInvalidArgument(ZeroNorm("zero vector")))
	assert.False(t, IsInvalidArgument(Upstream(stderrors.New("down"))))
	assert.False(t, IsInvalidArgument(nil))
}

func TestWithDetail(t *testing.T) {
	err := InvalidArgument("lambda out of range").
		WithDetail("lambda", "1.5").
		WithDetail("range", "[0,1]")

	assert.Equal(t, "1.5", err.Details["lambda"])
	assert.Equal(t, "[0,1]", err.Details["range"])
}
