package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProviderError
		expected string
	}{
		{
			name: "with bucket",
			err: &ProviderError{
				Op:       "GetBucketLocation",
				Provider: ProviderS3,
				Bucket:   "my.bucket",
				Err:      ErrAccessDenied,
			},
			expected: "s3 GetBucketLocation: my.bucket: access denied",
		},
		{
			name: "with path",
			err: &ProviderError{
				Op:       "GetMetadata",
				Provider: ProviderIMDS,
				Path:     "iam/security-credentials/",
				Err:      ErrNotFound,
			},
			expected: "imds GetMetadata: iam/security-credentials/: not found",
		},
		{
			name: "bare",
			err: &ProviderError{
				Op:       "NewClient",
				Provider: ProviderS3,
				Err:      errors.New("failed to load config"),
			},
			expected: "s3 NewClient: failed to load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	err := &ProviderError{Op: "GetBucketLocation", Provider: ProviderS3, Bucket: "b", Err: ErrThrottled}

	assert.True(t, errors.Is(err, ErrThrottled))
	assert.False(t, errors.Is(err, ErrAccessDenied))
	assert.Equal(t, ErrThrottled, err.Unwrap())
}

func TestIsHelpers(t *testing.T) {
	wrap := func(e error) error { return &ProviderError{Err: e} }

	assert.True(t, IsNotFound(wrap(ErrNotFound)))
	assert.True(t, IsAccessDenied(wrap(ErrAccessDenied)))
	assert.True(t, IsBucketNotFound(wrap(ErrBucketNotFound)))
	assert.True(t, IsInvalidCredentials(wrap(ErrInvalidCredentials)))
	assert.True(t, IsProviderUnavailable(wrap(ErrProviderUnavailable)))
	assert.True(t, IsThrottled(wrap(ErrThrottled)))

	assert.False(t, IsThrottled(wrap(ErrProviderUnavailable)))
	assert.False(t, IsNotFound(errors.New("some error")))
}

func TestIsPermissionDenied(t *testing.T) {
	assert.True(t, IsPermissionDenied(ErrAccessDenied))
	assert.True(t, IsPermissionDenied(fmt.Errorf("wrapped: %w", ErrBucketNotFound)))
	assert.True(t, IsPermissionDenied(&ProviderError{Err: ErrNotFound}))
	assert.False(t, IsPermissionDenied(ErrThrottled))
	assert.False(t, IsPermissionDenied(ErrInvalidCredentials))
	assert.False(t, IsPermissionDenied(errors.New("connection reset")))
}

func TestProviderType_String(t *testing.T) {
	assert.Equal(t, "s3", ProviderS3.String())
	assert.Equal(t, "imds", ProviderIMDS.String())
}
