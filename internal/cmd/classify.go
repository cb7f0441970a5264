package cmd

import (
	"context"
	"errors"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/s3route/pkg/credentials"
	"github.com/3leaps/s3route/pkg/output"
	"github.com/3leaps/s3route/pkg/provider"
)

const (
	// exitFailure is the generic failure code, used for defects.
	exitFailure = 1

	exitInvalidConfig = foundry.ExitInvalidArgument
	exitWriteFailure  = foundry.ExitFileWriteError
)

// failure describes how a resolution error is reported.
type failure struct {
	ExitCode int
	Code     string
	Hint     string
}

// classify maps a resolution error to an exit code, a record error code
// and a hint.
func classify(err error) failure {
	var incomplete *credentials.IncompleteCredentialsError
	var invariant *credentials.InternalInvariantError

	switch {
	case errors.As(err, &incomplete):
		return failure{foundry.ExitInvalidArgument, output.ErrCodeIncompleteCredentials, incomplete.Hint}
	case errors.As(err, &invariant):
		return failure{exitFailure, output.ErrCodeInternal, invariant.Hint}
	case errors.Is(err, credentials.ErrNoMetadataFetcher):
		return failure{exitFailure, output.ErrCodeInternal, ""}
	case errors.Is(err, context.Canceled):
		return failure{foundry.ExitSignalInt, output.ErrCodeInternal, ""}
	case errors.Is(err, context.DeadlineExceeded):
		return failure{foundry.ExitExternalServiceUnavailable, output.ErrCodeTimeout, "raise lookup.timeout or metadata.timeout"}
	case provider.IsInvalidCredentials(err):
		return failure{foundry.ExitInvalidArgument, output.ErrCodeInvalidCredentials, "check the access key, secret and security token"}
	case provider.IsAccessDenied(err):
		return failure{foundry.ExitExternalServiceUnavailable, output.ErrCodeAccessDenied, ""}
	case provider.IsThrottled(err):
		return failure{foundry.ExitExternalServiceUnavailable, output.ErrCodeThrottled, "lower lookup.rate_limit"}
	case errors.Is(err, ErrInvalidURI), errors.Is(err, ErrMissingBucket), errors.Is(err, ErrUnsupportedProvider):
		return failure{foundry.ExitInvalidArgument, output.ErrCodeInvalidInput, ""}
	default:
		return failure{foundry.ExitExternalServiceUnavailable, output.ErrCodeUnavailable, ""}
	}
}

// errorRecord builds the JSONL error payload for err.
func errorRecord(bucket, message string, err error) *output.ErrorRecord {
	f := classify(err)
	rec := &output.ErrorRecord{
		Code:    f.Code,
		Message: message + ": " + err.Error(),
		Bucket:  bucket,
		Hint:    f.Hint,
	}

	var incomplete *credentials.IncompleteCredentialsError
	if errors.As(err, &incomplete) {
		rec.Details = map[string]any{"status": incomplete.Status}
	}
	return rec
}
