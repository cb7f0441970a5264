// Package output provides JSONL output for resolution results.
//
// Output is structured as typed record envelopes containing credential
// reports, bucket endpoints, errors and summaries. Each line is a
// self-contained JSON object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: s3route.<type>.v<version>
const (
	// TypeCredentials identifies resolved credential reports.
	TypeCredentials = "s3route.credentials.v1"

	// TypeEndpoint identifies bucket calling information records.
	TypeEndpoint = "s3route.endpoint.v1"

	// TypeError identifies error records.
	TypeError = "s3route.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "s3route.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "s3route.endpoint.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this run.
	JobID string `json:"job_id"`

	// Provider identifies the storage provider (e.g., "s3").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// CredentialsRecord is the data payload for a resolved credential.
//
// Secret values never appear in it. The access key is reported masked.
type CredentialsRecord struct {
	Key    FieldRecord `json:"key"`
	Secret FieldRecord `json:"secret"`
	Token  FieldRecord `json:"token"`

	// Complete reports whether the credential can sign requests.
	Complete bool `json:"complete"`

	// InstanceProfile reports whether the values came from instance metadata.
	InstanceProfile bool `json:"instance_profile"`
}

// FieldRecord describes one credential field.
type FieldRecord struct {
	// Name is the environment variable the field corresponds to.
	Name string `json:"name"`

	// Set reports whether the field has a value.
	Set bool `json:"set"`

	// Source is the human-readable origin of the value.
	Source string `json:"source,omitempty"`

	// Masked is a masked rendering of the value. Only the access key
	// carries one.
	Masked string `json:"masked,omitempty"`
}

// EndpointRecord is the data payload for bucket calling information.
type EndpointRecord struct {
	// Bucket is the bucket name.
	Bucket string `json:"bucket"`

	// URI is the input URI, when the bucket came from one.
	URI string `json:"uri,omitempty"`

	// Format is "virtual-hosted" or "path-style".
	Format string `json:"format"`

	// State is the resolution state of the bucket.
	State string `json:"state"`

	// Region is the bucket region, for path-style buckets.
	Region string `json:"region,omitempty"`

	// SigningRegion is the region requests are signed for.
	SigningRegion string `json:"signing_region,omitempty"`

	// EndpointHost is the host serving a path-style bucket.
	EndpointHost string `json:"endpoint_host,omitempty"`

	// Host is the host a request for the bucket is sent to.
	Host string `json:"host"`
}

// ErrorRecord is the data payload for errors.
//
// Errors are emitted as records rather than failing the entire run,
// allowing partial results when some buckets fail.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Bucket is the bucket related to this error, if applicable.
	Bucket string `json:"bucket,omitempty"`

	// Hint suggests a fix, if one is known.
	Hint string `json:"hint,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeAccessDenied indicates permission failure.
	ErrCodeAccessDenied = "ACCESS_DENIED"

	// ErrCodeIncompleteCredentials indicates a credential field is missing.
	ErrCodeIncompleteCredentials = "INCOMPLETE_CREDENTIALS"

	// ErrCodeInvalidCredentials indicates authentication failed.
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// ErrCodeInvalidInput indicates a malformed bucket or URI.
	ErrCodeInvalidInput = "INVALID_INPUT"

	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeThrottled indicates rate limiting.
	ErrCodeThrottled = "THROTTLED"

	// ErrCodeUnavailable indicates the remote service could not be reached.
	ErrCodeUnavailable = "UNAVAILABLE"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// SummaryRecord is the data payload for final summaries.
//
// A summary record is emitted at the end of a multi-bucket run with
// aggregate counts.
type SummaryRecord struct {
	// Buckets is the number of buckets processed.
	Buckets int64 `json:"buckets"`

	// VirtualHosted is the number of virtual-hosted buckets.
	VirtualHosted int64 `json:"virtual_hosted"`

	// Resolved is the number of buckets whose region was looked up.
	Resolved int64 `json:"resolved"`

	// Legacy is the number of buckets pinned to the legacy region.
	Legacy int64 `json:"legacy"`

	// Errors is the count of errors encountered.
	Errors int64 `json:"errors"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
