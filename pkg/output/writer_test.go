package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	assert.NotNil(t, w)
	assert.Equal(t, "job-123", w.jobID)
	assert.Equal(t, "s3", w.provider)
}

func TestJSONLWriter_WriteEndpoint(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	ep := &EndpointRecord{
		Bucket:        "my.aws.bucket",
		URI:           "s3://my.aws.bucket/data/",
		Format:        "path-style",
		State:         "resolved",
		Region:        "us-west-2",
		SigningRegion: "us-west-2",
		EndpointHost:  "s3-us-west-2.amazonaws.com",
		Host:          "s3-us-west-2.amazonaws.com",
	}

	err := w.WriteEndpoint(context.Background(), ep)
	require.NoError(t, err)

	var record Record
	err = json.Unmarshal(buf.Bytes(), &record)
	require.NoError(t, err)

	assert.Equal(t, TypeEndpoint, record.Type)
	assert.Equal(t, "job-123", record.JobID)
	assert.Equal(t, "s3", record.Provider)
	assert.False(t, record.TS.IsZero())

	var got EndpointRecord
	err = json.Unmarshal(record.Data, &got)
	require.NoError(t, err)
	assert.Equal(t, *ep, got)
}

func TestJSONLWriter_WriteCredentials(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-456", "s3")

	cred := &CredentialsRecord{
		Key:      FieldRecord{Name: "AWS_ACCESS_KEY_ID", Set: true, Source: "command line", Masked: "****MPLE"},
		Secret:   FieldRecord{Name: "AWS_SECRET_ACCESS_KEY", Set: true, Source: "environment variable"},
		Token:    FieldRecord{Name: "AWS_SECURITY_TOKEN"},
		Complete: true,
	}

	err := w.WriteCredentials(context.Background(), cred)
	require.NoError(t, err)

	var record Record
	err = json.Unmarshal(buf.Bytes(), &record)
	require.NoError(t, err)
	assert.Equal(t, TypeCredentials, record.Type)

	var got CredentialsRecord
	err = json.Unmarshal(record.Data, &got)
	require.NoError(t, err)
	assert.Equal(t, *cred, got)

	// Unset fields omit source and mask.
	assert.Contains(t, string(record.Data), `"token":{"name":"AWS_SECURITY_TOKEN","set":false}`)
}

func TestJSONLWriter_WriteError(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	errRec := &ErrorRecord{
		Code:    ErrCodeAccessDenied,
		Message: "Access denied to bucket",
		Bucket:  "secret.bucket",
		Hint:    "grant s3:GetBucketLocation",
	}

	err := w.WriteError(context.Background(), errRec)
	require.NoError(t, err)

	var record Record
	err = json.Unmarshal(buf.Bytes(), &record)
	require.NoError(t, err)

	assert.Equal(t, TypeError, record.Type)

	var errData ErrorRecord
	err = json.Unmarshal(record.Data, &errData)
	require.NoError(t, err)

	assert.Equal(t, ErrCodeAccessDenied, errData.Code)
	assert.Equal(t, "Access denied to bucket", errData.Message)
	assert.Equal(t, "secret.bucket", errData.Bucket)
	assert.Equal(t, "grant s3:GetBucketLocation", errData.Hint)
}

func TestJSONLWriter_WriteSummary(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	sum := &SummaryRecord{
		Buckets:       4,
		VirtualHosted: 1,
		Resolved:      2,
		Legacy:        1,
		Duration:      1500 * time.Millisecond,
		DurationHuman: "1.5s",
	}

	err := w.WriteSummary(context.Background(), sum)
	require.NoError(t, err)

	var record Record
	err = json.Unmarshal(buf.Bytes(), &record)
	require.NoError(t, err)
	assert.Equal(t, TypeSummary, record.Type)

	var got SummaryRecord
	err = json.Unmarshal(record.Data, &got)
	require.NoError(t, err)
	assert.Equal(t, *sum, got)
}

func TestJSONLWriter_NewlineTerminated(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	err := w.WriteEndpoint(context.Background(), &EndpointRecord{Bucket: "bucket-one"})
	require.NoError(t, err)

	err = w.WriteEndpoint(context.Background(), &EndpointRecord{Bucket: "bucket-two"})
	require.NoError(t, err)

	// Output should be two lines
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)

	// Each line should be valid JSON
	for _, line := range lines {
		var record Record
		err := json.Unmarshal([]byte(line), &record)
		assert.NoError(t, err)
	}
}

func TestJSONLWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	err := w.Close()
	require.NoError(t, err)

	// Writing after close should fail
	err = w.WriteEndpoint(context.Background(), &EndpointRecord{Bucket: "bucket"})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	const numWriters = 10
	const writesPerWriter = 100

	var wg sync.WaitGroup
	wg.Add(numWriters)

	for i := 0; i < numWriters; i++ {
		go func(writerID int) {
			defer wg.Done()
			for j := 0; j < writesPerWriter; j++ {
				_ = w.WriteEndpoint(context.Background(), &EndpointRecord{
					Bucket: "bucket",
					Region: strings.Repeat("r", writerID+j%7),
				})
			}
		}(i)
	}

	wg.Wait()

	// Verify all lines are complete JSON objects (no interleaving)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, numWriters*writesPerWriter)

	for i, line := range lines {
		var record Record
		err := json.Unmarshal([]byte(line), &record)
		assert.NoError(t, err, "line %d should be valid JSON: %s", i, line)
	}
}

func TestJSONLWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := w.WriteEndpoint(ctx, &EndpointRecord{Bucket: "bucket"})
	assert.ErrorIs(t, err, context.Canceled)

	// Buffer should be empty (nothing written)
	assert.Empty(t, buf.String())
}

func TestJSONLWriter_WriteFailure(t *testing.T) {
	failWriter := &failingWriter{err: errors.New("disk full")}
	w := NewJSONLWriter(failWriter, "job-123", "s3")

	err := w.WriteEndpoint(context.Background(), &EndpointRecord{Bucket: "bucket"})
	require.Error(t, err)

	var writeErr *WriteError
	assert.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "write", writeErr.Op)
}

// failingWriter is an io.Writer that always returns an error.
type failingWriter struct {
	err error
}

func (f *failingWriter) Write(p []byte) (n int, err error) {
	return 0, f.err
}

func TestJSONLWriter_ShortWrite(t *testing.T) {
	shortWriter := &shortWriteWriter{bytesPerWrite: 10}
	w := NewJSONLWriter(shortWriter, "job-123", "s3")

	err := w.WriteEndpoint(context.Background(), &EndpointRecord{
		Bucket:       "my.aws.bucket",
		Format:       "path-style",
		EndpointHost: "s3-us-west-2.amazonaws.com",
	})
	require.NoError(t, err)

	// Verify complete output despite short writes
	lines := strings.Split(strings.TrimSpace(shortWriter.buf.String()), "\n")
	assert.Len(t, lines, 1)

	var record Record
	err = json.Unmarshal([]byte(lines[0]), &record)
	assert.NoError(t, err, "output should be valid JSON despite short writes")
	assert.Equal(t, TypeEndpoint, record.Type)
}

func TestJSONLWriter_ZeroWrite(t *testing.T) {
	zeroWriter := &zeroWriteWriter{}
	w := NewJSONLWriter(zeroWriter, "job-123", "s3")

	err := w.WriteEndpoint(context.Background(), &EndpointRecord{Bucket: "bucket"})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

// shortWriteWriter simulates an io.Writer that performs short writes.
// It writes at most bytesPerWrite bytes per call, returning nil error.
type shortWriteWriter struct {
	buf           bytes.Buffer
	bytesPerWrite int
}

func (sw *shortWriteWriter) Write(p []byte) (n int, err error) {
	toWrite := len(p)
	if toWrite > sw.bytesPerWrite {
		toWrite = sw.bytesPerWrite
	}
	return sw.buf.Write(p[:toWrite])
}

// zeroWriteWriter always returns 0 bytes written with nil error.
type zeroWriteWriter struct{}

func (zw *zeroWriteWriter) Write(p []byte) (n int, err error) {
	return 0, nil
}

func TestWriteError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &WriteError{Op: "marshal", Err: underlying}

	assert.Equal(t, "output: marshal: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestEndpointRecord_OmitEmpty(t *testing.T) {
	// Virtual-hosted buckets carry no region or endpoint host.
	ep := EndpointRecord{
		Bucket: "myawsbucket",
		Format: "virtual-hosted",
		State:  "virtual-hosted",
		Host:   "myawsbucket.s3.amazonaws.com",
	}

	data, err := json.Marshal(ep)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "uri")
	assert.NotContains(t, string(data), `"region"`)
	assert.NotContains(t, string(data), "signing_region")
	assert.NotContains(t, string(data), "endpoint_host")
}

func TestErrorRecord_OmitEmpty(t *testing.T) {
	errRec := ErrorRecord{
		Code:    ErrCodeInternal,
		Message: "Something went wrong",
	}

	data, err := json.Marshal(errRec)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "bucket")
	assert.NotContains(t, string(data), "hint")
	assert.NotContains(t, string(data), "details")
}

func BenchmarkJSONLWriter_WriteEndpoint(b *testing.B) {
	w := NewJSONLWriter(io.Discard, "job-123", "s3")
	ep := &EndpointRecord{
		Bucket:        "my.aws.bucket",
		Format:        "path-style",
		State:         "resolved",
		Region:        "us-west-2",
		SigningRegion: "us-west-2",
		EndpointHost:  "s3-us-west-2.amazonaws.com",
		Host:          "s3-us-west-2.amazonaws.com",
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.WriteEndpoint(ctx, ep)
	}
}
