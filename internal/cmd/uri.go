package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/3leaps/s3route/pkg/endpoint"
)

// URI parsing errors
var (
	// ErrInvalidURI indicates the URI could not be parsed.
	ErrInvalidURI = errors.New("invalid URI")

	// ErrUnsupportedProvider indicates the URI scheme is not supported.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMissingBucket indicates the URI is missing a bucket name.
	ErrMissingBucket = errors.New("missing bucket name")
)

// ObjectURI represents a parsed cloud storage URI.
//
// Example URIs:
//   - s3://bucket/key/path.txt
//   - s3://bucket/prefix/
type ObjectURI struct {
	// Provider is the storage provider (e.g., "s3").
	Provider string

	// Bucket is the bucket name.
	Bucket string

	// Key is the object key or prefix.
	// May be empty for bucket root.
	Key string
}

// String returns the URI in canonical form.
func (u *ObjectURI) String() string {
	if u.Key != "" {
		return fmt.Sprintf("%s://%s/%s", u.Provider, u.Bucket, u.Key)
	}
	return fmt.Sprintf("%s://%s/", u.Provider, u.Bucket)
}

// IsPrefix returns true if the URI represents a prefix (ends with /).
func (u *ObjectURI) IsPrefix() bool {
	return strings.HasSuffix(u.Key, "/") || u.Key == ""
}

// ParseURI parses a cloud storage URI into its components.
//
// Supported formats:
//   - s3://bucket
//   - s3://bucket/
//   - s3://bucket/key
//   - s3://bucket/prefix/
//
// Bucket names are kept as written: upper case and other non-conforming
// names are valid input and are routed to the legacy region.
func ParseURI(uri string) (*ObjectURI, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty URI", ErrInvalidURI)
	}

	schemeEnd := strings.Index(uri, "://")
	if schemeEnd == -1 {
		return nil, fmt.Errorf("%w: missing scheme (expected s3://...)", ErrInvalidURI)
	}

	provider := strings.ToLower(uri[:schemeEnd])
	if provider != "s3" {
		return nil, fmt.Errorf("%w: %s (supported: s3)", ErrUnsupportedProvider, provider)
	}

	remainder := uri[schemeEnd+3:]
	if remainder == "" {
		return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
	}

	var bucket, key string
	if slashIdx := strings.Index(remainder, "/"); slashIdx == -1 {
		bucket = remainder
	} else {
		bucket = remainder[:slashIdx]
		key = remainder[slashIdx+1:]
	}

	if bucket == "" {
		return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
	}

	// Reject names that cannot appear in a host or path segment at all.
	if _, err := url.Parse("s3://" + bucket + "/"); err != nil || strings.ContainsAny(bucket, " ?#") {
		return nil, fmt.Errorf("%w: invalid bucket name %q", ErrInvalidURI, bucket)
	}

	return &ObjectURI{
		Provider: provider,
		Bucket:   bucket,
		Key:      key,
	}, nil
}

// parseBucketArg accepts either an s3:// URI or a bare bucket name.
func parseBucketArg(arg string) (*ObjectURI, error) {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "://") {
		return ParseURI(arg)
	}
	if arg == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMissingBucket)
	}
	if strings.Contains(arg, "/") {
		return nil, fmt.Errorf("%w: %q is neither a bucket name nor an s3:// URI", ErrInvalidURI, arg)
	}
	return ParseURI("s3://" + arg)
}

// EndpointForURI returns the host that requests for the bucket in uri
// should be sent to. Pending buckets are completed through lookup.
func EndpointForURI(ctx context.Context, r *endpoint.Resolver, uri string, lookup endpoint.RegionLookup) (string, error) {
	parsed, err := ParseURI(uri)
	if err != nil {
		return "", err
	}

	info, err := r.ResolveAndComplete(ctx, parsed.Bucket, lookup)
	if err != nil {
		return "", err
	}
	return info.Host(), nil
}

// readURILines reads one input per line, skipping blank lines.
func readURILines(r io.Reader) ([]string, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)

	var out []string
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
