package s3

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"

	"github.com/3leaps/s3route/pkg/credentials"
	"github.com/3leaps/s3route/pkg/provider"
)

// securityCredentialsPath lists the role attached to the instance; the
// role's credentials document lives beneath it.
const securityCredentialsPath = "iam/security-credentials/"

// MetadataAPI is the subset of the IMDS client used to read credentials.
type MetadataAPI interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// MetadataClient reads instance-profile credentials from the EC2 instance
// metadata service. It implements credentials.MetadataFetcher.
type MetadataClient struct {
	api     MetadataAPI
	timeout time.Duration
}

var _ credentials.MetadataFetcher = (*MetadataClient)(nil)

// NewMetadataClient wraps an IMDS client. A zero timeout leaves the
// caller's context as the only bound.
func NewMetadataClient(api MetadataAPI, timeout time.Duration) *MetadataClient {
	return &MetadataClient{api: api, timeout: timeout}
}

// NewIMDSClient returns an IMDS client. A non-empty endpointURL overrides
// the default link-local address.
func NewIMDSClient(endpointURL string) *imds.Client {
	return imds.New(imds.Options{Endpoint: endpointURL})
}

// FetchInstanceMetadata returns the credential document of the role
// attached to the instance as a flat key/value bag (AccessKeyId,
// SecretAccessKey, Token and friends).
//
// An instance without a role yields an empty bag rather than an error;
// the caller reports which fields are missing.
func (c *MetadataClient) FetchInstanceMetadata(ctx context.Context) (map[string]string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	roles, err := c.get(ctx, securityCredentialsPath)
	if err != nil {
		if isNotFound(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	role := firstLine(roles)
	if role == "" {
		return map[string]string{}, nil
	}

	doc, err := c.get(ctx, securityCredentialsPath+role)
	if err != nil {
		if isNotFound(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	return decodeCredentialDocument(doc)
}

func (c *MetadataClient) get(ctx context.Context, path string) ([]byte, error) {
	out, err := c.api.GetMetadata(ctx, &imds.GetMetadataInput{Path: path})
	if err != nil {
		return nil, wrapMetadataError(path, err)
	}
	defer func() { _ = out.Content.Close() }()

	body, err := io.ReadAll(out.Content)
	if err != nil {
		return nil, wrapMetadataError(path, err)
	}
	return body, nil
}

// decodeCredentialDocument keeps the string-valued members of the JSON
// document. Non-string members (none are expected) are dropped.
func decodeCredentialDocument(doc []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode instance credential document: %w", err)
	}

	bag := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			bag[k] = s
		}
	}
	return bag, nil
}

func firstLine(b []byte) string {
	sc := bufio.NewScanner(strings.NewReader(string(b)))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}

func isNotFound(err error) bool {
	return errors.Is(err, provider.ErrNotFound)
}

func wrapMetadataError(path string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       "GetMetadata",
		Provider: provider.ProviderIMDS,
		Path:     path,
		Err:      err,
	}

	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			wrapped.Err = provider.ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			wrapped.Err = provider.ErrAccessDenied
		case http.StatusTooManyRequests:
			wrapped.Err = provider.ErrThrottled
		}
		return wrapped
	}

	if errors.Is(err, context.DeadlineExceeded) {
		wrapped.Err = fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err)
	}
	return wrapped
}
