package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"

	"github.com/3leaps/s3route/pkg/credentials"
	"github.com/3leaps/s3route/pkg/endpoint"
	"github.com/3leaps/s3route/pkg/provider"
)

// BucketLocationAPI is the subset of the S3 client used for region lookups.
type BucketLocationAPI interface {
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
}

// RegionLooker answers bucket location queries over S3.
//
// Its Lookup method satisfies endpoint.RegionLookup.
type RegionLooker struct {
	api     BucketLocationAPI
	timeout time.Duration
	limiter *rate.Limiter
}

// LookerOption configures a RegionLooker.
type LookerOption func(*RegionLooker)

// WithLookupTimeout bounds each GetBucketLocation call. Zero disables the bound.
func WithLookupTimeout(d time.Duration) LookerOption {
	return func(l *RegionLooker) { l.timeout = d }
}

// WithRateLimit caps lookups per second. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) LookerOption {
	return func(l *RegionLooker) {
		if perSecond > 0 {
			l.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewRegionLooker wraps an existing client.
func NewRegionLooker(api BucketLocationAPI, opts ...LookerOption) *RegionLooker {
	l := &RegionLooker{api: api}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewRegionLookerForCredential builds a RegionLooker over a client signed
// with cred. Location requests go path-style to the legacy endpoint, which
// answers for buckets in every region. A non-empty endpointURL overrides the
// endpoint (S3-compatible stores, local testing).
func NewRegionLookerForCredential(ctx context.Context, cred credentials.Credential, endpointURL string, opts ...LookerOption) (*RegionLooker, error) {
	cfg := Config{
		Credential:     cred,
		Region:         endpoint.LegacySigningRegion,
		Endpoint:       endpointURL,
		ForcePathStyle: true,
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://" + endpoint.LegacyEndpoint
	}

	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRegionLooker(client, opts...), nil
}

// Lookup returns the raw location constraint of bucket. An empty string
// means the legacy region.
//
// Access-denied and not-found answers are reported as
// endpoint.ErrPermissionDenied so the endpoint resolver can fall back to
// the legacy region.
func (l *RegionLooker) Lookup(ctx context.Context, bucket string) (string, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	out, err := l.api.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		wrapped := wrapError("GetBucketLocation", bucket, err)
		if provider.IsPermissionDenied(wrapped) {
			return "", fmt.Errorf("%w: %w", endpoint.ErrPermissionDenied, wrapped)
		}
		return "", wrapped
	}

	return string(out.LocationConstraint), nil
}
