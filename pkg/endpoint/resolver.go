package endpoint

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrPermissionDenied marks a region lookup that failed because the
// credentials may not read the bucket location. Lookups wrap it so the
// resolver can fall back to the legacy region.
var ErrPermissionDenied = errors.New("permission denied")

// RegionLookup returns the location constraint of bucket.
//
// Implementations perform the network call; timeouts and cancellation come
// from ctx. Errors matching ErrPermissionDenied are recovered by falling
// back to the legacy region; all others are returned to the caller.
type RegionLookup func(ctx context.Context, bucket string) (string, error)

// Resolver classifies bucket names and caches the result per bucket.
//
// Resolver is safe for concurrent use. For a given bucket, the region lookup
// runs at most once for the life of the Resolver, however many goroutines
// call Complete.
type Resolver struct {
	mu    sync.RWMutex
	cache map[string]CallingInfo

	flights singleflight.Group
	regions RegionTable
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegionHosts overlays an externally supplied region-to-host table on
// the built-in one. The merge happens once, at construction.
func WithRegionHosts(hosts map[string]string) Option {
	return func(r *Resolver) { r.regions = NewRegionTable(hosts) }
}

// WithLogger sets the logger for addressing decisions.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver with an empty cache.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		cache:   make(map[string]CallingInfo),
		regions: NewRegionTable(nil),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Regions returns the region table in use.
func (r *Resolver) Regions() RegionTable {
	return r.regions
}

// Resolve returns the CallingInfo for bucket, reading through the cache.
//
// Names failing IsMostlyVirtualHostCompatible are pinned to the legacy
// region. Dotted names come back with StateNeedsResolution until Complete
// has run for them; that pending state is never cached. Everything else is
// virtual-hosted.
func (r *Resolver) Resolve(bucket string) CallingInfo {
	if info, ok := r.cached(bucket); ok {
		return info
	}

	info := classify(bucket)
	if info.NeedsResolution() {
		return info
	}

	r.mu.Lock()
	if existing, ok := r.cache[bucket]; ok {
		r.mu.Unlock()
		return existing
	}
	r.cache[bucket] = info
	r.mu.Unlock()

	if info.State == StateLegacy {
		r.logger.Warn("Bucket name is confined to the legacy region",
			zap.String("bucket", bucket),
			zap.String("region", info.Region),
			zap.String("hint", "non-conforming bucket names do not work in newer regions and cannot use virtual-hosted addressing"))
	}
	return info
}

// Complete finishes resolution of a CallingInfo returned by Resolve.
//
// Info that does not need resolution is returned unchanged, as is a bucket
// another caller has already resolved. Otherwise lookup is called once per
// bucket, concurrent callers share its result, and the resolved value
// replaces the pending one in the cache. A permission-denied lookup falls
// back to the legacy region. Any other lookup error is returned as is and
// nothing is cached, so a later call may try again.
//
// The lookup itself runs detached from ctx cancellation and is bounded by
// the lookup's own timeout. A caller whose ctx ends first gets ctx.Err()
// while the lookup carries on for the others.
func (r *Resolver) Complete(ctx context.Context, info CallingInfo, lookup RegionLookup) (CallingInfo, error) {
	if !info.NeedsResolution() {
		return info, nil
	}

	bucket := info.Bucket
	if cached, ok := r.cached(bucket); ok {
		return cached, nil
	}

	lookupCtx := context.WithoutCancel(ctx)
	ch := r.flights.DoChan(bucket, func() (any, error) {
		// A flight that finished between the check above and DoChan has
		// already stored its result.
		if cached, ok := r.cached(bucket); ok {
			return cached, nil
		}

		region, err := lookup(lookupCtx, bucket)
		if err != nil {
			if !errors.Is(err, ErrPermissionDenied) {
				return nil, err
			}
			r.logger.Warn("Bucket location not readable, falling back to legacy region",
				zap.String("bucket", bucket),
				zap.Error(err))
			region = LegacyRegion
		}

		region = CanonicalRegion(region)
		resolved := CallingInfo{
			Bucket:       bucket,
			Format:       PathStyle,
			Region:       region,
			EndpointHost: r.regions.Host(region),
			State:        StateResolved,
		}

		r.mu.Lock()
		r.cache[bucket] = resolved
		r.mu.Unlock()

		r.logger.Debug("Resolved bucket region",
			zap.String("bucket", bucket),
			zap.String("region", resolved.Region),
			zap.String("endpoint", resolved.EndpointHost))
		return resolved, nil
	})

	select {
	case <-ctx.Done():
		return info, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return info, res.Err
		}
		return res.Val.(CallingInfo), nil
	}
}

// ResolveAndComplete is Resolve followed by Complete.
func (r *Resolver) ResolveAndComplete(ctx context.Context, bucket string, lookup RegionLookup) (CallingInfo, error) {
	return r.Complete(ctx, r.Resolve(bucket), lookup)
}

// Len returns the number of cached buckets.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Resolver) cached(bucket string) (CallingInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.cache[bucket]
	return info, ok
}

func classify(bucket string) CallingInfo {
	if !IsMostlyVirtualHostCompatible(bucket) {
		return CallingInfo{
			Bucket:       bucket,
			Format:       PathStyle,
			Region:       LegacyRegion,
			EndpointHost: LegacyEndpoint,
			State:        StateLegacy,
		}
	}

	if strings.Contains(bucket, ".") {
		return CallingInfo{
			Bucket: bucket,
			Format: PathStyle,
			State:  StateNeedsResolution,
		}
	}

	return CallingInfo{
		Bucket: bucket,
		Format: VirtualHosted,
		State:  StateVirtualHosted,
	}
}
