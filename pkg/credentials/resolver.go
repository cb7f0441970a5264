package credentials

import (
	"context"
	"os"

	"go.uber.org/zap"
)

// Resolver merges environment and explicit credentials and expands the
// instance-profile placeholder.
//
// A Resolver holds no mutable state and is safe for concurrent use.
type Resolver struct {
	getenv  func(string) string
	fetcher MetadataFetcher
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetadataFetcher sets the collaborator used for instance-profile
// expansion.
func WithMetadataFetcher(f MetadataFetcher) Option {
	return func(r *Resolver) { r.fetcher = f }
}

// WithLogger sets the logger for resolution decisions. Values are never
// logged.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithGetenv replaces os.Getenv for reading the environment.
func WithGetenv(getenv func(string) string) Option {
	return func(r *Resolver) {
		if getenv != nil {
			r.getenv = getenv
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		getenv: os.Getenv,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the effective credential.
//
// Explicit input overrides the environment per field. When the resulting
// key is the instance-profile placeholder, instance credentials are fetched
// and overlaid where present, tagged with the source that carried the
// placeholder. The result may still be incomplete; see RequireComplete.
func (r *Resolver) Resolve(ctx context.Context, explicitKey, explicitToken string) (Credential, error) {
	merged := Merge(fromEnvironment(r.getenv), FromExplicitInput(explicitKey, explicitToken))

	if !merged.IsPlaceholder() {
		r.logger.Debug("Resolved credentials",
			zap.String("key_source", merged.Key.Source.String()),
			zap.String("secret_source", merged.Secret.Source.String()),
			zap.Bool("complete", merged.IsComplete()))
		return merged, nil
	}

	r.logger.Debug("Expanding instance profile credentials",
		zap.String("triggered_by", merged.Key.Source.String()))

	expanded, err := ExpandInstanceProfile(ctx, r.fetcher, merged.Key.Source)
	if err != nil {
		return Credential{}, err
	}

	// Metadata without AccessKeyId leaves the placeholder in place.
	result := Merge(merged, expanded)
	if !expanded.Key.IsSet() || !expanded.Secret.IsSet() {
		r.logger.Warn("Instance metadata did not supply a full key pair",
			zap.Bool("key_present", expanded.Key.IsSet()),
			zap.Bool("secret_present", expanded.Secret.IsSet()))
	}
	return result, nil
}
