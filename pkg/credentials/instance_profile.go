package credentials

import (
	"context"
	"fmt"
)

// Field names read from the instance metadata credential document.
const (
	MetadataAccessKeyID     = "AccessKeyId"
	MetadataSecretAccessKey = "SecretAccessKey"
	MetadataToken           = "Token"
)

// MetadataFetcher fetches the instance-profile credential document.
//
// A nil or empty map with a nil error means no instance credentials are
// available. Retry and timeout policy belong to the implementation.
type MetadataFetcher interface {
	FetchInstanceMetadata(ctx context.Context) (map[string]string, error)
}

// MetadataFetcherFunc adapts a function to MetadataFetcher.
type MetadataFetcherFunc func(ctx context.Context) (map[string]string, error)

// FetchInstanceMetadata calls f.
func (f MetadataFetcherFunc) FetchInstanceMetadata(ctx context.Context) (map[string]string, error) {
	return f(ctx)
}

// ExpandInstanceProfile fetches instance credentials and tags every field
// with InstanceProfileVia(selector).
//
// Fields missing from the metadata document are left unset; completeness is
// judged later by RequireComplete. selector must be Environment or
// ExplicitInput.
func ExpandInstanceProfile(ctx context.Context, fetcher MetadataFetcher, selector Source) (Credential, error) {
	via, ok := InstanceProfileVia(selector)
	if !ok {
		return Credential{}, &InternalInvariantError{
			Message: fmt.Sprintf("cannot expand instance profile from source %q", selector),
			Hint:    "instance profile expansion is only triggered by environment or command line input",
		}
	}
	if fetcher == nil {
		return Credential{}, ErrNoMetadataFetcher
	}

	md, err := fetcher.FetchInstanceMetadata(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("fetch instance metadata: %w", err)
	}

	return Credential{
		Key:    Field{Name: EnvAccessKeyID, Value: md[MetadataAccessKeyID], Source: via},
		Secret: Field{Name: EnvSecretAccessKey, Value: md[MetadataSecretAccessKey], Source: via},
		Token:  Field{Name: EnvSecurityToken, Value: md[MetadataToken], Source: via},
	}, nil
}
