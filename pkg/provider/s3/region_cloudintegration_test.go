//go:build cloudintegration

package s3_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/s3route/pkg/credentials"
	"github.com/3leaps/s3route/pkg/endpoint"
	"github.com/3leaps/s3route/pkg/provider/s3"
	"github.com/3leaps/s3route/test/cloudtest"
)

func TestRegionLooker_CloudIntegration(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	cred := credentials.Credential{
		Key:    credentials.Field{Name: credentials.EnvAccessKeyID, Value: cloudtest.TestAccessKeyID, Source: credentials.ExplicitInput},
		Secret: credentials.Field{Name: credentials.EnvSecretAccessKey, Value: cloudtest.TestSecretAccessKey, Source: credentials.Environment},
		Token:  credentials.Field{Name: credentials.EnvSecurityToken, Value: "moto", Source: credentials.Environment},
	}

	looker, err := s3.NewRegionLookerForCredential(ctx, cred, cloudtest.Endpoint)
	require.NoError(t, err)

	t.Run("regional bucket resolves to regional endpoint", func(t *testing.T) {
		bucket := cloudtest.CreateBucket(t, ctx, "us-west-2")

		r := endpoint.NewResolver()
		info, err := r.ResolveAndComplete(ctx, bucket, looker.Lookup)
		require.NoError(t, err)
		assert.Equal(t, endpoint.StateResolved, info.State)
		assert.Equal(t, "us-west-2", info.Region)
		assert.Equal(t, "s3-us-west-2.amazonaws.com", info.EndpointHost)
	})

	t.Run("unconstrained bucket resolves to legacy region", func(t *testing.T) {
		bucket := cloudtest.CreateBucket(t, ctx, "")

		info, err := endpoint.NewResolver().ResolveAndComplete(ctx, bucket, looker.Lookup)
		require.NoError(t, err)
		assert.Equal(t, endpoint.LegacyRegion, info.Region)
		assert.Equal(t, endpoint.LegacyEndpoint, info.EndpointHost)
	})

	t.Run("missing bucket falls back to legacy region", func(t *testing.T) {
		info, err := endpoint.NewResolver().ResolveAndComplete(ctx, "missing.bucket.s3route", looker.Lookup)
		require.NoError(t, err)
		assert.Equal(t, endpoint.LegacyRegion, info.Region)
	})
}
