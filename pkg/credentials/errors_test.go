package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireComplete_Placeholder(t *testing.T) {
	tests := []struct {
		name string
		cred Credential
	}{
		{name: "environment", cred: fromEnvironment(envFrom(map[string]string{EnvAccessKeyID: "instance-profile"}))},
		{name: "explicit input", cred: FromExplicitInput("instance-profile", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.cred.IsComplete())

			err := RequireComplete(tt.cred)
			require.Error(t, err)
			assert.True(t, IsInternalInvariant(err))
			assert.False(t, IsIncomplete(err))
			assert.Contains(t, err.Error(), "bug:")
		})
	}
}

func TestRequireComplete_RedactsValues(t *testing.T) {
	cred := Credential{
		Key:    Field{Name: EnvAccessKeyID, Source: Environment},
		Secret: Field{Name: EnvSecretAccessKey, Value: "super-secret-value", Source: Environment},
		Token:  Field{Name: EnvSecurityToken, Value: "super-secret-token", Source: ExplicitInput},
	}

	err := RequireComplete(cred)
	require.Error(t, err)

	var incomplete *IncompleteCredentialsError
	require.ErrorAs(t, err, &incomplete)

	assert.Equal(t, []string{
		"AWS_ACCESS_KEY_ID is not set",
		"AWS_SECRET_ACCESS_KEY set by environment variable",
		"AWS_SECURITY_TOKEN set by command line",
	}, incomplete.Status)
	assert.NotEmpty(t, incomplete.Hint)

	for _, s := range []string{err.Error(), incomplete.Detail()} {
		assert.NotContains(t, s, "super-secret-value")
		assert.NotContains(t, s, "super-secret-token")
	}
}

func TestSource_String(t *testing.T) {
	tests := []struct {
		source Source
		want   string
	}{
		{Environment, "environment variable"},
		{ExplicitInput, "command line"},
		{InstanceProfileViaEnvironment, "instance profile, specified via environment variable"},
		{InstanceProfileViaExplicitInput, "instance profile, specified via command line"},
		{Source{}, "unknown source"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.source.String())
		})
	}
}

func TestInstanceProfileVia(t *testing.T) {
	via, ok := InstanceProfileVia(Environment)
	require.True(t, ok)
	assert.Equal(t, InstanceProfileViaEnvironment, via)
	assert.Equal(t, OriginEnvironment, via.Origin())
	assert.True(t, via.IsInstanceProfile())

	via, ok = InstanceProfileVia(ExplicitInput)
	require.True(t, ok)
	assert.Equal(t, InstanceProfileViaExplicitInput, via)

	_, ok = InstanceProfileVia(InstanceProfileViaExplicitInput)
	assert.False(t, ok)

	_, ok = InstanceProfileVia(Source{})
	assert.False(t, ok)
}
