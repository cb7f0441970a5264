// Package credentials resolves the access key, secret key and session token
// used to talk to S3.
//
// Fragments are read from the environment and from explicit caller input,
// overlaid field by field, and the reserved "instance-profile" key is
// expanded through an injected instance-metadata fetcher. Every field keeps
// a Source tag so diagnostics can say where each value came from without
// ever printing the value itself.
package credentials

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by FromEnvironment.
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvSecurityToken   = "AWS_SECURITY_TOKEN"
)

// InstanceProfilePlaceholder is the reserved access key value requesting
// credentials from the instance profile. Compared case-insensitively.
const InstanceProfilePlaceholder = "instance-profile"

// Field is a single credential component and its provenance.
//
// An empty Value means the component is not set.
type Field struct {
	// Name is the conventional variable name, e.g. AWS_ACCESS_KEY_ID.
	Name string

	// Value is the component value. Empty means unset.
	Value string

	// Source records where Value came from.
	Source Source
}

// IsSet reports whether the field carries a value.
func (f Field) IsSet() bool {
	return f.Value != ""
}

// Credential is an access key, secret key and session token, each tagged
// with its source.
//
// Credential values are never mutated; Merge builds a new value.
type Credential struct {
	Key    Field
	Secret Field
	Token  Field
}

// IsPlaceholder reports whether the key still holds the unexpanded
// instance-profile placeholder.
func (c Credential) IsPlaceholder() bool {
	return isPlaceholder(c.Key.Value)
}

// IsComplete reports whether both key and secret are set and the key is a
// real key rather than the placeholder.
//
// This says nothing about whether the provider will accept the pair.
func (c Credential) IsComplete() bool {
	return c.Key.IsSet() && c.Secret.IsSet() && !c.IsPlaceholder()
}

// String renders the credential with the secret and token redacted.
func (c Credential) String() string {
	return fmt.Sprintf("Credential(key=%s, secret=%s, token=%s)",
		describeKey(c.Key), redacted(c.Secret), redacted(c.Token))
}

// GoString matches String so %#v cannot leak secrets into logs.
func (c Credential) GoString() string {
	return c.String()
}

// FromEnvironment reads the three credential variables from the process
// environment. Unset variables yield unset fields still tagged Environment.
func FromEnvironment() Credential {
	return fromEnvironment(os.Getenv)
}

func fromEnvironment(getenv func(string) string) Credential {
	field := func(name string) Field {
		return Field{Name: name, Value: getenv(name), Source: Environment}
	}
	return Credential{
		Key:    field(EnvAccessKeyID),
		Secret: field(EnvSecretAccessKey),
		Token:  field(EnvSecurityToken),
	}
}

// FromExplicitInput wraps caller-supplied key and token. The secret is never
// accepted from this channel and is always unset.
func FromExplicitInput(key, token string) Credential {
	return Credential{
		Key:    Field{Name: EnvAccessKeyID, Value: key, Source: ExplicitInput},
		Secret: Field{Name: EnvSecretAccessKey, Source: ExplicitInput},
		Token:  Field{Name: EnvSecurityToken, Value: token, Source: ExplicitInput},
	}
}

// Merge overlays override onto base, one field at a time.
//
// A set field in override replaces the base field entirely, value and
// source together. An unset override field keeps the base field.
func Merge(base, override Credential) Credential {
	return Credential{
		Key:    mergeField(base.Key, override.Key),
		Secret: mergeField(base.Secret, override.Secret),
		Token:  mergeField(base.Token, override.Token),
	}
}

func mergeField(base, override Field) Field {
	if override.IsSet() {
		return override
	}
	return base
}

func isPlaceholder(v string) bool {
	return strings.EqualFold(v, InstanceProfilePlaceholder)
}

// describeKey shows whether the key is set and where from. The placeholder
// is not a secret and is shown verbatim.
func describeKey(f Field) string {
	if !f.IsSet() {
		return "<unset>"
	}
	if isPlaceholder(f.Value) {
		return fmt.Sprintf("%q (%s)", f.Value, f.Source)
	}
	return fmt.Sprintf("[set] (%s)", f.Source)
}

func redacted(f Field) string {
	if !f.IsSet() {
		return "<unset>"
	}
	return "[redacted]"
}
