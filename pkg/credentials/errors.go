package credentials

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMetadataFetcher is returned when the placeholder requests
// instance-profile expansion but the resolver has no metadata fetcher.
var ErrNoMetadataFetcher = errors.New("instance profile requested but no metadata fetcher configured")

// IncompleteCredentialsError reports a credential missing its key or secret
// after resolution. It is user-correctable.
//
// Status lines describe which components are set and by which source. They
// never contain the values themselves.
type IncompleteCredentialsError struct {
	Message string
	Status  []string
	Hint    string
}

// Error implements the error interface.
func (e *IncompleteCredentialsError) Error() string {
	return e.Message + ": " + strings.Join(e.Status, "; ")
}

// Detail returns the multi-line status breakdown for user-facing output.
func (e *IncompleteCredentialsError) Detail() string {
	lines := append([]string{"The credentials passed have this configuration:"}, e.Status...)
	return strings.Join(lines, "\n")
}

// InternalInvariantError reports a defect in call sequencing, such as an
// unexpanded placeholder reaching the completeness check. It is not
// user-correctable.
type InternalInvariantError struct {
	Message string
	Hint    string
}

// Error implements the error interface.
func (e *InternalInvariantError) Error() string {
	return "bug: " + e.Message
}

// IsIncomplete reports whether err is an IncompleteCredentialsError.
func IsIncomplete(err error) bool {
	var target *IncompleteCredentialsError
	return errors.As(err, &target)
}

// IsInternalInvariant reports whether err is an InternalInvariantError.
func IsInternalInvariant(err error) bool {
	var target *InternalInvariantError
	return errors.As(err, &target)
}

// RequireComplete returns nil for a complete credential.
//
// A credential whose key still holds the placeholder fails with
// *InternalInvariantError: expansion must happen before this check.
// Otherwise an incomplete credential fails with *IncompleteCredentialsError.
func RequireComplete(c Credential) error {
	if c.IsComplete() {
		return nil
	}

	if c.IsPlaceholder() {
		return &InternalInvariantError{
			Message: "unexpanded instance-profile credentials passed to completeness check",
			Hint:    "resolve credentials with Resolver.Resolve before requiring completeness",
		}
	}

	return &IncompleteCredentialsError{
		Message: "incomplete credentials",
		Status: []string{
			fieldStatus(c.Key),
			fieldStatus(c.Secret),
			fieldStatus(c.Token),
		},
		Hint: "check your environment and command line options carefully to make sure keys are being passed properly",
	}
}

func fieldStatus(f Field) string {
	if !f.IsSet() {
		return fmt.Sprintf("%s is not set", f.Name)
	}
	return fmt.Sprintf("%s set by %s", f.Name, f.Source)
}
