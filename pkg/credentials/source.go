package credentials

// Origin identifies the configuration channel a credential fragment was
// read from.
type Origin uint8

const (
	// OriginEnvironment is the process environment.
	OriginEnvironment Origin = iota + 1

	// OriginExplicitInput is caller-supplied input, typically the command line.
	OriginExplicitInput
)

// Source tags a credential field with where its value came from.
//
// The set of sources is closed: a field comes from the environment, from
// explicit input, or from instance-profile expansion triggered through one
// of those two. The zero Source is invalid.
type Source struct {
	origin          Origin
	instanceProfile bool
}

// The four valid sources.
var (
	Environment                     = Source{origin: OriginEnvironment}
	ExplicitInput                   = Source{origin: OriginExplicitInput}
	InstanceProfileViaEnvironment   = Source{origin: OriginEnvironment, instanceProfile: true}
	InstanceProfileViaExplicitInput = Source{origin: OriginExplicitInput, instanceProfile: true}
)

// Origin returns the channel that supplied the value, or that triggered the
// instance-profile expansion which supplied it.
func (s Source) Origin() Origin {
	return s.origin
}

// IsInstanceProfile reports whether the value was produced by
// instance-profile expansion.
func (s Source) IsInstanceProfile() bool {
	return s.instanceProfile
}

// IsValid reports whether s is one of the four known sources.
func (s Source) IsValid() bool {
	return s.origin == OriginEnvironment || s.origin == OriginExplicitInput
}

// InstanceProfileVia returns the source tag for values expanded from the
// instance profile when the placeholder was supplied through s.
//
// It returns false when s is already an instance-profile source or is not
// valid; an expanded value can never trigger a second expansion.
func InstanceProfileVia(s Source) (Source, bool) {
	if !s.IsValid() || s.instanceProfile {
		return Source{}, false
	}
	return Source{origin: s.origin, instanceProfile: true}, true
}

// String returns a human readable description used in diagnostics.
func (s Source) String() string {
	switch s {
	case Environment:
		return "environment variable"
	case ExplicitInput:
		return "command line"
	case InstanceProfileViaEnvironment:
		return "instance profile, specified via environment variable"
	case InstanceProfileViaExplicitInput:
		return "instance profile, specified via command line"
	default:
		return "unknown source"
	}
}
