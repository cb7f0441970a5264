// Package endpoint decides how a bucket must be addressed.
//
// A bucket name is classified into virtual-hosted or path-style calling
// convention. Names that break the naming rules are confined to the legacy
// region. Dotted names that otherwise follow the rules need a one-time
// region lookup before they can be addressed path-style against the right
// regional host. Results are cached for the life of the process.
package endpoint

// CallingFormat is the request addressing convention for a bucket.
type CallingFormat int

const (
	// VirtualHosted addresses the bucket as a DNS subdomain.
	VirtualHosted CallingFormat = iota + 1

	// PathStyle addresses the bucket as a path component on a fixed host.
	PathStyle
)

// String returns the string representation of the calling format.
func (f CallingFormat) String() string {
	switch f {
	case VirtualHosted:
		return "virtual-hosted"
	case PathStyle:
		return "path-style"
	default:
		return "unknown"
	}
}

// State tracks where a bucket's CallingInfo is in its lifecycle.
//
//	Unclassified -> LegacyFinal | VirtualHostedFinal | NeedsResolution
//	NeedsResolution -> Resolved
type State int

const (
	// StateLegacy is terminal: the name defeats naming rules and is pinned
	// to the legacy region and endpoint.
	StateLegacy State = iota + 1

	// StateVirtualHosted is terminal: no region is needed.
	StateVirtualHosted

	// StateNeedsResolution means path-style with the region still unknown.
	StateNeedsResolution

	// StateResolved is terminal: path-style with a looked-up region.
	StateResolved
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateLegacy:
		return "legacy"
	case StateVirtualHosted:
		return "virtual-hosted"
	case StateNeedsResolution:
		return "needs-resolution"
	case StateResolved:
		return "resolved"
	default:
		return "unclassified"
	}
}

// CallingInfo is an immutable snapshot of how to address a bucket.
//
// For VirtualHosted, Region and EndpointHost are empty. For PathStyle they
// are set unless State is StateNeedsResolution.
type CallingInfo struct {
	Bucket       string
	Format       CallingFormat
	Region       string
	EndpointHost string
	State        State
}

// NeedsResolution reports whether a region lookup is still required.
func (c CallingInfo) NeedsResolution() bool {
	return c.State == StateNeedsResolution
}

// Host returns the host name requests for the bucket are sent to.
//
// Virtual-hosted buckets use the bucket subdomain of the global endpoint.
// It returns "" while resolution is pending.
func (c CallingInfo) Host() string {
	switch c.State {
	case StateVirtualHosted:
		return c.Bucket + "." + LegacyEndpoint
	case StateLegacy, StateResolved:
		return c.EndpointHost
	default:
		return ""
	}
}
