package endpoint

import "strings"

const (
	// LegacyRegion is the oldest S3 region, used for names that cannot be
	// addressed any other way and when the location is not readable.
	LegacyRegion = "us-standard"

	// LegacyEndpoint is the global endpoint serving LegacyRegion.
	LegacyEndpoint = "s3.amazonaws.com"

	// LegacySigningRegion is the SDK region identifier for LegacyRegion.
	LegacySigningRegion = "us-east-1"
)

// defaultRegionHosts is used when no richer table is supplied.
var defaultRegionHosts = map[string]string{
	"ap-northeast-1": "s3-ap-northeast-1.amazonaws.com",
	"ap-southeast-1": "s3-ap-southeast-1.amazonaws.com",
	"ap-southeast-2": "s3-ap-southeast-2.amazonaws.com",
	"eu-west-1":      "s3-eu-west-1.amazonaws.com",
	LegacyRegion:     LegacyEndpoint,
	"us-west-1":      "s3-us-west-1.amazonaws.com",
	"us-west-2":      "s3-us-west-2.amazonaws.com",
}

// RegionTable maps region identifiers to endpoint host names.
//
// A RegionTable is built once and read-only afterwards.
type RegionTable struct {
	hosts map[string]string
}

// NewRegionTable returns the built-in table overlaid with extra. Entries in
// extra win; empty hosts in extra are ignored.
func NewRegionTable(extra map[string]string) RegionTable {
	hosts := make(map[string]string, len(defaultRegionHosts)+len(extra))
	for region, host := range defaultRegionHosts {
		hosts[region] = host
	}
	for region, host := range extra {
		if host == "" {
			continue
		}
		hosts[CanonicalRegion(region)] = host
	}
	return RegionTable{hosts: hosts}
}

// Host returns the endpoint host for region. Regions missing from the table
// use the regional form s3.<region>.amazonaws.com.
func (t RegionTable) Host(region string) string {
	region = CanonicalRegion(region)
	if host, ok := t.hosts[region]; ok {
		return host
	}
	return "s3." + region + ".amazonaws.com"
}

// Len returns the number of regions in the table.
func (t RegionTable) Len() int {
	return len(t.hosts)
}

// CanonicalRegion normalizes location constraints returned by the bucket
// location API. An empty constraint and us-east-1 both mean the legacy
// region; "EU" is the historical name of eu-west-1.
func CanonicalRegion(region string) string {
	region = strings.TrimSpace(region)
	switch region {
	case "", LegacySigningRegion:
		return LegacyRegion
	case "EU":
		return "eu-west-1"
	default:
		return region
	}
}

// SigningRegion returns the SDK region identifier used to sign requests for
// region.
func SigningRegion(region string) string {
	region = CanonicalRegion(region)
	if region == LegacyRegion {
		return LegacySigningRegion
	}
	return region
}
