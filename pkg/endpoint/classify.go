package endpoint

import (
	"strconv"
	"strings"
)

// IsIPv4Like reports whether s is four dot-separated decimal octets, each in
// [0, 255]. Octets are decimal digits only; signs and spaces disqualify.
func IsIPv4Like(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if !isDigits(part) {
			return false
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return false
		}
		if n > 255 {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsMostlyVirtualHostCompatible reports whether bucket can be addressed
// virtual-hosted style, putting TLS certificate validation aside.
//
// Dotted names pass this check but still cannot use virtual-hosted
// addressing over TLS, since the dots break wildcard certificate matching.
func IsMostlyVirtualHostCompatible(bucket string) bool {
	return strings.ToLower(bucket) == bucket &&
		len(bucket) >= 3 &&
		len(bucket) <= 63 &&
		!strings.Contains(bucket, "_") &&
		!strings.Contains(bucket, "..") &&
		!strings.Contains(bucket, "-.") &&
		!strings.Contains(bucket, ".-") &&
		!strings.HasPrefix(bucket, "-") &&
		!strings.HasSuffix(bucket, "-") &&
		!strings.HasPrefix(bucket, ".") &&
		!strings.HasSuffix(bucket, ".") &&
		!IsIPv4Like(bucket)
}
