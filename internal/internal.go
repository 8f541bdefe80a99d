// Package internal provides low-level helpers shared by the WebDAV server
// packages.
package internal

// Depth indicates whether a request applies to the resource's members. It's
// defined in RFC 4918 section 10.2.
type Depth int

const (
	// DepthZero indicates that the request applies only to the resource.
	DepthZero Depth = 0
	// DepthOne indicates that the request applies to the resource and its
	// internal members only.
	DepthOne Depth = 1
	// DepthInfinity indicates that the request applies to the resource and all
	// of its members.
	DepthInfinity Depth = -1
)

// ParseDepth parses a Depth header. Missing or malformed values fall back to
// infinity, which is the RFC 4918 default for PROPFIND.
func ParseDepth(s string) Depth {
	switch s {
	case "0":
		return DepthZero
	case "1":
		return DepthOne
	}
	return DepthInfinity
}

// String formats the depth.
func (d Depth) String() string {
	switch d {
	case DepthZero:
		return "0"
	case DepthOne:
		return "1"
	}
	return "infinity"
}
