package model

import (
	"net/http"
	"strings"
)

// DefaultVendorMarker is the substring identifying bundled third-party sources.
const DefaultVendorMarker = "node_modules"

// Policy holds run-wide settings. It is built once at startup and passed by
// value to every component that needs it.
type Policy struct {
	// KeepVendorTrees writes vendored dependency sources instead of skipping them.
	KeepVendorTrees bool
	// OverwriteExisting clears a non-empty output directory without asking.
	OverwriteExisting bool
	// VendorMarker overrides DefaultVendorMarker when non-empty.
	VendorMarker string
	// Method is the HTTP method used for every request (GET or POST).
	Method string
	// Headers are sent with every request.
	Headers http.Header
}

// Marker returns the effective vendor-tree marker.
func (p Policy) Marker() string {
	if strings.TrimSpace(p.VendorMarker) == "" {
		return DefaultVendorMarker
	}

	return p.VendorMarker
}

// IsVendored reports whether declaredPath belongs to a vendored subtree.
func (p Policy) IsVendored(declaredPath string) bool {
	return strings.Contains(declaredPath, p.Marker())
}

// SkipsVendored reports whether declaredPath is vendored and the policy
// drops vendored sources.
func (p Policy) SkipsVendored(declaredPath string) bool {
	return !p.KeepVendorTrees && p.IsVendored(declaredPath)
}

// HTTPMethod returns the configured method, defaulting to GET.
func (p Policy) HTTPMethod() string {
	if strings.EqualFold(p.Method, http.MethodPost) {
		return http.MethodPost
	}

	return http.MethodGet
}
