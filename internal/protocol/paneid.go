package protocol

import (
	"net/url"
	"strings"
)

// EncodePaneID prepares a pane id for use in a URL path. '%' is doubled to
// "%25" before percent-encoding so '%' inside ids survives the round trip
// through path decoding.
func EncodePaneID(paneID string) string {
	doubled := strings.ReplaceAll(paneID, "%", "%25")
	return url.PathEscape(doubled)
}

// DecodePaneID reverses the doubling applied by EncodePaneID on a
// path-decoded segment.
func DecodePaneID(segment string) string {
	return strings.ReplaceAll(segment, "%25", "%")
}
