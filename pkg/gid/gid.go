// Package gid converts between Shopify global IDs and the local IDs used by
// callers of the catalog client.
//
// A global ID has the form scheme://namespace/Type/localId, for example
// gid://shopify/Product/1234567890. Only the final path segment is meaningful
// to the fetchers.
package gid

import (
	"fmt"
	"strings"
)

// Scheme is the prefix Shopify uses for all Admin API global IDs.
const Scheme = "gid://shopify"

// Resource kinds used when building global IDs.
const (
	KindCollection  = "Collection"
	KindProduct     = "Product"
	KindPublication = "Publication"
)

// LocalID returns the substring after the last "/" of a global ID.
// Empty input yields an empty string; input without "/" is returned unchanged.
func LocalID(globalID string) string {
	if globalID == "" {
		return ""
	}
	return globalID[strings.LastIndex(globalID, "/")+1:]
}

// Build returns the global ID for a local ID of the given kind.
// An ID that is already global is returned as is.
func Build(kind, localID string) string {
	if strings.HasPrefix(localID, "gid://") {
		return localID
	}
	return fmt.Sprintf("%s/%s/%s", Scheme, kind, localID)
}
