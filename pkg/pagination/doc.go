// Package pagination walks cursor-paginated GraphQL connections.
//
// Shopify connections return an ordered list of edges, each carrying an opaque
// cursor, plus pageInfo.hasNextPage. The next page is requested with the cursor
// of the last edge of the current page. Pages are fetched strictly one after
// another; there is no prefetching.
//
// Example usage:
//
//	ids, err := pagination.Walk(ctx, pagination.Options{Resource: "collections"},
//		func(ctx context.Context, cursor string) (*collectionsData, error) {
//			return fetchCollections(ctx, cursor)
//		},
//		func(d *collectionsData) (pagination.Page[string], error) {
//			return pagination.FromConnection(d.Collections, func(n node) (string, bool) {
//				return gid.LocalID(n.ID), true
//			})
//		})
//
// The walker:
//   - Starts at Options.StartCursor (empty means the first page)
//   - Appends each page's items in edge order
//   - Stops when hasNextPage is false, or on an empty page with no cursor
//   - Refuses to request the same cursor twice (ErrCursorStalled)
//   - Treats a response missing the expected connection as the end of the
//     sequence, or as ErrShapeMismatch when Options.Strict is set
package pagination
