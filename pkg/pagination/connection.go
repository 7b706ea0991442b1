package pagination

// PageInfo is a connection's pageInfo.
type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor,omitempty"`
}

// Edge wraps a node with its cursor.
type Edge[N any] struct {
	Cursor string `json:"cursor"`
	Node   *N     `json:"node"`
}

// Connection is a GraphQL connection. Pointer and nil-slice fields record
// whether the key was present in the response.
type Connection[N any] struct {
	PageInfo *PageInfo `json:"pageInfo"`
	Edges    []Edge[N] `json:"edges"`
}

// Page is one normalized page of results.
type Page[T any] struct {
	Items       []T
	HasNextPage bool

	// EndCursor is the cursor of the last edge, used to request the next page.
	EndCursor string
}

// FromConnection converts a connection into a Page, mapping every node with
// mapNode. mapNode returns false to drop a node. A nil connection, missing
// edges or pageInfo, or a null node yields ErrShapeMismatch.
func FromConnection[N, T any](conn *Connection[N], mapNode func(N) (T, bool)) (Page[T], error) {
	if conn == nil || conn.Edges == nil || conn.PageInfo == nil {
		return Page[T]{}, ErrShapeMismatch
	}

	page := Page[T]{
		Items:       make([]T, 0, len(conn.Edges)),
		HasNextPage: conn.PageInfo.HasNextPage,
	}
	for _, edge := range conn.Edges {
		if edge.Node == nil {
			return Page[T]{}, ErrShapeMismatch
		}
		if item, keep := mapNode(*edge.Node); keep {
			page.Items = append(page.Items, item)
		}
	}

	if n := len(conn.Edges); n > 0 {
		page.EndCursor = conn.Edges[n-1].Cursor
	} else if conn.PageInfo.EndCursor != nil {
		page.EndCursor = *conn.PageInfo.EndCursor
	}

	return page, nil
}
