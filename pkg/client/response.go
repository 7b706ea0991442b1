package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Sternrassler/shopify-catalog-client/pkg/ratelimit"
)

// Response is the decoded GraphQL response envelope.
type Response struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Errors     GraphQLErrors   `json:"errors,omitempty"`
	Extensions *Extensions     `json:"extensions,omitempty"`
}

// Extensions carries the query cost report.
type Extensions struct {
	Cost *Cost `json:"cost,omitempty"`
}

// Cost is extensions.cost.
type Cost struct {
	RequestedQueryCost *float64                  `json:"requestedQueryCost,omitempty"`
	ActualQueryCost    *float64                  `json:"actualQueryCost,omitempty"`
	ThrottleStatus     *ratelimit.ThrottleStatus `json:"throttleStatus,omitempty"`
}

// ThrottleStatus returns extensions.cost.throttleStatus, or nil.
func (r *Response) ThrottleStatus() *ratelimit.ThrottleStatus {
	if r == nil || r.Extensions == nil || r.Extensions.Cost == nil {
		return nil
	}
	return r.Extensions.Cost.ThrottleStatus
}

// Throttled reports whether any GraphQL error mentions throttling.
func (r *Response) Throttled() bool {
	if r == nil {
		return false
	}
	for _, e := range r.Errors {
		if e.throttled() {
			return true
		}
	}
	return false
}

// HasData reports whether the response carries a non-null data member.
func (r *Response) HasData() bool {
	if r == nil {
		return false
	}
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// GraphQLError is one entry of the errors array.
type GraphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code,omitempty"`
	} `json:"extensions,omitempty"`
}

func (e GraphQLError) throttled() bool {
	return strings.Contains(strings.ToLower(e.Message), "throttled") ||
		strings.EqualFold(e.Extensions.Code, "throttled")
}

// GraphQLErrors is the errors member. Shopify sometimes sends a bare string
// or an object instead of an array; both are accepted.
type GraphQLErrors []GraphQLError

// UnmarshalJSON implements json.Unmarshaler.
func (g *GraphQLErrors) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*g = nil
		return nil
	case trimmed[0] == '"':
		var msg string
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return err
		}
		*g = GraphQLErrors{{Message: msg}}
		return nil
	case trimmed[0] == '{':
		var single GraphQLError
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		if single.Message == "" {
			single.Message = string(trimmed)
		}
		*g = GraphQLErrors{single}
		return nil
	}

	var list []GraphQLError
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*g = list
	return nil
}

// Error implements the error interface.
func (g GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(g))
	for _, e := range g {
		msgs = append(msgs, e.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}
