package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/shopify-catalog-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	// ErrShapeMismatch indicates a response without the expected nested fields.
	ErrShapeMismatch = errors.New("response shape mismatch")

	// ErrCursorStalled indicates hasNextPage without a new cursor to follow.
	ErrCursorStalled = errors.New("pagination cursor did not advance")

	// ErrPageLimit indicates Options.MaxPages was reached with pages remaining.
	ErrPageLimit = errors.New("pagination page limit reached")
)

// Prometheus metrics for page walking.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_pages_fetched_total",
		Help: "Total pages fetched by resource",
	}, []string{"resource"})

	itemsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_items_fetched_total",
		Help: "Total items accumulated from pages by resource",
	}, []string{"resource"})

	shapeMismatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_shape_mismatch_total",
		Help: "Total responses missing the expected connection shape by resource",
	}, []string{"resource"})
)

// Options configures a walk.
type Options struct {
	// Resource labels logs and metrics.
	Resource string

	// StartCursor is the cursor of the first page; empty starts at the beginning.
	StartCursor string

	// Strict surfaces ErrShapeMismatch instead of ending the walk silently.
	Strict bool

	// MaxPages stops the walk with ErrPageLimit after this many pages. Zero means no limit.
	MaxPages int

	// Logger defaults to the global logger tagged component=page-walker.
	// Walk adds only the resource field.
	Logger *zerolog.Logger
}

// FetchFunc fetches the page starting after cursor.
type FetchFunc[R any] func(ctx context.Context, cursor string) (R, error)

// ExtractFunc locates the page within a fetched response.
type ExtractFunc[R, T any] func(R) (Page[T], error)

// Walk fetches pages until hasNextPage is false and returns all items in page
// and edge order. On error the items accumulated so far are returned with it.
func Walk[R, T any](ctx context.Context, opts Options, fetch FetchFunc[R], extract ExtractFunc[R, T]) ([]T, error) {
	logger := logging.NewLogger("page-walker")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("resource", opts.Resource).Logger()

	var items []T
	cursor := opts.StartCursor
	seen := make(map[string]struct{})

	for pageNum := 1; ; pageNum++ {
		if opts.MaxPages > 0 && pageNum > opts.MaxPages {
			return items, fmt.Errorf("%w: %d pages", ErrPageLimit, opts.MaxPages)
		}

		resp, err := fetch(ctx, cursor)
		if err != nil {
			return items, fmt.Errorf("fetch page %d: %w", pageNum, err)
		}

		page, err := extract(resp)
		if errors.Is(err, ErrShapeMismatch) {
			shapeMismatchTotal.WithLabelValues(opts.Resource).Inc()
			if opts.Strict {
				return items, fmt.Errorf("page %d: %w", pageNum, err)
			}
			logger.Warn().
				Int("page", pageNum).
				Str("cursor", cursor).
				Msg("Response missing expected fields - treating as no items")
			return items, nil
		}
		if err != nil {
			return items, fmt.Errorf("page %d: %w", pageNum, err)
		}

		items = append(items, page.Items...)
		pagesFetchedTotal.WithLabelValues(opts.Resource).Inc()
		itemsFetchedTotal.WithLabelValues(opts.Resource).Add(float64(len(page.Items)))

		logger.Debug().
			Int("page", pageNum).
			Int("items", len(page.Items)).
			Int("total", len(items)).
			Bool("has_next_page", page.HasNextPage).
			Msg("Page fetched")

		if !page.HasNextPage {
			return items, nil
		}

		// An empty page without a cursor has nothing to continue from.
		if len(page.Items) == 0 && page.EndCursor == "" {
			logger.Debug().
				Int("page", pageNum).
				Msg("Empty page reported more results - ending walk")
			return items, nil
		}

		seen[cursor] = struct{}{}
		next := page.EndCursor
		if _, repeated := seen[next]; next == "" || repeated {
			logger.Error().
				Int("page", pageNum).
				Str("cursor", cursor).
				Str("next_cursor", next).
				Msg("Next page cursor did not advance")
			return items, fmt.Errorf("%w at page %d", ErrCursorStalled, pageNum)
		}
		cursor = next
	}
}
