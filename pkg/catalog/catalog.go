// Package catalog fetches collections and products from the Shopify GraphQL
// Admin API and flattens the nested connection responses into plain lists of
// local IDs and records.
//
// Each resource kind pairs a fixed query template with an extractor for its
// response shape; pagination, retry and throttling are shared.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/shopify-catalog-client/pkg/client"
	"github.com/Sternrassler/shopify-catalog-client/pkg/gid"
	"github.com/Sternrassler/shopify-catalog-client/pkg/logging"
	"github.com/Sternrassler/shopify-catalog-client/pkg/pagination"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when a single-record lookup yields null.
	ErrNotFound = errors.New("resource not found")

	// ErrNoPublication is returned when no publication ID is given or configured.
	ErrNoPublication = errors.New("publication id is required")
)

// Resource names used for logs, metrics and request labels.
const (
	ResourceCollections         = "collections"
	ResourceCollectionProducts  = "collection-products"
	ResourcePublicationProducts = "publication-products"
	ResourceProduct             = "product"
)

// maxPageSize is the largest "first" argument the Admin API accepts.
const maxPageSize = 250

// Config holds per-resource settings.
type Config struct {
	CollectionPageSize  int
	ProductPageSize     int
	PublicationPageSize int

	// TargetPublicationID is used by PublicationProducts when no ID is passed.
	TargetPublicationID string

	// StrictShape surfaces pagination.ErrShapeMismatch instead of returning
	// the items gathered so far.
	StrictShape bool

	// MaxPages bounds every walk. Zero means no limit.
	MaxPages int
}

// DefaultConfig returns the default page sizes.
func DefaultConfig() Config {
	return Config{
		CollectionPageSize:  50,
		ProductPageSize:     20,
		PublicationPageSize: 20,
	}
}

// Validate checks page sizes.
func (c Config) Validate() error {
	sizes := map[string]int{
		"collection_page_size":  c.CollectionPageSize,
		"product_page_size":     c.ProductPageSize,
		"publication_page_size": c.PublicationPageSize,
	}
	for name, size := range sizes {
		if size < 1 || size > maxPageSize {
			return fmt.Errorf("%s must be within [1, %d] (got %d)", name, maxPageSize, size)
		}
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max_pages must be >= 0 (got %d)", c.MaxPages)
	}
	return nil
}

// Requester sends a raw GraphQL query. *client.Client implements it.
type Requester interface {
	Send(ctx context.Context, query string) (*client.Response, error)
}

// Fetcher retrieves catalog resources.
type Fetcher struct {
	requester Requester
	config    Config
	logger    zerolog.Logger
}

// New creates a fetcher.
func New(requester Requester, cfg Config) (*Fetcher, error) {
	if requester == nil {
		return nil, fmt.Errorf("requester is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Fetcher{
		requester: requester,
		config:    cfg,
		logger:    logging.NewLogger("catalog"),
	}, nil
}

// Collections returns every collection in the shop.
func (f *Fetcher) Collections(ctx context.Context) ([]Collection, error) {
	return pagination.Walk(ctx, f.walkOptions(ResourceCollections),
		func(ctx context.Context, cursor string) (*collectionsData, error) {
			return query[collectionsData](ctx, f.requester, ResourceCollections,
				collectionsQuery(f.config.CollectionPageSize, cursor))
		},
		func(d *collectionsData) (pagination.Page[Collection], error) {
			if d == nil {
				return pagination.Page[Collection]{}, pagination.ErrShapeMismatch
			}
			return pagination.FromConnection(d.Collections, func(c Collection) (Collection, bool) {
				c.ID = gid.LocalID(c.ID)
				return c, true
			})
		})
}

// CollectionProducts returns the local IDs of all products in a collection,
// in the collection's default sort order.
func (f *Fetcher) CollectionProducts(ctx context.Context, collectionID string) ([]string, error) {
	collectionID = gid.LocalID(collectionID)
	if collectionID == "" {
		return nil, fmt.Errorf("collection id is required")
	}

	ids, err := pagination.Walk(ctx, f.walkOptions(ResourceCollectionProducts),
		func(ctx context.Context, cursor string) (*collectionProductsData, error) {
			return query[collectionProductsData](ctx, f.requester, ResourceCollectionProducts,
				collectionProductsQuery(collectionID, f.config.ProductPageSize, cursor))
		},
		func(d *collectionProductsData) (pagination.Page[string], error) {
			return pagination.FromConnection(d.products(), func(p productRef) (string, bool) {
				return gid.LocalID(p.ID), true
			})
		})

	f.logger.Debug().
		Str("collection_id", collectionID).
		Int("products", len(ids)).
		Msg("Found products for collection")
	return ids, err
}

// PublicationProducts returns the local IDs of the products in a collection
// that are published on the given publication. An empty publicationID falls
// back to Config.TargetPublicationID.
func (f *Fetcher) PublicationProducts(ctx context.Context, collectionID, publicationID string) ([]string, error) {
	collectionID = gid.LocalID(collectionID)
	if collectionID == "" {
		return nil, fmt.Errorf("collection id is required")
	}
	if publicationID == "" {
		publicationID = f.config.TargetPublicationID
	}
	if publicationID == "" {
		return nil, ErrNoPublication
	}
	publicationGID := gid.Build(gid.KindPublication, publicationID)

	ids, err := pagination.Walk(ctx, f.walkOptions(ResourcePublicationProducts),
		func(ctx context.Context, cursor string) (*collectionProductsData, error) {
			return query[collectionProductsData](ctx, f.requester, ResourcePublicationProducts,
				publicationProductsQuery(collectionID, publicationGID, f.config.PublicationPageSize, cursor))
		},
		func(d *collectionProductsData) (pagination.Page[string], error) {
			return pagination.FromConnection(d.products(), func(p productRef) (string, bool) {
				return gid.LocalID(p.ID), p.PublishedOnPublication != nil && *p.PublishedOnPublication
			})
		})

	f.logger.Debug().
		Str("collection_id", collectionID).
		Str("publication_id", gid.LocalID(publicationGID)).
		Int("products", len(ids)).
		Msg("Found published products for collection")
	return ids, err
}

// Product returns a single product. A null product yields ErrNotFound.
func (f *Fetcher) Product(ctx context.Context, productID string) (*Product, error) {
	if gid.LocalID(productID) == "" {
		return nil, fmt.Errorf("product id is required")
	}

	d, err := query[productData](ctx, f.requester, ResourceProduct,
		productQuery(gid.Build(gid.KindProduct, productID)))
	if err != nil {
		return nil, err
	}
	if d == nil || d.Product == nil {
		return nil, fmt.Errorf("product %s: %w", gid.LocalID(productID), ErrNotFound)
	}

	p := *d.Product
	p.ID = gid.LocalID(p.ID)
	return &p, nil
}

func (f *Fetcher) walkOptions(resource string) pagination.Options {
	logger := f.logger
	return pagination.Options{
		Resource: resource,
		Strict:   f.config.StrictShape,
		MaxPages: f.config.MaxPages,
		Logger:   &logger,
	}
}

// query sends q and decodes data into D. A response without data returns
// (nil, nil) so the caller's shape check decides, unless it only carries
// GraphQL errors, which are returned as the error.
func query[D any](ctx context.Context, requester Requester, resource, q string) (*D, error) {
	resp, err := requester.Send(client.WithOperation(ctx, resource), q)
	if err != nil {
		return nil, err
	}
	if !resp.HasData() {
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("%s query: %w", resource, resp.Errors)
		}
		return nil, nil
	}

	var data D
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", resource, err)
	}
	return &data, nil
}
