package catalog

import "github.com/Sternrassler/shopify-catalog-client/pkg/pagination"

// Collection is a normalized collection record.
type Collection struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Title  string `json:"title"`
}

// Product is a normalized product record.
type Product struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Vendor      string `json:"vendor"`
	ProductType string `json:"productType"`
}

// Response shapes. Pointers mark keys that may be absent.

type collectionsData struct {
	Collections *pagination.Connection[Collection] `json:"collections"`
}

type collectionProductsData struct {
	Collections *pagination.Connection[collectionWithProducts] `json:"collections"`
}

type collectionWithProducts struct {
	ID       string                             `json:"id"`
	Products *pagination.Connection[productRef] `json:"products"`
}

type productRef struct {
	ID                     string `json:"id"`
	PublishedOnPublication *bool  `json:"publishedOnPublication"`
}

type productData struct {
	Product *Product `json:"product"`
}

// products returns the nested product connection of the single matched
// collection, or nil when the response does not have that shape.
func (d *collectionProductsData) products() *pagination.Connection[productRef] {
	if d == nil || d.Collections == nil || len(d.Collections.Edges) != 1 {
		return nil
	}
	node := d.Collections.Edges[0].Node
	if node == nil {
		return nil
	}
	return node.Products
}
