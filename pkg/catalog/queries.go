package catalog

import (
	"encoding/json"
	"fmt"
)

// graphQLString quotes s as a GraphQL string literal. JSON string syntax is a
// subset of GraphQL's, so json.Marshal produces a valid literal.
func graphQLString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// afterArg renders the after argument, or nothing for the first page.
func afterArg(cursor string) string {
	if cursor == "" {
		return ""
	}
	return ", after: " + graphQLString(cursor)
}

func collectionsQuery(first int, cursor string) string {
	return fmt.Sprintf(`
    {
      collections(first: %d%s) {
        pageInfo {
          hasNextPage
        }
        edges {
          cursor
          node {
            id
            handle
            title
          }
        }
      }
    }
  `, first, afterArg(cursor))
}

func collectionProductsQuery(collectionID string, first int, cursor string) string {
	return fmt.Sprintf(`
    {
      collections(first: 1, query: %s) {
        pageInfo {
          hasNextPage
        }
        edges {
          node {
            id
            products(first: %d, sortKey: COLLECTION_DEFAULT%s) {
              pageInfo {
                hasNextPage
              }
              edges {
                cursor
                node {
                  id
                }
              }
            }
          }
        }
      }
    }
  `, graphQLString("id:"+collectionID), first, afterArg(cursor))
}

func publicationProductsQuery(collectionID, publicationGID string, first int, cursor string) string {
	return fmt.Sprintf(`
    {
      collections(first: 1, query: %s) {
        pageInfo {
          hasNextPage
        }
        edges {
          node {
            id
            products(first: %d, sortKey: COLLECTION_DEFAULT%s) {
              pageInfo {
                hasNextPage
              }
              edges {
                cursor
                node {
                  id
                  publishedOnPublication(publicationId: %s)
                }
              }
            }
          }
        }
      }
    }
  `, graphQLString("id:"+collectionID), first, afterArg(cursor), graphQLString(publicationGID))
}

func productQuery(productGID string) string {
	return fmt.Sprintf(`
    {
      product(id: %s) {
        id
        handle
        title
        status
        vendor
        productType
      }
    }
  `, graphQLString(productGID))
}
