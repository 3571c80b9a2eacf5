package ecommerce

import "encoding/json"

// ProductGIDPrefix prefixes Admin API product identifiers
const ProductGIDPrefix = "gid://shopify/Product/"

const readMetafieldsQuery = `query ProductMetafields($id: ID!, $namespace: String!) {
  product(id: $id) {
    id
    metafields(first: 50, namespace: $namespace) {
      nodes { key value type }
    }
  }
}`

const metafieldsSetMutation = `mutation MetafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { key namespace value }
    userErrors { field message code }
  }
}`

// GraphQLRequest is the body of an Admin GraphQL call
type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQLError is a top-level GraphQL error
type GraphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLResponse is the envelope of every Admin GraphQL response
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// IsSuccess returns true if the response carries no top-level errors
func (r *GraphQLResponse) IsSuccess() bool {
	return len(r.Errors) == 0
}

// FirstError returns the first top-level error message
func (r *GraphQLResponse) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// ShopifyMetafield is a metafield node
type ShopifyMetafield struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace,omitempty"`
	Value     string `json:"value"`
	Type      string `json:"type,omitempty"`
}

// ShopifyProductMetafieldsData is the data of readMetafieldsQuery
type ShopifyProductMetafieldsData struct {
	Product *struct {
		ID         string `json:"id"`
		Metafields struct {
			Nodes []ShopifyMetafield `json:"nodes"`
		} `json:"metafields"`
	} `json:"product"`
}

// ShopifyMetafieldsSetInput is one entry of the metafieldsSet mutation
type ShopifyMetafieldsSetInput struct {
	OwnerID   string `json:"ownerId"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// ShopifyUserError is a field-level validation failure
type ShopifyUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}

// ShopifyMetafieldsSetData is the data of metafieldsSetMutation
type ShopifyMetafieldsSetData struct {
	MetafieldsSet *struct {
		Metafields []ShopifyMetafield `json:"metafields"`
		UserErrors []ShopifyUserError `json:"userErrors"`
	} `json:"metafieldsSet"`
}
