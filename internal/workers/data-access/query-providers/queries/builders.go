package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
)

// ProviderQuery defines the structure of a provider search request
type ProviderQuery struct {
	Index       string
	QueryType   string
	Suburb      string
	City        string
	Category    string
	MinRating   float64
	ProviderIDs []string
	Pagination  struct {
		From int
		Size int
	}
}

// BuildQuery builds an Elasticsearch search request based on query type
func BuildQuery(pq ProviderQuery) (*esapi.SearchRequest, error) {
	if pq.Index == "" {
		return nil, ErrMissingIndex
	}

	var queryBody map[string]interface{}

	switch pq.QueryType {
	case "provider_search":
		queryBody = buildProviderSearchQuery(pq)
	case "provider_by_ids":
		queryBody = buildProviderByIDsQuery(pq)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, pq.QueryType)
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{pq.Index},
		Body:  strings.NewReader(string(body)),
		From:  &pq.Pagination.From,
		Size:  &pq.Pagination.Size,
	}

	return &req, nil
}

// buildProviderSearchQuery builds the main candidate pool query. Only
// verified providers are searchable; location clauses are "should" so a
// provider matching either suburb or city qualifies.
func buildProviderSearchQuery(pq ProviderQuery) map[string]interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"verification_status": "verified"},
		},
	}
	shouldClauses := []interface{}{}

	if pq.Suburb != "" {
		shouldClauses = append(shouldClauses, map[string]interface{}{
			"match": map[string]interface{}{"service_areas": pq.Suburb},
		})
	}
	if pq.City != "" {
		shouldClauses = append(shouldClauses, map[string]interface{}{
			"match": map[string]interface{}{"service_areas": pq.City},
		})
	}

	if pq.Category != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"categories": pq.Category},
		})
	}

	if pq.MinRating > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"average_rating": map[string]interface{}{"gte": pq.MinRating},
			},
		})
	}

	boolQuery := map[string]interface{}{
		"filter": filterClauses,
	}
	if len(shouldClauses) > 0 {
		boolQuery["should"] = shouldClauses
		boolQuery["minimum_should_match"] = 1
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}
}

// buildProviderByIDsQuery fetches a fixed set of providers by id
func buildProviderByIDsQuery(pq ProviderQuery) map[string]interface{} {
	if len(pq.ProviderIDs) == 0 {
		return map[string]interface{}{
			"query": map[string]interface{}{
				"match_none": map[string]interface{}{},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"ids": map[string]interface{}{
				"values": pq.ProviderIDs,
			},
		},
	}
}
