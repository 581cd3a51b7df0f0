package queries

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, body io.Reader) map[string]interface{} {
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&decoded))
	return decoded
}

func TestBuildQuery_ProviderSearch(t *testing.T) {
	pq := ProviderQuery{
		Index:     "providers",
		QueryType: "provider_search",
		Suburb:    "Claremont",
		City:      "Cape Town",
		Category:  "plumbing",
		MinRating: 4.0,
	}
	pq.Pagination.From = 0
	pq.Pagination.Size = 20

	req, err := BuildQuery(pq)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, []string{"providers"}, req.Index)

	body := decodeBody(t, req.Body)
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})

	filters := boolQuery["filter"].([]interface{})
	assert.Len(t, filters, 3) // verified status, category, min rating

	should := boolQuery["should"].([]interface{})
	assert.Len(t, should, 2) // suburb and city
	assert.Equal(t, float64(1), boolQuery["minimum_should_match"])
}

func TestBuildQuery_ProviderSearchNoLocation(t *testing.T) {
	pq := ProviderQuery{
		Index:     "providers",
		QueryType: "provider_search",
	}

	req, err := BuildQuery(pq)
	require.NoError(t, err)

	body := decodeBody(t, req.Body)
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})

	// Only the verified-status filter, no should block at all.
	assert.Len(t, boolQuery["filter"].([]interface{}), 1)
	assert.NotContains(t, boolQuery, "should")
	assert.NotContains(t, boolQuery, "minimum_should_match")
}

func TestBuildQuery_ProviderByIDs(t *testing.T) {
	pq := ProviderQuery{
		Index:       "providers",
		QueryType:   "provider_by_ids",
		ProviderIDs: []string{"p1", "p2"},
	}

	req, err := BuildQuery(pq)
	require.NoError(t, err)

	body := decodeBody(t, req.Body)
	ids := body["query"].(map[string]interface{})["ids"].(map[string]interface{})
	assert.Equal(t, []interface{}{"p1", "p2"}, ids["values"])
}

func TestBuildQuery_ProviderByIDsEmpty(t *testing.T) {
	pq := ProviderQuery{
		Index:     "providers",
		QueryType: "provider_by_ids",
	}

	req, err := BuildQuery(pq)
	require.NoError(t, err)

	body := decodeBody(t, req.Body)
	assert.Contains(t, body["query"].(map[string]interface{}), "match_none")
}

func TestBuildQuery_Errors(t *testing.T) {
	_, err := BuildQuery(ProviderQuery{QueryType: "provider_search"})
	assert.ErrorIs(t, err, ErrMissingIndex)

	_, err = BuildQuery(ProviderQuery{Index: "providers", QueryType: "nope"})
	assert.ErrorIs(t, err, ErrUnknownQueryType)
}
