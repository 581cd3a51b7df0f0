// internal/workers/data-access/query-providers/models.go
package queryproviders

type Input struct {
	QueryType   string     `json:"queryType"`
	Suburb      string     `json:"suburb,omitempty"`
	City        string     `json:"city,omitempty"`
	Category    string     `json:"category,omitempty"`
	MinRating   float64    `json:"minRating,omitempty"`
	ProviderIDs []string   `json:"providerIds,omitempty"`
	Pagination  Pagination `json:"pagination"`
}

type Pagination struct {
	From int `json:"from"`
	Size int `json:"size"`
}

type Output struct {
	Data      []map[string]interface{} `json:"data"`
	TotalHits int64                    `json:"totalHits"`
	// Source reports which store served the query, "elasticsearch" or
	// "postgres" when the search cluster was unreachable.
	Source string `json:"source"`
	Took   int64  `json:"took"` // milliseconds
}
