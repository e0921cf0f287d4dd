package models

import "time"

// SearchQuery describes one search call. Constructed per call, never
// persisted. A quoted query string ("a b") is matched as an exact
// phrase; an unquoted multi-token string requires every token.
type SearchQuery struct {
	Query    string     `json:"query" query:"q"`
	Category string     `json:"category,omitempty" query:"category"`
	Source   string     `json:"source,omitempty" query:"source"`
	Language string     `json:"language,omitempty" query:"language"`
	DateFrom *time.Time `json:"date_from,omitempty" query:"-"`
	DateTo   *time.Time `json:"date_to,omitempty" query:"-"`
	Limit    int        `json:"limit" query:"limit" validate:"omitempty,min=1,max=100"`
	Offset   int        `json:"offset" query:"offset" validate:"omitempty,min=0"`
}

// SearchResult is the paginated outcome of one search call.
type SearchResult struct {
	Total   int64      `json:"total"`
	Results []NewsItem `json:"results"`
}

// Filters lists the distinct values currently present in the store,
// for building UI filter pickers.
type Filters struct {
	Categories []string `json:"categories"`
	Sources    []string `json:"sources"`
	Languages  []string `json:"languages"`
}

// KeywordCount is one entry of a trending-keyword aggregation.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// TopicCount is one entry of a trending-topic (category) aggregation.
type TopicCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Statistics summarizes the store contents.
type Statistics struct {
	Total                   int64            `json:"total"`
	ByCategory              map[string]int64 `json:"by_category"`
	ControversyDistribution map[string]int64 `json:"controversy_distribution"`
}
