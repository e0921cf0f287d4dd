package search

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newspulse/newspulse/internal/models"
	"github.com/newspulse/newspulse/internal/store"
	"github.com/newspulse/newspulse/internal/utils"
)

// ErrValidation marks malformed queries and filters. Surfaced to the
// caller, never retried.
var ErrValidation = errors.New("invalid search query")

// TrendingWindow is the recency window for trending aggregations.
const TrendingWindow = 24 * time.Hour

// Service is the query layer over the store.
type Service struct {
	store *store.Store
}

func New(st *store.Store) *Service {
	return &Service{store: st}
}

// BuildMatch turns a user query into a structured match. A quoted
// phrase ("a b") passes through as an exact phrase; an unquoted
// multi-token string is tokenized, lower-cased, and every token is
// required, in any order. Empty input means pure filter mode.
func BuildMatch(query string) store.Match {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return store.Match{}
	}

	if len(trimmed) >= 2 && strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) {
		// Callers rely on literal phrase matching for disambiguation.
		phrase := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		if phrase == "" {
			return store.Match{}
		}
		return store.Match{Phrase: phrase}
	}

	return store.Match{Tokens: utils.Tokenize(trimmed)}
}

// Search validates the query, builds the match expression and returns
// one result page with the total hit count.
func (s *Service) Search(q models.SearchQuery) (models.SearchResult, error) {
	if err := validate(q); err != nil {
		return models.SearchResult{}, err
	}

	total, items, err := s.store.Search(BuildMatch(q.Query), q)
	if err != nil {
		return models.SearchResult{}, err
	}
	if items == nil {
		items = []models.NewsItem{}
	}
	return models.SearchResult{Total: total, Results: items}, nil
}

// GetFilters returns the distinct filter values currently in the
// store.
func (s *Service) GetFilters() (models.Filters, error) {
	return s.store.GetFilters()
}

// GetTrendingKeywords aggregates keyword frequency over the trending
// window.
func (s *Service) GetTrendingKeywords(limit int) ([]models.KeywordCount, error) {
	return s.store.GetTrendingKeywords(limit, TrendingWindow)
}

// GetTrendingTopics aggregates category frequency over the trending
// window.
func (s *Service) GetTrendingTopics(limit int) ([]models.TopicCount, error) {
	return s.store.GetTrendingTopics(limit, TrendingWindow)
}

func validate(q models.SearchQuery) error {
	// Zero means "use the default page size" downstream.
	if q.Limit < 0 || q.Limit > 100 {
		return fmt.Errorf("%w: limit must be between 0 and 100", ErrValidation)
	}
	if q.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrValidation)
	}
	if q.Category != "" && !models.Category(q.Category).Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, q.Category)
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateFrom.After(*q.DateTo) {
		return fmt.Errorf("%w: date_from is after date_to", ErrValidation)
	}
	return nil
}
