package search

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newspulse/newspulse/internal/logger"
	"github.com/newspulse/newspulse/internal/models"
	"github.com/newspulse/newspulse/internal/store"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Config{Level: "error", Output: "stderr"})
	os.Exit(m.Run())
}

func testService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	return New(st)
}

func seed(t *testing.T, svc *Service, items ...models.NewsItem) {
	t.Helper()
	if _, err := svc.store.BulkInsert(items, false, store.RetentionPolicy{}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
}

func item(url, title, summary string) models.NewsItem {
	return models.NewsItem{
		Title:       title,
		Summary:     summary,
		URL:         url,
		Source:      "wire",
		Category:    models.CategoryGeneral,
		Language:    "en",
		PublishedAt: time.Now(),
	}
}

func TestBuildMatch(t *testing.T) {
	tests := []struct {
		query      string
		wantPhrase string
		wantTokens []string
	}{
		{"", "", nil},
		{"   ", "", nil},
		{`"artificial intelligence"`, "artificial intelligence", nil},
		{"artificial intelligence", "", []string{"artificial", "intelligence"}},
		{"Mixed CASE Tokens", "", []string{"mixed", "case", "tokens"}},
		{`""`, "", nil},
	}

	for _, tt := range tests {
		m := BuildMatch(tt.query)
		if m.Phrase != tt.wantPhrase {
			t.Errorf("BuildMatch(%q).Phrase = %q, want %q", tt.query, m.Phrase, tt.wantPhrase)
		}
		if len(m.Tokens) != len(tt.wantTokens) {
			t.Errorf("BuildMatch(%q).Tokens = %v, want %v", tt.query, m.Tokens, tt.wantTokens)
			continue
		}
		for i := range m.Tokens {
			if m.Tokens[i] != tt.wantTokens[i] {
				t.Errorf("BuildMatch(%q).Tokens = %v, want %v", tt.query, m.Tokens, tt.wantTokens)
				break
			}
		}
	}
}

func TestSearchPhraseVersusTokens(t *testing.T) {
	svc := testService(t)
	seed(t, svc,
		item("https://example.com/1", "artificial intelligence lab opens", ""),
		item("https://example.com/2", "intelligence report calls tools artificial", ""),
		item("https://example.com/3", "gardening club meets", ""),
	)

	// Exact-phrase query matches only the literal phrase.
	res, err := svc.Search(models.SearchQuery{Query: `"artificial intelligence"`})
	if err != nil {
		t.Fatalf("phrase search: %v", err)
	}
	if res.Total != 1 || res.Results[0].URL != "https://example.com/1" {
		t.Errorf("phrase search: total=%d results=%+v", res.Total, res.Results)
	}

	// Token query matches both tokens in any order.
	res, err = svc.Search(models.SearchQuery{Query: "artificial intelligence"})
	if err != nil {
		t.Fatalf("token search: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("token search: total=%d, want 2", res.Total)
	}
}

func TestSearchEmptyQueryFilterMode(t *testing.T) {
	svc := testService(t)
	legal := item("https://example.com/legal", "verdict delivered", "")
	legal.Category = models.CategoryLegal
	other := item("https://example.com/other", "something else", "")
	seed(t, svc, legal, other)

	res, err := svc.Search(models.SearchQuery{Query: "", Category: "legal"})
	if err != nil {
		t.Fatalf("filter search: %v", err)
	}
	if res.Total != 1 || res.Results[0].URL != "https://example.com/legal" {
		t.Errorf("expected exactly the legal item, got %+v", res)
	}

	res, err = svc.Search(models.SearchQuery{})
	if err != nil {
		t.Fatalf("match-all search: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("empty query should match all rows, got total=%d", res.Total)
	}
}

func TestSearchConjunctiveFilters(t *testing.T) {
	svc := testService(t)
	a := item("https://example.com/a", "market report", "")
	a.Category = models.CategoryBusiness
	a.Language = "en"
	b := item("https://example.com/b", "market report", "")
	b.Category = models.CategoryBusiness
	b.Language = "ru"
	seed(t, svc, a, b)

	res, err := svc.Search(models.SearchQuery{Query: "market", Category: "business", Language: "ru"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 || res.Results[0].Language != "ru" {
		t.Errorf("filters must combine conjunctively, got %+v", res)
	}
}

func TestSearchPagination(t *testing.T) {
	svc := testService(t)
	items := make([]models.NewsItem, 5)
	for i := range items {
		it := item(
			"https://example.com/p"+string(rune('0'+i)),
			"paged story",
			"",
		)
		it.PublishedAt = time.Now().Add(-time.Duration(i) * time.Minute)
		items[i] = it
	}
	seed(t, svc, items...)

	first, err := svc.Search(models.SearchQuery{Query: "paged", Limit: 2})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	second, err := svc.Search(models.SearchQuery{Query: "paged", Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}

	if first.Total != 5 || second.Total != 5 {
		t.Errorf("total should be page-independent, got %d and %d", first.Total, second.Total)
	}
	if len(first.Results) != 2 || len(second.Results) != 2 {
		t.Fatalf("expected 2 results per page, got %d and %d", len(first.Results), len(second.Results))
	}
	if first.Results[0].URL == second.Results[0].URL {
		t.Error("pages must not overlap")
	}
}

func TestSearchDateRange(t *testing.T) {
	svc := testService(t)
	old := item("https://example.com/old", "range story", "")
	old.PublishedAt = time.Now().Add(-48 * time.Hour)
	fresh := item("https://example.com/fresh", "range story", "")
	seed(t, svc, old, fresh)

	from := time.Now().Add(-24 * time.Hour)
	res, err := svc.Search(models.SearchQuery{Query: "range", DateFrom: &from})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 || res.Results[0].URL != "https://example.com/fresh" {
		t.Errorf("date filter broken: %+v", res)
	}
}

func TestSearchValidation(t *testing.T) {
	svc := testService(t)

	cases := []models.SearchQuery{
		{Limit: 500},
		{Offset: -1},
		{Category: "astrology"},
	}
	for _, q := range cases {
		if _, err := svc.Search(q); !errors.Is(err, ErrValidation) {
			t.Errorf("query %+v: expected ErrValidation, got %v", q, err)
		}
	}

	from := time.Now()
	to := from.Add(-time.Hour)
	if _, err := svc.Search(models.SearchQuery{DateFrom: &from, DateTo: &to}); !errors.Is(err, ErrValidation) {
		t.Error("inverted date range must fail validation")
	}

	// Zero limit is valid and takes the default page size.
	if _, err := svc.Search(models.SearchQuery{Limit: 0}); err != nil {
		t.Errorf("zero limit should pass validation, got %v", err)
	}
}

func TestGetFiltersAndTrending(t *testing.T) {
	svc := testService(t)
	a := item("https://example.com/a", "story one", "")
	a.Category = models.CategoryTech
	a.Keywords = []string{"chips"}
	b := item("https://example.com/b", "story two", "")
	b.Category = models.CategoryTech
	b.Keywords = []string{"chips", "fabs"}
	seed(t, svc, a, b)

	filters, err := svc.GetFilters()
	if err != nil {
		t.Fatalf("filters: %v", err)
	}
	if len(filters.Categories) != 1 || filters.Categories[0] != "tech" {
		t.Errorf("unexpected categories: %v", filters.Categories)
	}

	keywords, err := svc.GetTrendingKeywords(5)
	if err != nil {
		t.Fatalf("trending keywords: %v", err)
	}
	if len(keywords) == 0 || keywords[0].Keyword != "chips" || keywords[0].Count != 2 {
		t.Errorf("unexpected trending keywords: %+v", keywords)
	}

	topics, err := svc.GetTrendingTopics(5)
	if err != nil {
		t.Fatalf("trending topics: %v", err)
	}
	if len(topics) != 1 || topics[0].Category != "tech" || topics[0].Count != 2 {
		t.Errorf("unexpected trending topics: %+v", topics)
	}
}
