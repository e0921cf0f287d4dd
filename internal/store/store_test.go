package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newspulse/newspulse/internal/logger"
	"github.com/newspulse/newspulse/internal/models"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Config{Level: "error", Output: "stderr"})
	os.Exit(m.Run())
}

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	return st
}

func sampleItem(url, title string) models.NewsItem {
	return models.NewsItem{
		Title:       title,
		Summary:     "summary for " + title,
		URL:         url,
		Source:      "wire",
		Category:    models.CategoryGeneral,
		Language:    "en",
		PublishedAt: time.Now(),
		Keywords:    []string{"sample"},
		Score:       10,
		Label:       "mild",
		Breakdown:   map[string]float64{"charged_keywords": 10},
	}
}

func TestAddAndRead(t *testing.T) {
	st := testStore(t)

	id, err := st.Add(sampleItem("https://example.com/a", "First item"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a row id")
	}

	items, err := st.GetRecent("", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	got := items[0]
	if got.Title != "First item" || got.Score != 10 || got.Label != "mild" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if len(got.Keywords) != 1 || got.Keywords[0] != "sample" {
		t.Errorf("keywords not preserved: %v", got.Keywords)
	}
	if got.Breakdown["charged_keywords"] != 10 {
		t.Errorf("breakdown not preserved: %v", got.Breakdown)
	}
}

func TestAddDedupByURL(t *testing.T) {
	st := testStore(t)

	first, err := st.Add(sampleItem("https://example.com/a", "Original title"))
	if err != nil {
		t.Fatalf("first add: %v", err)
	}

	updated := sampleItem("https://example.com/a", "Updated title")
	updated.Score = 55
	updated.Label = "hot"
	second, err := st.Add(updated)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if first != second {
		t.Errorf("upsert produced a new row: id %d then %d", first, second)
	}

	items, err := st.GetRecent("", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 row after re-ingesting the same URL, got %d", len(items))
	}
	if items[0].Title != "Updated title" || items[0].Score != 55 {
		t.Errorf("re-ingestion did not update the row: %+v", items[0])
	}
}

func TestBulkInsertNewCount(t *testing.T) {
	st := testStore(t)

	seed := []models.NewsItem{
		sampleItem("https://example.com/1", "one"),
		sampleItem("https://example.com/2", "two"),
	}
	n, err := st.BulkInsert(seed, false, RetentionPolicy{})
	if err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 new rows, got %d", n)
	}

	// 4 items, 2 duplicate URLs: only 2 genuinely new.
	batch := []models.NewsItem{
		sampleItem("https://example.com/1", "one again"),
		sampleItem("https://example.com/3", "three"),
		sampleItem("https://example.com/2", "two again"),
		sampleItem("https://example.com/4", "four"),
	}
	n, err = st.BulkInsert(batch, false, RetentionPolicy{})
	if err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 new rows from batch with 2 duplicates, got %d", n)
	}

	stats, err := st.GetStatistics()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("expected 4 rows total, got %d", stats.Total)
	}
}

func TestBulkInsertDuplicatesWithinBatch(t *testing.T) {
	st := testStore(t)

	batch := []models.NewsItem{
		sampleItem("https://example.com/x", "first write"),
		sampleItem("https://example.com/x", "second write"),
		sampleItem("https://example.com/y", "other"),
	}
	n, err := st.BulkInsert(batch, false, RetentionPolicy{})
	if err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 new rows for 3 items with 1 in-batch duplicate, got %d", n)
	}
}

func TestGetStatistics(t *testing.T) {
	st := testStore(t)

	tech := sampleItem("https://example.com/t", "tech item")
	tech.Category = models.CategoryTech
	tech.Language = "en"
	politics := sampleItem("https://example.com/p", "politics item")
	politics.Category = models.CategoryPolitics
	politics.Language = "ru"
	politics.Score = 80
	politics.Label = "explosive"
	legal := sampleItem("https://example.com/l", "legal item")
	legal.Category = models.CategoryLegal
	legal.Language = "ru"

	if _, err := st.BulkInsert([]models.NewsItem{tech, politics, legal}, false, RetentionPolicy{}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stats, err := st.GetStatistics()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	for _, category := range []string{"tech", "politics", "legal"} {
		if stats.ByCategory[category] != 1 {
			t.Errorf("by_category[%s] = %d, want 1", category, stats.ByCategory[category])
		}
	}
	if stats.ControversyDistribution["mild"] != 2 || stats.ControversyDistribution["explosive"] != 1 {
		t.Errorf("unexpected controversy distribution: %v", stats.ControversyDistribution)
	}

	// Pure filter mode returns exactly the legal item.
	total, results, err := st.Search(Match{}, models.SearchQuery{Category: "legal"})
	if err != nil {
		t.Fatalf("filter search: %v", err)
	}
	if total != 1 || len(results) != 1 || results[0].URL != "https://example.com/l" {
		t.Errorf("expected exactly the legal item, got total=%d results=%+v", total, results)
	}
}

func TestGetRecentOrderingAndFilter(t *testing.T) {
	st := testStore(t)

	old := sampleItem("https://example.com/old", "older")
	old.PublishedAt = time.Now().Add(-2 * time.Hour)
	fresh := sampleItem("https://example.com/new", "newer")
	fresh.PublishedAt = time.Now()
	techItem := sampleItem("https://example.com/tech", "tech one")
	techItem.Category = models.CategoryTech

	if _, err := st.BulkInsert([]models.NewsItem{old, fresh, techItem}, false, RetentionPolicy{}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	items, err := st.GetRecent("", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].PublishedAt.Before(items[1].PublishedAt) {
		t.Error("recent items not ordered newest first")
	}

	items, err = st.GetRecent("tech", 10)
	if err != nil {
		t.Fatalf("recent tech: %v", err)
	}
	if len(items) != 1 || items[0].Category != models.CategoryTech {
		t.Errorf("category filter broken: %+v", items)
	}
}

func TestGetTopControversial(t *testing.T) {
	st := testStore(t)

	for i, score := range []int{15, 90, 45} {
		item := sampleItem(
			"https://example.com/"+string(rune('a'+i)),
			"item",
		)
		item.Score = score
		if _, err := st.Add(item); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	items, err := st.GetTopControversial(2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(items) != 2 || items[0].Score != 90 || items[1].Score != 45 {
		t.Errorf("expected scores [90 45], got %+v", items)
	}
}

func TestGetTrendingKeywords(t *testing.T) {
	st := testStore(t)

	a := sampleItem("https://example.com/a", "a")
	a.Keywords = []string{"sanctions", "economy"}
	b := sampleItem("https://example.com/b", "b")
	b.Keywords = []string{"sanctions"}
	stale := sampleItem("https://example.com/c", "c")
	stale.Keywords = []string{"forgotten"}
	stale.PublishedAt = time.Now().Add(-72 * time.Hour)

	if _, err := st.BulkInsert([]models.NewsItem{a, b, stale}, false, RetentionPolicy{}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	trending, err := st.GetTrendingKeywords(5, 24*time.Hour)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(trending) != 2 {
		t.Fatalf("expected 2 keywords inside the window, got %+v", trending)
	}
	if trending[0].Keyword != "sanctions" || trending[0].Count != 2 {
		t.Errorf("expected sanctions first with count 2, got %+v", trending[0])
	}
	for _, kw := range trending {
		if kw.Keyword == "forgotten" {
			t.Error("keyword outside the window must not trend")
		}
	}
}

func TestGetFilters(t *testing.T) {
	st := testStore(t)

	a := sampleItem("https://example.com/a", "a")
	a.Category = models.CategoryTech
	a.Source = "bbc"
	a.Language = "en"
	b := sampleItem("https://example.com/b", "b")
	b.Category = models.CategoryLegal
	b.Source = "lenta"
	b.Language = "ru"

	if _, err := st.BulkInsert([]models.NewsItem{a, b}, false, RetentionPolicy{}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	f, err := st.GetFilters()
	if err != nil {
		t.Fatalf("filters: %v", err)
	}
	if len(f.Categories) != 2 || len(f.Sources) != 2 || len(f.Languages) != 2 {
		t.Errorf("unexpected filters: %+v", f)
	}
}

type fakeArchiver struct {
	items []models.NewsItem
}

func (f *fakeArchiver) ArchiveItems(_ context.Context, items []models.NewsItem) error {
	f.items = append(f.items, items...)
	return nil
}

func TestCleanupEvictsOldRows(t *testing.T) {
	st := testStore(t)
	arch := &fakeArchiver{}
	st.SetArchiver(arch)

	fresh := sampleItem("https://example.com/fresh", "fresh")
	stale := sampleItem("https://example.com/stale", "stale")
	stale.PublishedAt = time.Now().Add(-40 * 24 * time.Hour)

	if _, err := st.BulkInsert([]models.NewsItem{fresh, stale}, false, RetentionPolicy{}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	evicted, err := st.Cleanup(context.Background(), RetentionPolicy{MaxAge: 30 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if evicted != 1 {
		t.Errorf("expected 1 evicted row, got %d", evicted)
	}
	if len(arch.items) != 1 || arch.items[0].URL != "https://example.com/stale" {
		t.Errorf("archiver did not receive the evicted row: %+v", arch.items)
	}

	items, err := st.GetRecent("", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(items) != 1 || items[0].URL != "https://example.com/fresh" {
		t.Errorf("expected only the fresh row to survive, got %+v", items)
	}
}

func TestCleanupMaxRows(t *testing.T) {
	st := testStore(t)

	for i := 0; i < 5; i++ {
		item := sampleItem(
			"https://example.com/"+string(rune('a'+i)),
			"item",
		)
		item.PublishedAt = time.Now().Add(-time.Duration(i) * time.Hour)
		if _, err := st.Add(item); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	evicted, err := st.Cleanup(context.Background(), RetentionPolicy{MaxRows: 3})
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if evicted != 2 {
		t.Errorf("expected 2 evicted rows, got %d", evicted)
	}

	stats, err := st.GetStatistics()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("expected 3 surviving rows, got %d", stats.Total)
	}
}
