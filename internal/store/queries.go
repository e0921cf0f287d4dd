package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/newspulse/newspulse/internal/models"
)

// Search runs a full-text query (already parsed by the search layer)
// combined with conjunctive filters, returning the total hit count and
// one page ordered by publish recency. A zero match scans in pure
// filter mode.
func (s *Store) Search(match Match, q models.SearchQuery) (int64, []models.NewsItem, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	// Fresh chain per finisher; gorm statements are not reusable
	// across Count and Find.
	build := func() *gorm.DB {
		tx := s.db.Model(&Item{})
		if !match.IsZero() {
			if s.ftsEnabled {
				tx = tx.
					Joins("JOIN news_fts ON news_fts.rowid = news_items.id").
					Where("news_fts MATCH ?", match.fts())
			} else {
				// SQLite LIKE case-folds ASCII only, so the degraded
				// path is case-sensitive for Cyrillic terms where FTS5
				// with unicode61 is not.
				for _, term := range match.terms() {
					pattern := "%" + term + "%"
					tx = tx.Where(
						"(news_items.title LIKE ? OR news_items.summary LIKE ? OR news_items.full_text LIKE ?)",
						pattern, pattern, pattern,
					)
				}
			}
		}
		if q.Category != "" {
			tx = tx.Where("news_items.category = ?", q.Category)
		}
		if q.Source != "" {
			tx = tx.Where("news_items.source = ?", q.Source)
		}
		if q.Language != "" {
			tx = tx.Where("news_items.language = ?", q.Language)
		}
		if q.DateFrom != nil {
			tx = tx.Where("news_items.published_at >= ?", *q.DateFrom)
		}
		if q.DateTo != nil {
			tx = tx.Where("news_items.published_at <= ?", *q.DateTo)
		}
		return tx
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("search count failed: %w", err)
	}

	var recs []Item
	if err := build().
		Select("news_items.*").
		Order("news_items.published_at DESC").
		Limit(limit).
		Offset(q.Offset).
		Find(&recs).Error; err != nil {
		return 0, nil, fmt.Errorf("search failed: %w", err)
	}

	items, err := fromRecords(recs)
	return total, items, err
}

// GetRecent returns the newest items, optionally limited to one
// category.
func (s *Store) GetRecent(category string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 20
	}
	q := s.db.Order("published_at DESC").Limit(limit)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var recs []Item
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("recent query failed: %w", err)
	}
	return fromRecords(recs)
}

// GetTopControversial returns the highest-scored items.
func (s *Store) GetTopControversial(limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 10
	}
	var recs []Item
	if err := s.db.Order("score DESC, published_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("controversial query failed: %w", err)
	}
	return fromRecords(recs)
}

// GetTrendingKeywords aggregates keyword frequency over items
// published inside the window.
func (s *Store) GetTrendingKeywords(limit int, window time.Duration) ([]models.KeywordCount, error) {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = 24 * time.Hour
	}

	var rows []string
	cutoff := time.Now().Add(-window)
	if err := s.db.Model(&Item{}).
		Where("published_at >= ?", cutoff).
		Pluck("keywords", &rows).Error; err != nil {
		return nil, fmt.Errorf("trending keywords query failed: %w", err)
	}

	counts := make(map[string]int)
	for _, raw := range rows {
		if raw == "" {
			continue
		}
		var keywords []string
		if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
			continue
		}
		for _, kw := range keywords {
			counts[kw]++
		}
	}

	trending := make([]models.KeywordCount, 0, len(counts))
	for kw, n := range counts {
		trending = append(trending, models.KeywordCount{Keyword: kw, Count: n})
	}
	sort.Slice(trending, func(i, j int) bool {
		if trending[i].Count != trending[j].Count {
			return trending[i].Count > trending[j].Count
		}
		return trending[i].Keyword < trending[j].Keyword
	})
	if len(trending) > limit {
		trending = trending[:limit]
	}
	return trending, nil
}

// GetTrendingTopics aggregates category frequency over items published
// inside the window.
func (s *Store) GetTrendingTopics(limit int, window time.Duration) ([]models.TopicCount, error) {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = 24 * time.Hour
	}

	type row struct {
		Category string
		N        int
	}
	var rows []row
	cutoff := time.Now().Add(-window)
	if err := s.db.Model(&Item{}).
		Select("category, COUNT(*) AS n").
		Where("published_at >= ?", cutoff).
		Group("category").
		Order("n DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("trending topics query failed: %w", err)
	}

	topics := make([]models.TopicCount, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, models.TopicCount{Category: r.Category, Count: r.N})
	}
	return topics, nil
}

// GetStatistics summarizes row counts per category and per controversy
// tier.
func (s *Store) GetStatistics() (models.Statistics, error) {
	stats := models.Statistics{
		ByCategory:              make(map[string]int64),
		ControversyDistribution: make(map[string]int64),
	}

	if err := s.db.Model(&Item{}).Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("statistics query failed: %w", err)
	}

	type bucket struct {
		Key string
		N   int64
	}

	var byCategory []bucket
	if err := s.db.Model(&Item{}).
		Select("category AS key, COUNT(*) AS n").
		Group("category").
		Scan(&byCategory).Error; err != nil {
		return stats, fmt.Errorf("statistics query failed: %w", err)
	}
	for _, b := range byCategory {
		stats.ByCategory[b.Key] = b.N
	}

	var byLabel []bucket
	if err := s.db.Model(&Item{}).
		Select("label AS key, COUNT(*) AS n").
		Group("label").
		Scan(&byLabel).Error; err != nil {
		return stats, fmt.Errorf("statistics query failed: %w", err)
	}
	for _, b := range byLabel {
		stats.ControversyDistribution[b.Key] = b.N
	}

	return stats, nil
}

// GetFilters returns the distinct categories, sources and languages
// currently present, for building filter pickers.
func (s *Store) GetFilters() (models.Filters, error) {
	var f models.Filters
	if err := s.db.Model(&Item{}).Distinct().Order("category").Pluck("category", &f.Categories).Error; err != nil {
		return f, fmt.Errorf("filters query failed: %w", err)
	}
	if err := s.db.Model(&Item{}).Distinct().Order("source").Pluck("source", &f.Sources).Error; err != nil {
		return f, fmt.Errorf("filters query failed: %w", err)
	}
	if err := s.db.Model(&Item{}).Distinct().Order("language").Pluck("language", &f.Languages).Error; err != nil {
		return f, fmt.Errorf("filters query failed: %w", err)
	}
	return f, nil
}

func fromRecords(recs []Item) ([]models.NewsItem, error) {
	items := make([]models.NewsItem, 0, len(recs))
	for _, rec := range recs {
		item, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("decoding row %d failed: %w", rec.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}
