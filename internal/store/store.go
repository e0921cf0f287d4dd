package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/newspulse/newspulse/internal/logger"
	"github.com/newspulse/newspulse/internal/models"
)

// ErrPersist marks disk or index write failures. These surface to the
// caller; silent data loss is not acceptable.
var ErrPersist = errors.New("store persist failed")

// Item is the persisted row. Keywords and Breakdown are stored as
// JSON text columns; the FTS index shadows title, summary and
// full_text via triggers.
type Item struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string
	Summary     string
	FullText    string
	URL         string `gorm:"uniqueIndex"`
	Source      string `gorm:"index"`
	Category    string `gorm:"index"`
	Language    string
	PublishedAt time.Time `gorm:"index"`
	Keywords    string
	Score       int
	Label       string
	Breakdown   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Item) TableName() string { return "news_items" }

// RetentionPolicy bounds what Cleanup keeps.
type RetentionPolicy struct {
	MaxAge  time.Duration
	MaxRows int
}

// Archiver receives evicted rows before they are deleted. Optional.
type Archiver interface {
	ArchiveItems(ctx context.Context, items []models.NewsItem) error
}

// Store is the deduplicated, full-text-indexed item repository.
type Store struct {
	db         *gorm.DB
	archiver   Archiver
	ftsEnabled bool
}

// Open opens (creating if needed) the SQLite database at path and
// migrates the schema, including the FTS5 shadow table and the
// triggers that keep it consistent with the row data. FTS5 requires
// building with -tags sqlite_fts5; without it the store degrades to
// LIKE-based matching with identical query semantics.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Item{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	fts, err := migrateFTS(db)
	if err != nil {
		return nil, err
	}
	if !fts {
		logger.Get().Warn().Msg("FTS5 unavailable, full-text search falls back to LIKE matching")
	}

	return &Store{db: db, ftsEnabled: fts}, nil
}

// SetArchiver attaches an archiver consulted during cleanup.
func (s *Store) SetArchiver(a Archiver) {
	s.archiver = a
}

// migrateFTS creates the external-content FTS5 table and the triggers
// that mirror every insert, update and delete into it. The triggers
// run in the same transaction as the row change, so the index never
// serves stale reads.
func migrateFTS(db *gorm.DB) (bool, error) {
	if err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS news_fts USING fts5(
		title, summary, full_text,
		content='news_items', content_rowid='id'
	)`).Error; err != nil {
		// SQLite compiled without the FTS5 module.
		return false, nil
	}

	stmts := []string{
		`CREATE TRIGGER IF NOT EXISTS news_items_ai AFTER INSERT ON news_items BEGIN
			INSERT INTO news_fts(rowid, title, summary, full_text)
			VALUES (new.id, new.title, new.summary, new.full_text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS news_items_ad AFTER DELETE ON news_items BEGIN
			INSERT INTO news_fts(news_fts, rowid, title, summary, full_text)
			VALUES ('delete', old.id, old.title, old.summary, old.full_text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS news_items_au AFTER UPDATE ON news_items BEGIN
			INSERT INTO news_fts(news_fts, rowid, title, summary, full_text)
			VALUES ('delete', old.id, old.title, old.summary, old.full_text);
			INSERT INTO news_fts(rowid, title, summary, full_text)
			VALUES (new.id, new.title, new.summary, new.full_text);
		END`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return false, fmt.Errorf("failed to create FTS index: %w", err)
		}
	}
	return true, nil
}

// Add persists one item, upserting on the URL dedup key. Re-ingesting
// a known URL updates the existing row in place, including re-scoring.
func (s *Store) Add(item models.NewsItem) (uint, error) {
	rec, err := toRecord(item)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns(updateColumns()),
	}).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	// The upsert path does not report the surviving row id.
	var existing Item
	if err := s.db.Select("id").Where("url = ?", rec.URL).First(&existing).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return existing.ID, nil
}

// BulkInsert persists items in one transaction and returns the number
// of genuinely new rows; duplicate URLs update existing rows without
// counting. With autoCleanup the retention pass runs afterwards,
// best-effort.
func (s *Store) BulkInsert(items []models.NewsItem, autoCleanup bool, policy RetentionPolicy) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	urls := make([]string, 0, len(items))
	for _, it := range items {
		urls = append(urls, it.URL)
	}

	inserted := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing []string
		if err := tx.Model(&Item{}).Where("url IN ?", urls).Pluck("url", &existing).Error; err != nil {
			return err
		}
		known := make(map[string]bool, len(existing))
		for _, u := range existing {
			known[u] = true
		}

		for _, it := range items {
			rec, err := toRecord(it)
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "url"}},
				DoUpdates: clause.AssignmentColumns(updateColumns()),
			}).Create(&rec).Error; err != nil {
				return err
			}
			if !known[it.URL] {
				inserted++
				known[it.URL] = true
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	if autoCleanup {
		if _, err := s.Cleanup(context.Background(), policy); err != nil {
			logger.Get().Warn().Err(err).Msg("Post-insert cleanup failed")
		}
	}
	return inserted, nil
}

// Cleanup evicts rows beyond the retention policy and returns the
// eviction count. Evicted rows go to the archiver first when one is
// attached; archive failures are logged, not returned, since cleanup
// is housekeeping rather than correctness.
func (s *Store) Cleanup(ctx context.Context, policy RetentionPolicy) (int, error) {
	var victims []Item

	if policy.MaxAge > 0 {
		cutoff := time.Now().Add(-policy.MaxAge)
		var aged []Item
		if err := s.db.Where("published_at < ?", cutoff).Find(&aged).Error; err != nil {
			return 0, fmt.Errorf("%w: %v", ErrPersist, err)
		}
		victims = append(victims, aged...)
	}

	if policy.MaxRows > 0 {
		var total int64
		if err := s.db.Model(&Item{}).Count(&total).Error; err != nil {
			return 0, fmt.Errorf("%w: %v", ErrPersist, err)
		}
		if excess := int(total) - len(victims) - policy.MaxRows; excess > 0 {
			ids := make([]uint, 0, len(victims))
			for _, v := range victims {
				ids = append(ids, v.ID)
			}
			q := s.db.Order("published_at ASC").Limit(excess)
			if len(ids) > 0 {
				q = q.Where("id NOT IN ?", ids)
			}
			var oldest []Item
			if err := q.Find(&oldest).Error; err != nil {
				return 0, fmt.Errorf("%w: %v", ErrPersist, err)
			}
			victims = append(victims, oldest...)
		}
	}

	if len(victims) == 0 {
		return 0, nil
	}

	if s.archiver != nil {
		archived := make([]models.NewsItem, 0, len(victims))
		for _, v := range victims {
			if item, err := fromRecord(v); err == nil {
				archived = append(archived, item)
			}
		}
		if err := s.archiver.ArchiveItems(ctx, archived); err != nil {
			logger.Get().Warn().Err(err).Int("items", len(archived)).Msg("Archiving evicted rows failed")
		}
	}

	ids := make([]uint, 0, len(victims))
	for _, v := range victims {
		ids = append(ids, v.ID)
	}
	if err := s.db.Delete(&Item{}, ids).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	logger.Get().Info().Int("evicted", len(ids)).Msg("Retention cleanup done")
	return len(ids), nil
}

func updateColumns() []string {
	return []string{
		"title", "summary", "full_text", "source", "category", "language",
		"published_at", "keywords", "score", "label", "breakdown", "updated_at",
	}
}

func toRecord(item models.NewsItem) (Item, error) {
	keywords, err := json.Marshal(item.Keywords)
	if err != nil {
		return Item{}, err
	}
	breakdown, err := json.Marshal(item.Breakdown)
	if err != nil {
		return Item{}, err
	}
	language := item.Language
	if language == "" {
		language = models.LanguageUnknown
	}
	category := item.Category
	if !category.Valid() {
		category = models.CategoryGeneral
	}
	return Item{
		ID:          item.ID,
		Title:       item.Title,
		Summary:     item.Summary,
		FullText:    item.FullText,
		URL:         item.URL,
		Source:      item.Source,
		Category:    string(category),
		Language:    language,
		PublishedAt: item.PublishedAt,
		Keywords:    string(keywords),
		Score:       item.Score,
		Label:       item.Label,
		Breakdown:   string(breakdown),
	}, nil
}

func fromRecord(rec Item) (models.NewsItem, error) {
	var keywords []string
	if rec.Keywords != "" {
		if err := json.Unmarshal([]byte(rec.Keywords), &keywords); err != nil {
			return models.NewsItem{}, err
		}
	}
	var breakdown map[string]float64
	if rec.Breakdown != "" {
		if err := json.Unmarshal([]byte(rec.Breakdown), &breakdown); err != nil {
			return models.NewsItem{}, err
		}
	}
	return models.NewsItem{
		ID:          rec.ID,
		Title:       rec.Title,
		Summary:     rec.Summary,
		FullText:    rec.FullText,
		URL:         rec.URL,
		Source:      rec.Source,
		Category:    models.Category(rec.Category),
		Language:    rec.Language,
		PublishedAt: rec.PublishedAt,
		Keywords:    keywords,
		Score:       rec.Score,
		Label:       rec.Label,
		Breakdown:   breakdown,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}
