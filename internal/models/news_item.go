package models

import "time"

// Category is one of the fixed set of content categories.
type Category string

const (
	CategoryLegal    Category = "legal"
	CategoryConflict Category = "conflict"
	CategoryBusiness Category = "business"
	CategoryTech     Category = "tech"
	CategoryScience  Category = "science"
	CategorySociety  Category = "society"
	CategoryPolitics Category = "politics"
	CategoryGeneral  Category = "general"
)

// AllCategories returns the closed category set in priority order.
// Earlier categories win when an item matches several keyword sets.
func AllCategories() []Category {
	return []Category{
		CategoryLegal,
		CategoryConflict,
		CategoryBusiness,
		CategoryTech,
		CategoryScience,
		CategorySociety,
		CategoryPolitics,
		CategoryGeneral,
	}
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// LanguageUnknown is stored when detection finds no usable letters.
// Language is never empty in storage.
const LanguageUnknown = "unknown"

// NewsItem represents a scored and categorized item ready for persistence.
// Immutable after persist except for re-scoring on re-ingestion of the
// same URL, which updates the existing row.
type NewsItem struct {
	ID          uint               `json:"id,omitempty"`
	Title       string             `json:"title"`
	Summary     string             `json:"summary"`
	FullText    string             `json:"full_text,omitempty"`
	URL         string             `json:"url"`
	Source      string             `json:"source"`
	Category    Category           `json:"category"`
	Language    string             `json:"language"`
	PublishedAt time.Time          `json:"published_at"`
	Keywords    []string           `json:"keywords"`
	Score       int                `json:"score"`
	Label       string             `json:"label"`
	Breakdown   map[string]float64 `json:"breakdown"`
	CreatedAt   time.Time          `json:"created_at,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at,omitempty"`
}
