package models

import "time"

// SourceGroup identifies a group of source adapters that can be enabled
// or disabled together on a fetch request.
type SourceGroup string

const (
	GroupWorld    SourceGroup = "world"
	GroupBusiness SourceGroup = "business"
	GroupTech     SourceGroup = "tech"
	GroupRegional SourceGroup = "regional"
)

// RawItem is what a source adapter yields before categorization and
// scoring. Field values come from untrusted feeds and may be empty;
// Extra carries payload fields of unknown dynamic type.
type RawItem struct {
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Description string         `json:"description,omitempty"`
	FullText    string         `json:"full_text,omitempty"`
	URL         string         `json:"url"`
	Source      string         `json:"source"`
	Language    string         `json:"language,omitempty"`
	PublishedAt time.Time      `json:"published_at"`
	Extra       map[string]any `json:"-"`
}
