package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/newspulse/newspulse/internal/models"
)

// Source is one external feed the aggregator pulls from. Adapters
// return at most limit items; the aggregator never asks for more.
type Source interface {
	Name() string
	Group() models.SourceGroup
	Fetch(ctx context.Context, limit int) ([]models.RawItem, error)
}

// RSSSource reads an RSS/Atom feed.
type RSSSource struct {
	name     string
	group    models.SourceGroup
	url      string
	language string
	parser   *gofeed.Parser
}

func NewRSSSource(name string, group models.SourceGroup, url, language string) *RSSSource {
	return &RSSSource{
		name:     name,
		group:    group,
		url:      url,
		language: language,
		parser:   gofeed.NewParser(),
	}
}

func (s *RSSSource) Name() string              { return s.name }
func (s *RSSSource) Group() models.SourceGroup { return s.group }

func (s *RSSSource) Fetch(ctx context.Context, limit int) ([]models.RawItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed from %s: %w", s.url, err)
	}

	items := make([]models.RawItem, 0, limit)
	for _, fi := range feed.Items {
		if len(items) >= limit {
			break
		}
		if fi.Link == "" {
			continue
		}
		published := time.Now()
		if fi.PublishedParsed != nil {
			published = *fi.PublishedParsed
		}
		items = append(items, models.RawItem{
			Title:       fi.Title,
			Summary:     fi.Description,
			FullText:    fi.Content,
			URL:         fi.Link,
			Source:      s.name,
			Language:    s.language,
			PublishedAt: published,
		})
	}
	return items, nil
}

// JSONSource reads an HTTP endpoint returning a JSON item array.
type JSONSource struct {
	name     string
	group    models.SourceGroup
	url      string
	language string
	client   *resty.Client
}

func NewJSONSource(name string, group models.SourceGroup, url, language string) *JSONSource {
	return &JSONSource{
		name:     name,
		group:    group,
		url:      url,
		language: language,
		client: resty.New().
			SetRetryCount(2).
			SetRetryWaitTime(1 * time.Second).
			SetRetryMaxWaitTime(5 * time.Second),
	}
}

func (s *JSONSource) Name() string              { return s.name }
func (s *JSONSource) Group() models.SourceGroup { return s.group }

func (s *JSONSource) Fetch(ctx context.Context, limit int) ([]models.RawItem, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed from %s: %w", s.url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), s.url)
	}

	var raw []map[string]any
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		// Some endpoints serve a single object instead of an array.
		var single map[string]any
		if singleErr := json.Unmarshal(resp.Body(), &single); singleErr != nil {
			return nil, fmt.Errorf("failed to parse feed response from %s: %w", s.url, err)
		}
		raw = []map[string]any{single}
	}

	items := make([]models.RawItem, 0, limit)
	for _, m := range raw {
		if len(items) >= limit {
			break
		}
		item := models.RawItem{
			Source:   s.name,
			Language: s.language,
			Extra:    m,
		}
		if v, ok := m["title"].(string); ok {
			item.Title = v
		}
		if v, ok := m["summary"].(string); ok {
			item.Summary = v
		}
		if v, ok := m["description"].(string); ok {
			item.Description = v
		}
		if v, ok := m["url"].(string); ok {
			item.URL = v
		}
		if v, ok := m["published_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				item.PublishedAt = t
			}
		}
		if item.PublishedAt.IsZero() {
			item.PublishedAt = time.Now()
		}
		if item.URL == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// DefaultSources is the built-in source roster grouped the way fetch
// requests enable them.
func DefaultSources() []Source {
	return []Source{
		NewRSSSource("bbc", models.GroupWorld, "https://feeds.bbci.co.uk/news/rss.xml", "en"),
		NewRSSSource("reuters", models.GroupWorld, "https://www.reutersagency.com/feed/", "en"),
		NewRSSSource("lenta", models.GroupRegional, "https://lenta.ru/rss/news", "ru"),
		NewRSSSource("kommersant", models.GroupRegional, "https://www.kommersant.ru/RSS/news.xml", "ru"),
		NewRSSSource("cnbc", models.GroupBusiness, "https://www.cnbc.com/id/100003114/device/rss/rss.html", "en"),
		NewRSSSource("techcrunch", models.GroupTech, "https://techcrunch.com/feed/", "en"),
	}
}
