package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/newspulse/newspulse/internal/aggregator"
	"github.com/newspulse/newspulse/internal/cache"
	"github.com/newspulse/newspulse/internal/config"
	"github.com/newspulse/newspulse/internal/logger"
	"github.com/newspulse/newspulse/internal/middleware"
	"github.com/newspulse/newspulse/internal/models"
	"github.com/newspulse/newspulse/internal/search"
	"github.com/newspulse/newspulse/internal/store"
)

type Handlers struct {
	config     *config.Config
	cache      *cache.Service
	store      *store.Store
	search     *search.Service
	aggregator *aggregator.Aggregator
	validator  *middleware.Validator
}

func NewHandlers(cfg *config.Config, cacheSvc *cache.Service, st *store.Store, agg *aggregator.Aggregator) *Handlers {
	return &Handlers{
		config:     cfg,
		cache:      cacheSvc,
		store:      st,
		search:     search.New(st),
		aggregator: agg,
		validator:  middleware.NewValidator(),
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// GetFeed handles GET /api/v1/feed, serving recent items filtered by
// category/language/source through the cache.
func (h *Handlers) GetFeed(c *fiber.Ctx) error {
	category := c.Query("category")
	language := c.Query("language")
	source := c.Query("source")
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	key := cache.MakeKey("feed", nil, map[string]any{
		"category": category,
		"language": language,
		"source":   source,
		"limit":    limit,
	})

	var result models.SearchResult
	if h.cache.Get(c.Context(), key, &result) {
		return c.JSON(result)
	}

	result, err := h.search.Search(models.SearchQuery{
		Category: category,
		Language: language,
		Source:   source,
		Limit:    limit,
	})
	if err != nil {
		return h.queryError(c, err)
	}

	h.cache.Set(c.Context(), key, result, h.config.CacheTTL)
	return c.JSON(result)
}

// FetchRequest is the body of POST /api/v1/admin/fetch.
type FetchRequest struct {
	World          bool `json:"world"`
	Business       bool `json:"business"`
	Tech           bool `json:"tech"`
	Regional       bool `json:"regional"`
	MaxPerSource   int  `json:"max_per_source" validate:"omitempty,min=1,max=100"`
	MaxWorkers     int  `json:"max_workers" validate:"omitempty,min=1,max=32"`
	TimeoutSeconds int  `json:"timeout_seconds" validate:"omitempty,min=1,max=300"`
}

// FetchFeeds handles POST /api/v1/admin/fetch: aggregate, enrich,
// persist, and invalidate the feed cache.
func (h *Handlers) FetchFeeds(c *fiber.Ctx) error {
	var req FetchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": middleware.FieldErrors(err),
		})
	}

	groups := map[models.SourceGroup]bool{
		models.GroupWorld:    req.World,
		models.GroupBusiness: req.Business,
		models.GroupTech:     req.Tech,
		models.GroupRegional: req.Regional,
	}
	if !req.World && !req.Business && !req.Tech && !req.Regional {
		groups = nil // nothing requested means everything
	}

	opts := aggregator.Options{
		Groups:        groups,
		MaxPerSource:  req.MaxPerSource,
		MaxWorkers:    req.MaxWorkers,
		SourceTimeout: h.config.SourceTimeout,
		Timeout:       h.config.FetchTimeout,
	}
	if req.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	items := h.aggregator.FetchScored(c.Context(), opts)

	inserted, err := h.store.BulkInsert(items, true, store.RetentionPolicy{
		MaxAge:  time.Duration(h.config.RetentionDays) * 24 * time.Hour,
		MaxRows: h.config.MaxRows,
	})
	if err != nil {
		logger.Get().Error().Err(err).Msg("Persisting fetched items failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to persist fetched items",
		})
	}

	// Stored rows changed, cached feed pages are stale.
	h.cache.DeletePattern(c.Context(), "feed:*")

	return c.JSON(fiber.Map{
		"fetched":  len(items),
		"inserted": inserted,
		"items":    items,
	})
}

// Search handles GET /api/v1/search
func (h *Handlers) Search(c *fiber.Ctx) error {
	var q models.SearchQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid query parameters: " + err.Error(),
		})
	}
	for _, p := range []struct {
		name string
		dest **time.Time
	}{
		{"date_from", &q.DateFrom},
		{"date_to", &q.DateTo},
	} {
		if v := c.Query(p.name); v != "" {
			parsed, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid " + p.name + ", expected RFC3339",
				})
			}
			*p.dest = &parsed
		}
	}
	if err := h.validator.Validate(q); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": middleware.FieldErrors(err),
		})
	}

	result, err := h.search.Search(q)
	if err != nil {
		return h.queryError(c, err)
	}
	return c.JSON(result)
}

// GetFilters handles GET /api/v1/filters
func (h *Handlers) GetFilters(c *fiber.Ctx) error {
	filters, err := h.search.GetFilters()
	if err != nil {
		return h.queryError(c, err)
	}
	return c.JSON(filters)
}

// GetTrending handles GET /api/v1/trending
func (h *Handlers) GetTrending(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	keywords, err := h.search.GetTrendingKeywords(limit)
	if err != nil {
		return h.queryError(c, err)
	}
	topics, err := h.search.GetTrendingTopics(limit)
	if err != nil {
		return h.queryError(c, err)
	}

	return c.JSON(fiber.Map{
		"keywords": keywords,
		"topics":   topics,
	})
}

// GetStats handles GET /api/v1/stats
func (h *Handlers) GetStats(c *fiber.Ctx) error {
	stats, err := h.store.GetStatistics()
	if err != nil {
		return h.queryError(c, err)
	}
	return c.JSON(fiber.Map{
		"store": stats,
		"cache": h.cache.Stats(c.Context()),
	})
}

// ClearCache handles DELETE /api/v1/admin/cache
func (h *Handlers) ClearCache(c *fiber.Ctx) error {
	h.cache.Clear(c.Context())
	return c.JSON(fiber.Map{"status": "cleared"})
}

// Cleanup handles POST /api/v1/admin/cleanup
func (h *Handlers) Cleanup(c *fiber.Ctx) error {
	evicted, err := h.store.Cleanup(c.Context(), store.RetentionPolicy{
		MaxAge:  time.Duration(h.config.RetentionDays) * 24 * time.Hour,
		MaxRows: h.config.MaxRows,
	})
	if err != nil {
		logger.Get().Error().Err(err).Msg("Cleanup failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Cleanup failed",
		})
	}
	return c.JSON(fiber.Map{"evicted": evicted})
}

func (h *Handlers) queryError(c *fiber.Ctx, err error) error {
	if errors.Is(err, search.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	logger.Get().Error().Err(err).Str("path", c.Path()).Msg("Query failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Query failed",
	})
}
