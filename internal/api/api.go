package api

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/pfrederiksen/voebb-loans/internal/calendar"
	"github.com/pfrederiksen/voebb-loans/internal/loan"
	"github.com/pfrederiksen/voebb-loans/internal/logger"
	"github.com/pfrederiksen/voebb-loans/internal/portal"
	"github.com/pfrederiksen/voebb-loans/internal/tracker"
)

// UpdateHook runs after every successful update triggered over HTTP
type UpdateHook func(ctx context.Context, sensor *tracker.Sensor, result *tracker.Result)

// Options configures the router
type Options struct {
	OnUpdate UpdateHook
	Now      func() time.Time
	Logger   *logger.Logger
}

// Handler serves a fixed set of sensors
type Handler struct {
	sensors  []*tracker.Sensor
	byID     map[string]*tracker.Sensor
	onUpdate UpdateHook
	now      func() time.Time
	log      *logger.Logger
}

// NewHandler creates a Handler for the given sensors
func NewHandler(sensors []*tracker.Sensor, opts Options) *Handler {
	h := &Handler{
		sensors:  sensors,
		byID:     make(map[string]*tracker.Sensor, len(sensors)),
		onUpdate: opts.OnUpdate,
		now:      opts.Now,
		log:      opts.Logger,
	}
	for _, s := range sensors {
		h.byID[tracker.UniqueID(s.Username())] = s
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.log == nil {
		h.log = logger.Default()
	}
	return h
}

// New returns a gin engine with all routes registered
func New(sensors []*tracker.Sensor, opts Options) *gin.Engine {
	h := NewHandler(sensors, opts)

	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	router.GET("/health", h.health)
	h.RegisterRoutes(router.Group("/api"))
	return router
}

// RegisterRoutes registers the sensor and metrics routes on rg
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sensors", h.list)
	rg.GET("/sensors/:id", h.get)
	rg.POST("/sensors/:id/update", h.update)
	rg.GET("/sensors/:id/calendar.ics", h.calendar)
	rg.GET("/metrics", h.metrics)
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Debug("HTTP request", logger.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sensors": len(h.sensors)})
}

func (h *Handler) list(c *gin.Context) {
	views := make([]tracker.View, 0, len(h.sensors))
	for _, s := range h.sensors {
		views = append(views, s.View())
	}
	c.JSON(http.StatusOK, gin.H{"total": len(views), "sensors": views})
}

func (h *Handler) get(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}

	v := s.View()
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		v.Attributes.Items = FilterItems(v.Attributes.Items, q)
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) update(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	result, err := s.Update(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   portal.Kind(err),
			"message": err.Error(),
		})
		return
	}

	if h.onUpdate != nil && result.Fetched {
		h.onUpdate(ctx, s, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":  result.RunID,
		"fetched": result.Fetched,
		"sensor":  s.View(),
	})
}

func (h *Handler) calendar(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}

	ics := calendar.GenerateICS(s.Username(), s.FetchState().Items, h.now())
	c.Header("Content-Disposition", `inline; filename="`+tracker.UniqueID(s.Username())+`.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

func (h *Handler) metrics(c *gin.Context) {
	c.JSON(http.StatusOK, logger.GetMetricsSnapshot())
}

func (h *Handler) lookup(c *gin.Context) (*tracker.Sensor, bool) {
	id := strings.TrimPrefix(c.Param("id"), "sensor.")
	s, ok := h.byID[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return s, true
}

// FilterItems returns the items whose title or author fuzzy-matches q, best match
// first. Ties keep the due-date order of items.
func FilterItems(items []loan.Item, q string) []loan.Item {
	targets := make([]string, len(items))
	for i, item := range items {
		targets[i] = item.Title + " " + item.Author
	}

	ranks := fuzzy.RankFindFold(q, targets)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	matched := make([]loan.Item, 0, len(ranks))
	for _, r := range ranks {
		matched = append(matched, items[r.OriginalIndex])
	}
	return matched
}
