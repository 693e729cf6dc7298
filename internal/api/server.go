// Package api exposes the HTTP control surface: status, event history,
// background reset, and the live tick stream.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"zonewatch/internal/events"
	"zonewatch/internal/pipeline"
	"zonewatch/internal/ws"
)

// Monitor is the part of the detection loop the API talks to.
type Monitor interface {
	Status() pipeline.Status
	Reset()
}

// EventLister serves historical events. Nil disables /api/events.
type EventLister interface {
	List(kind events.Kind, since *time.Time, limit int) ([]events.Record, error)
}

// Server wires the control endpoints onto a gin engine.
type Server struct {
	monitor Monitor
	store   EventLister
	hub     *ws.Hub
}

// NewServer creates the API server.
func NewServer(monitor Monitor, store EventLister, hub *ws.Hub) *Server {
	return &Server{monitor: monitor, store: store, hub: hub}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	api := r.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/events", s.handleEvents)
	api.POST("/reset", s.handleReset)
	if s.hub != nil {
		api.GET("/live", gin.WrapH(ws.NewHandler(s.hub)))
	}

	return r
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.Status())
}

func (s *Server) handleEvents(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event store not configured"})
		return
	}

	kind := events.Kind(c.Query("kind"))

	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		since = &t
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := s.store.List(kind, since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": records, "count": len(records)})
}

func (s *Server) handleReset(c *gin.Context) {
	s.monitor.Reset()
	c.JSON(http.StatusAccepted, gin.H{"status": "reset requested"})
}
