// Package main (cmd/duskserver) is a thin, explicitly non-core REST
// adapter demonstrating the §6 network surface the engine exposes at its
// interface boundary: plain store operations plus the replication-
// inbound and heartbeat endpoints a follower must serve. The real REST/
// WebSocket server is an out-of-scope collaborator per spec §1; this is
// a minimal demo of the seam, not a reimplementation of that service.
//
// Grounded on ppriyankuu-godkv/internal/api/handlers.go's Handler struct
// + Register(*gin.Engine) shape (one Handler holding its dependencies,
// route groups for public vs. internal traffic).
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/duskdb"
	"github.com/kartikbazzad/duskdb/query"
	"github.com/kartikbazzad/duskdb/replication"
)

// Handler wires the embedded engine (and an optional replica controller,
// when this process runs in replica role) to HTTP routes.
type Handler struct {
	db      *duskdb.Database
	replica *replication.Replica // nil unless running in replica role
}

// NewHandler builds a Handler over db. replica may be nil (primary role
// or no replication configured).
func NewHandler(db *duskdb.Database, replica *replication.Replica) *Handler {
	return &Handler{db: db, replica: replica}
}

// Register mounts every route on r (spec §6 "Network surface").
func (h *Handler) Register(r *gin.Engine) {
	kv := r.Group("/kv")
	kv.GET("/:key", h.Get)
	kv.PUT("/:key", h.Set)
	kv.DELETE("/:key", h.Delete)

	r.GET("/query", h.Where)
	r.GET("/stats", h.Stats)

	// Internal endpoints used only by a primary talking to this process
	// in replica role (spec §6 "POST a single encoded op object; 2xx
	// acknowledges receipt and application; any other status is treated
	// as failure").
	internal := r.Group("/_replication")
	internal.POST("/apply", h.ReplicationApply)
	internal.POST("/ping", h.ReplicationPing)
}

// Set handles PUT /kv/:key. Body: a raw JSON value.
func (h *Handler) Set(c *gin.Context) {
	key := c.Param("key")
	var value interface{}
	if err := c.ShouldBindJSON(&value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.db.Set(key, value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key})
}

// Get handles GET /kv/:key.
func (h *Handler) Get(c *gin.Context) {
	key := c.Param("key")
	value, ok := h.db.Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// Delete handles DELETE /kv/:key.
func (h *Handler) Delete(c *gin.Context) {
	key := c.Param("key")
	deleted, err := h.db.Delete(key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "deleted": true})
}

// Where handles GET /query?field=age&op=$gte&value=25, demonstrating the
// §4.4 where(field, op, value) query surface over HTTP.
func (h *Handler) Where(c *gin.Context) {
	field := c.Query("field")
	op := c.Query("op")
	raw := c.Query("value")
	if field == "" || op == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field and op are required"})
		return
	}
	result := h.db.Where(field, query.Operator(op), raw)
	c.JSON(http.StatusOK, gin.H{"results": result.All()})
}

// Stats handles GET /stats (spec §6 Stats surface).
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.db.Stats())
}

// ReplicationApply handles POST /_replication/apply: a primary's
// broadcast of a single mutation (spec §6 wire format
// "{op, key, value?, ts, nodeId}").
func (h *Handler) ReplicationApply(c *gin.Context) {
	if h.replica == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not running in replica role"})
		return
	}
	var op replication.Op
	if err := c.ShouldBindJSON(&op); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.replica.ApplyOp(op); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ReplicationPing handles POST /_replication/ping: a primary's heartbeat.
func (h *Handler) ReplicationPing(c *gin.Context) {
	if h.replica == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not running in replica role"})
		return
	}
	c.Status(http.StatusNoContent)
}
