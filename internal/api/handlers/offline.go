package handlers

import (
	"mime"
	"net/http"
	"path"

	"github.com/bhandras/replbox/internal/offline"
	"github.com/gin-gonic/gin"
)

// OfflineHandler serves build snapshots from the offline cache.
type OfflineHandler struct {
	worker *offline.Worker
}

// NewOfflineHandler returns a handler over worker.
func NewOfflineHandler(worker *offline.Worker) *OfflineHandler {
	return &OfflineHandler{worker: worker}
}

// ServeFile handles GET /offline/:id/*path
func (h *OfflineHandler) ServeFile(c *gin.Context) {
	p := c.Param("path")
	if h.worker == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "offline cache disabled"})
		return
	}
	if p == "" || p == "/" {
		c.JSON(http.StatusOK, gin.H{"paths": h.worker.Paths(c.Param("id"))})
		return
	}
	content, ok := h.worker.File(c.Param("id"), p)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not cached"})
		return
	}
	contentType := mime.TypeByExtension(path.Ext(p))
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, []byte(content))
}
