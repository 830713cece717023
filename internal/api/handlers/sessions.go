package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/bhandras/replbox/internal/api/view"
	"github.com/bhandras/replbox/internal/session"
	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

// qrSize is the edge length of share QR codes in pixels.
const qrSize = 256

// PresetResponse describes one catalog entry.
type PresetResponse struct {
	Name    string   `json:"name"`
	Files   []string `json:"files"`
	Default bool     `json:"default"`
}

// CreateSessionRequest represents the request to create a session
type CreateSessionRequest struct {
	Fragment string `json:"fragment"`
	Preset   string `json:"preset"`
}

// ListPresets handles GET /v1/presets
func (h *SessionHandler) ListPresets(c *gin.Context) {
	catalog := h.manager.Catalog()
	defaultName := catalog.Default().Name

	presets := make([]PresetResponse, 0, len(catalog.Names()))
	for _, name := range catalog.Names() {
		p, _ := catalog.Get(name)
		files := p.Files()
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name)
		}
		presets = append(presets, PresetResponse{Name: name, Files: names, Default: name == defaultName})
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

// CreateSession handles POST /v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	st, err := h.manager.Create(c.Request.Context(), session.CreateRequest{
		Fragment: req.Fragment,
		Preset:   req.Preset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": h.view(st)})
}

// GetSession handles GET /v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	st := h.store(c)
	if st == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.view(st)})
}

// GetFragment handles GET /v1/sessions/:id/fragment
func (h *SessionHandler) GetFragment(c *gin.Context) {
	st := h.store(c)
	if st == nil {
		return
	}
	frag := st.Snapshot().Fragment
	c.JSON(http.StatusOK, gin.H{
		"fragment": frag,
		"shareUrl": view.ShareURL(h.publicURL, frag),
	})
}

// GetShareQR handles GET /v1/sessions/:id/share.png
func (h *SessionHandler) GetShareQR(c *gin.Context) {
	st := h.store(c)
	if st == nil {
		return
	}
	url := view.ShareURL(h.publicURL, st.Snapshot().Fragment)
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		// Fragments of large sessions exceed QR capacity.
		_ = c.Error(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "session too large for a QR code", "shareUrl": url})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
