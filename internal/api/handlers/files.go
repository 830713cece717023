package handlers

import (
	"fmt"
	"net/http"

	"github.com/bhandras/replbox/internal/session"
	"github.com/bhandras/replbox/internal/vfs"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/gin-gonic/gin"
)

// UpdateFileRequest changes one file. Absent fields are left alone. A rename
// is applied first; later fields address the file by its new name.
type UpdateFileRequest struct {
	Name    string  `json:"name" binding:"required"`
	NewName *string `json:"newName"`
	Content *string `json:"content"`
	IsEntry *bool   `json:"isEntry"`
}

// SelectPresetRequest names a catalog preset.
type SelectPresetRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateOptionsRequest is a partial BuildOptions update.
type UpdateOptionsRequest struct {
	Minify       *bool   `json:"minify"`
	ScopeHoist   *bool   `json:"scopeHoist"`
	SourceMaps   *bool   `json:"sourceMaps"`
	ContentHash  *bool   `json:"contentHash"`
	Environment  *string `json:"environment"`
	Platform     *string `json:"platform"`
	PublicURL    *string `json:"publicUrl"`
	Global       *string `json:"global"`
	Browserslist *string `json:"browserslist"`
}

// Apply overlays the set fields of r onto opts.
func (r UpdateOptionsRequest) Apply(opts types.BuildOptions) types.BuildOptions {
	if r.Minify != nil {
		opts.Minify = *r.Minify
	}
	if r.ScopeHoist != nil {
		opts.ScopeHoist = *r.ScopeHoist
	}
	if r.SourceMaps != nil {
		opts.SourceMaps = *r.SourceMaps
	}
	if r.ContentHash != nil {
		opts.ContentHash = *r.ContentHash
	}
	if r.Environment != nil {
		opts.Environment = *r.Environment
	}
	if r.Platform != nil {
		opts.Platform = types.Platform(*r.Platform)
	}
	if r.PublicURL != nil {
		opts.PublicURL = *r.PublicURL
	}
	if r.Global != nil {
		opts.Global = *r.Global
	}
	if r.Browserslist != nil {
		opts.Browserslist = *r.Browserslist
	}
	return opts
}

// AddFile handles POST /v1/sessions/:id/files
func (h *SessionHandler) AddFile(c *gin.Context) {
	st := h.store(c)
	if st == nil {
		return
	}
	name, err := st.AddFile(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": name, "session": h.view(st)})
}

// UpdateFile handles PATCH /v1/sessions/:id/files
func (h *SessionHandler) UpdateFile(c *gin.Context) {
	var req UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := h.store(c)
	if st == nil {
		return
	}
	outcome, err := st.UpdateFile(c.Request.Context(), req.Name, session.FileUpdate{
		NewName: req.NewName,
		Content: req.Content,
		IsEntry: req.IsEntry,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if outcome == vfs.RenameRejected {
		c.JSON(http.StatusConflict, gin.H{
			"error":   fmt.Sprintf("a file named %q already exists", *req.NewName),
			"outcome": outcome.String(),
			"session": h.view(st),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.view(st)})
}

// RemoveFile handles DELETE /v1/sessions/:id/files?name=
func (h *SessionHandler) RemoveFile(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		badRequest(c, fmt.Errorf("name query parameter is required"))
		return
	}
	st := h.store(c)
	if st == nil {
		return
	}
	if err := st.RemoveFile(c.Request.Context(), name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.view(st)})
}

// SelectPreset handles PUT /v1/sessions/:id/preset
func (h *SessionHandler) SelectPreset(c *gin.Context) {
	var req SelectPresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := h.store(c)
	if st == nil {
		return
	}
	if err := st.SelectPreset(c.Request.Context(), req.Name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.view(st)})
}

// UpdateOptions handles PATCH /v1/sessions/:id/options
func (h *SessionHandler) UpdateOptions(c *gin.Context) {
	var req UpdateOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := h.store(c)
	if st == nil {
		return
	}
	if err := st.PatchOptions(c.Request.Context(), req.Apply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": h.view(st)})
}
