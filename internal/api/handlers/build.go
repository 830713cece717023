package handlers

import (
	"net/http"
	"strconv"

	"github.com/bhandras/replbox/internal/shortcut"
	"github.com/gin-gonic/gin"
)

// RunBuild handles POST /v1/sessions/:id/build
//
// The build runs in the background and the response is 202. With ?wait=true
// the request blocks until the build resolves and returns 200.
func (h *SessionHandler) RunBuild(c *gin.Context) {
	st := h.store(c)
	if st == nil {
		return
	}
	ctx := c.Request.Context()

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		if _, err := st.Build(ctx); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": h.view(st)})
		return
	}

	if err := st.RunBuild(ctx); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session": h.view(st)})
}

// HandleKey handles POST /v1/sessions/:id/keys
func (h *SessionHandler) HandleKey(c *gin.Context) {
	var ev shortcut.KeyEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		badRequest(c, err)
		return
	}
	if ev.Platform == "" {
		ev.Platform = c.GetHeader("Sec-CH-UA-Platform")
	}
	st := h.store(c)
	if st == nil {
		return
	}
	if !shortcut.IsBuild(ev) {
		c.JSON(http.StatusOK, gin.H{"build": false})
		return
	}
	if err := st.RunBuild(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"build": true, "session": h.view(st)})
}
