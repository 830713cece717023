// Package handlers implements the HTTP API over session stores.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/bhandras/replbox/internal/actor"
	"github.com/bhandras/replbox/internal/api/view"
	"github.com/bhandras/replbox/internal/install"
	"github.com/bhandras/replbox/internal/session"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/gin-gonic/gin"
)

// SessionHandler serves the session endpoints.
type SessionHandler struct {
	manager   *session.Manager
	publicURL string
}

// NewSessionHandler returns a handler. publicURL is the base of share links.
func NewSessionHandler(manager *session.Manager, publicURL string) *SessionHandler {
	return &SessionHandler{
		manager:   manager,
		publicURL: publicURL,
	}
}

// store resolves the :id parameter. On failure the error response has been
// written and nil is returned.
func (h *SessionHandler) store(c *gin.Context) *session.Store {
	st, err := h.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil
	}
	return st
}

func (h *SessionHandler) view(st *session.Store) view.Session {
	return view.New(st.ID(), h.publicURL, st.Snapshot())
}

// statusFor maps errors to HTTP status codes.
func statusFor(err error) int {
	var buildErr *session.BuildTimedOutError
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBuildInProgress),
		errors.Is(err, session.ErrPromptInProgress),
		errors.Is(err, session.ErrNoInstallPrompt),
		errors.Is(err, install.ErrAlreadyPrompted):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnknownPreset),
		errors.Is(err, session.ErrInvalidFileName),
		errors.Is(err, session.ErrLastFile),
		errors.Is(err, session.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, actor.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &buildErr):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(code, types.ErrorResponse{Error: msg})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
}
