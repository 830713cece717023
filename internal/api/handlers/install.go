package handlers

import (
	"net/http"

	"github.com/bhandras/replbox/internal/install"
	"github.com/bhandras/replbox/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InstallChoiceRequest reports the user's answer to the install dialog.
type InstallChoiceRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// OfferInstall handles POST /v1/sessions/:id/install/offer
//
// The client calls this when the platform signals that the app can be
// installed. A newer offer replaces an older one.
func (h *SessionHandler) OfferInstall(c *gin.Context) {
	st := h.store(c)
	if st == nil {
		return
	}
	offer := install.NewOffer(uuid.NewString())
	if err := st.OfferInstall(c.Request.Context(), offer); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"offerId": offer.ID, "session": h.view(st)})
}

// ShowInstallPrompt handles POST /v1/sessions/:id/install/prompt
func (h *SessionHandler) ShowInstallPrompt(c *gin.Context) {
	st := h.store(c)
	if st == nil {
		return
	}
	if err := st.ShowInstallPrompt(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session": h.view(st)})
}

// InstallChoice handles POST /v1/sessions/:id/install/choice
func (h *SessionHandler) InstallChoice(c *gin.Context) {
	var req InstallChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	outcome, err := install.ParseOutcome(req.Outcome)
	if err != nil {
		badRequest(c, err)
		return
	}
	st := h.store(c)
	if st == nil {
		return
	}

	// The store holds the only pending offer; a newer offer replaces it.
	offer, _ := st.Snapshot().InstallPrompt.(*install.Offer)
	if offer == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no install offer pending"})
		return
	}

	select {
	case <-offer.Prompted():
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "install prompt has not been shown"})
		return
	}

	if !offer.Choose(outcome) {
		c.JSON(http.StatusConflict, gin.H{"error": "install prompt already answered"})
		return
	}

	logger.Debugf("[api] install offer %s for %s: %s", offer.ID, st.ID(), outcome)
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}
