package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	treasurydomain "github.com/lumenis/lumenis/internal/treasury/domain"
)

type transferWebhookPayload struct {
	Event string `json:"event" binding:"required"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// transferWebhook resolves pending payouts from gateway events.
// Replayed events acknowledge with 200 so the gateway stops retrying.
func (s *Server) transferWebhook(c *gin.Context) {
	var payload transferWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	reference := strings.TrimSpace(payload.Data.Reference)
	if reference == "" {
		AbortWithError(c, newValidationError("data.reference", "missing_reference", "transfer reference is required"))
		return
	}

	var succeeded bool
	switch payload.Event {
	case "transfer.success":
		succeeded = true
	case "transfer.failed", "transfer.reversed":
		succeeded = false
	default:
		// Unknown events are acknowledged and dropped.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	err := s.treasurySvc.HandleTransferWebhook(c.Request.Context(), treasurydomain.TransferEvent{
		Reference: reference,
		Succeeded: succeeded,
	})
	if errors.Is(err, treasurydomain.ErrAlreadyProcessed) {
		c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
