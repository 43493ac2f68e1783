package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/game-event-tracking/internal/models"
	"github.com/PratikDhanave/game-event-tracking/internal/sink"
)

// Acceptor runs one event through ingestion.
type Acceptor interface {
	Accept(ctx context.Context, kind models.EventType, body []byte) (models.Accepted, error)
}

// RegisterEventRoutes registers the ingestion endpoints.
//
// POST /v1/events/install
// POST /v1/events/purchase
//   - 200 {"status":"accepted","event_id":...} for new and duplicate events alike
//   - 422 with every schema violation
//   - 500 when delivery fails; the event id is still considered seen
func RegisterEventRoutes(r gin.IRoutes, p Acceptor) {
	r.POST("/v1/events/install", ingestHandler(p, models.EventInstall))
	r.POST("/v1/events/purchase", ingestHandler(p, models.EventPurchase))
}

func ingestHandler(p Acceptor, kind models.EventType) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "could not read request body"})
			return
		}

		ack, err := p.Accept(c.Request.Context(), kind, body)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ack)
	}
}

func writeError(c *gin.Context, err error) {
	var verr *models.ValidationError
	var derr *sink.DeliveryError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail": verr.Error(),
			"errors": verr.Violations,
		})
	case errors.As(err, &derr):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "event delivery failed"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}
