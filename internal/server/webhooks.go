package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/solvance/cashier-polar/internal/webhook/domain"
	"github.com/solvance/cashier-polar/internal/webhook/signature"
)

// HandlePolarWebhook verifies and applies a provider delivery. Deliveries the
// reconciler deliberately skips are still acknowledged so the provider does
// not retry them.
func (s *Server) HandlePolarWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	if err := s.verifier.Verify(c.Request.Header, body); err != nil {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordSignatureFailure(ctx, signatureFailureReason(err))
		}
		AbortWithError(c, err)
		return
	}

	delivery := webhookdomain.Delivery{
		ID:        c.GetHeader(signature.HeaderID),
		Timestamp: c.GetHeader(signature.HeaderTimestamp),
		Body:      body,
	}
	if _, err := s.webhookSvc.Handle(ctx, delivery); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func signatureFailureReason(err error) string {
	switch {
	case errors.Is(err, signature.ErrMissingSecret):
		return "missing_secret"
	case errors.Is(err, signature.ErrMissingHeaders):
		return "missing_headers"
	case errors.Is(err, signature.ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, signature.ErrTimestampTooOld):
		return "timestamp_out_of_tolerance"
	default:
		return "mismatch"
	}
}
