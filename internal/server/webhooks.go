package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleGatewayWebhook accepts raw gateway deliveries. Only a signature
// failure is rejected with 400; every other outcome acks with 200 so the
// gateway stops retrying. Duplicate and unprocessable events are acked too,
// the ingest layer records why.
func (s *Server) HandleGatewayWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.webhookSvc.Ingest(c.Request.Context(), payload, c.Request.Header); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
