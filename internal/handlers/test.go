package handlers

import (
	"api-relay/internal/models"
	"api-relay/internal/relay"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TestHandler struct {
	relay *relay.Relay
	log   *zap.SugaredLogger
}

func NewTestHandler(r *relay.Relay, log *zap.SugaredLogger) *TestHandler {
	return &TestHandler{
		relay: r,
		log:   log,
	}
}

// RunTest handles POST /test
func (h *TestHandler) RunTest(c *gin.Context) {
	var req models.TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// An unreadable body is treated as an empty request; the relay
		// reports the missing URL.
		h.log.Debugw("unreadable test request body", "error", err)
		req = models.TestRequest{Method: "GET"}
	}

	status, result := h.relay.Test(c.Request.Context(), &req)
	c.JSON(status, result)
}
