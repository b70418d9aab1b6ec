package handlers

import (
	"net/http"

	"api-relay/internal/models"

	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{OK: true})
}
