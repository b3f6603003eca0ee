package handlers

import (
	"net/http"

	"innkeeper/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the latest health snapshot of Redis and MongoDB.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()

	code := http.StatusOK
	if !status.Mongo {
		code = http.StatusServiceUnavailable
	}
	for _, ok := range status.Redis {
		if !ok {
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, status)
}
