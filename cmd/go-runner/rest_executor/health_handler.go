package restexecutor

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthHandle struct{}

// NewHealthHandle creates the liveness handle
func NewHealthHandle() Register {
	return healthHandle{}
}

func (healthHandle) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
