package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Urology-AI/data-manager/internal/appcontext"
	"github.com/Urology-AI/data-manager/internal/entity"
	"github.com/Urology-AI/data-manager/internal/utils"
)

type openSessionRequest struct {
	Name string `json:"name"`
}

// OpenSession creates a working session and returns its bearer token. All
// datasets and records created under the token stay scoped to the session.
func OpenSession(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req openSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		session := entity.Session{Name: req.Name}
		if err := ctx.DB.Create(&session).Error; err != nil {
			ctx.Logger.Error("Failed to create session", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		token, err := utils.GenerateJWT(session.ID.String())
		if err != nil {
			ctx.Logger.Error("Failed to generate session token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate session token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"session_id": session.ID, "token": token})
	}
}
