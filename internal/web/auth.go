package web

import (
	"net/http"

	"github.com/belfry-bio/belfry/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const userKey = "user"

// requireUser resolves the X-API-Key header to a user and aborts with 401
// when the key is missing or unknown.
func requireUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}
		var user models.User
		if err := db.Where("api_key = ?", key).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Set(userKey, user)
	}
}

// currentUser returns the user set by requireUser.
func currentUser(c *gin.Context) models.User {
	return c.MustGet(userKey).(models.User)
}
