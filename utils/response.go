package utils

import "github.com/gin-gonic/gin"

// APIError is the error envelope used by the dashboard, agency and guest APIs.
func APIError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// ValidationError renders field errors under error.fields.
func ValidationError(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(422, gin.H{"error": gin.H{
		"code":    "error.validation",
		"message": "Some fields are invalid",
		"fields":  fields,
	}})
}
