package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every endpoint, errors included, answers with the same envelope:
// {success, message, data, meta?} plus an errors list for validation failures.

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data})
}

func respondOKMeta(c *gin.Context, message string, data, meta any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data, "meta": meta})
}

func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": message, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func respondValidation(c *gin.Context, errs []string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation failed", "errors": errs})
}
