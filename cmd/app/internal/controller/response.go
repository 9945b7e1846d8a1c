package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cataid-backend/internal/service"
	"cataid-backend/internal/workflow"
	"cataid-backend/utilities"
)

// respondError maps service and lifecycle errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case workflow.IsUnauthorized(err):
		status = http.StatusForbidden
	case workflow.IsInvalidTransition(err), errors.Is(err, service.ErrEmailInUse):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotEnoughAssessments):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		utilities.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func currentActor(c *gin.Context) (workflow.Actor, bool) {
	actor, ok := utilities.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	}
	return actor, ok
}
