package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cataid-backend/internal/model"
	"cataid-backend/internal/service"
	"cataid-backend/internal/workflow"
)

type AuthController struct {
	AuthService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

func (ac *AuthController) Login(c *gin.Context) {
	var creds struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	tokens, err := ac.AuthService.Login(creds.Email, creds.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (ac *AuthController) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	tokens, err := ac.AuthService.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// RegisterStaff handles POST /staff. Only leads add staff members.
func (ac *AuthController) RegisterStaff(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if !actor.IsLead() {
		respondError(c, workflow.ErrUnauthorized)
		return
	}
	var req struct {
		Name     string        `json:"name" binding:"required"`
		Email    string        `json:"email" binding:"required"`
		Password string        `json:"password" binding:"required"`
		Role     workflow.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	staff := &model.Staff{Name: req.Name, Email: req.Email, Role: req.Role}
	if err := ac.AuthService.Register(staff, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, staff)
}
