package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kmoganti/stock-trading-system-sub001/middleware"
	"github.com/kmoganti/stock-trading-system-sub001/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthController handles dashboard admin login.
type AuthController struct {
	db        *gorm.DB
	jwtSecret string
	limiter   *middleware.LoginRateLimiter
}

func NewAuthController(db *gorm.DB, jwtSecret string, limiter *middleware.LoginRateLimiter) *AuthController {
	return &AuthController{db: db, jwtSecret: jwtSecret, limiter: limiter}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a JWT for the dashboard.
// POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	ip := c.ClientIP()

	var user models.AdminUser
	err := ac.db.WithContext(c.Request.Context()).
		Where("username = ? AND is_active = ?", req.Username, true).
		First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		ac.limiter.RecordFailure(ip)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !user.CheckPassword(req.Password) {
		ac.limiter.RecordFailure(ip)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	ac.limiter.Reset(ip)

	token, expiresAt, err := middleware.GenerateToken(ac.jwtSecret, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	now := time.Now()
	ac.db.Model(&user).Update("last_login_at", &now)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"username":   user.Username,
	})
}
