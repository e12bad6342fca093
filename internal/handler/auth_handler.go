package handler

import (
	"net/http"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/model"
	"github.com/IshaNayal/swasth-saathi/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles sign-in requests
type AuthHandler struct {
	service service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

type requestCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Language    string `json:"language"`
}

type requestCodeResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	Code         string `json:"code,omitempty"`
}

type redeemCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

type redeemCodeResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Account   *model.Account `json:"account"`
}

func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	res, err := h.service.RequestCode(c.Request.Context(), req.PhoneNumber, req.Language)
	if err != nil {
		respondError(c, err, "request code")
		return
	}

	c.JSON(http.StatusOK, requestCodeResponse{Acknowledged: res.Acknowledged, Code: res.Code})
}

func (h *AuthHandler) RedeemCode(c *gin.Context) {
	var req redeemCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	res, err := h.service.RedeemCode(c.Request.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		respondError(c, err, "redeem code")
		return
	}

	c.JSON(http.StatusOK, redeemCodeResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, Account: res.Account})
}

// RegisterAuthRoutes registers auth routes
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/request-code", h.RequestCode)
		authGroup.POST("/redeem-code", h.RedeemCode)
	}
}
