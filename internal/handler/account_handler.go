package handler

import (
	"errors"
	"net/http"

	"github.com/IshaNayal/swasth-saathi/internal/middleware"
	"github.com/IshaNayal/swasth-saathi/internal/service"

	"github.com/gin-gonic/gin"
)

// AccountHandler serves the signed-in account
type AccountHandler struct {
	service service.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(s service.AccountService) *AccountHandler {
	return &AccountHandler{service: s}
}

type updateLanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

func (h *AccountHandler) Me(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthenticated.Error()})
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err, "load account")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) UpdateLanguage(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthenticated.Error()})
		return
	}

	var req updateLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	account, err := h.service.UpdateLanguage(c.Request.Context(), accountID, req.Language)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err, "update language")
		return
	}
	c.JSON(http.StatusOK, account)
}

// RegisterAccountRoutes registers routes for the signed-in account. auth must
// run before them.
func (h *AccountHandler) RegisterAccountRoutes(rg *gin.RouterGroup, auth ...gin.HandlerFunc) {
	me := rg.Group("/me", auth...)
	{
		me.GET("", h.Me)
		me.PUT("/language", h.UpdateLanguage)
	}
}
