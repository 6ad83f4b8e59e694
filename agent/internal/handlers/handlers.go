package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"walletbridge/agent/internal/services"
	"walletbridge/shared/logger"
)

// VerifyRequest is the synchronous call from the wallet front end once the
// user has signed the challenge.
type VerifyRequest struct {
	Token         string `json:"token" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

// Verification outcome codes surfaced to the front end.
const (
	statusOK           = "ok"
	statusNotFound     = "not_found"
	statusExpired      = "expired"
	statusBadSignature = "bad_signature"
)

// RegisterRoutes mounts the liveness endpoint.
func RegisterRoutes(router *gin.Engine, appLogger *logger.Logger) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is running."})
	})
}

// RegisterAPIRoutes mounts the versioned API, including the wallet-link
// verification callback.
func RegisterAPIRoutes(router *gin.Engine, appLogger *logger.Logger, links *services.LinkTokenManager) {
	apiGroup := router.Group("/api/v1")
	{
		apiGroup.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		apiGroup.POST("/verify", handleVerify(appLogger, links))
	}
	appLogger.Info("API routes registered under /api/v1")
}

func handleVerify(appLogger *logger.Logger, links *services.LinkTokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			appLogger.Warn("invalid verify request body", "remoteAddr", c.RemoteIP(), "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		err := links.Verify(c.Request.Context(), req.Token, req.WalletAddress, req.Signature)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"status": statusOK})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": statusNotFound})
		case errors.Is(err, services.ErrTokenExpired):
			c.JSON(http.StatusGone, gin.H{"status": statusExpired})
		case errors.Is(err, services.ErrSignatureMismatch),
			errors.Is(err, services.ErrMalformedSignature),
			errors.Is(err, services.ErrInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"status": statusBadSignature})
		default:
			appLogger.Error("verification failed on a collaborator", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		}
	}
}
