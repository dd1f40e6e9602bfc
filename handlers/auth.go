package handlers

import (
	"errors"
	"net/http"
	"time"

	"travellog/auth"
	"travellog/config"
	"travellog/logger"
	"travellog/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

type SignInRequest struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

type SignInCallbackRequest struct {
	Email string `form:"email" json:"email" binding:"required,email"`
	Token string `form:"token" json:"token" binding:"required"`
}

func verificationTokenTTL() time.Duration {
	return time.Duration(config.VERIFICATION_TOKEN_TTL_MINUTES) * time.Minute
}

// AuthSignIn issues a one-time verification token for the email.
// Delivering it is up to the mailer in front of us; in debug mode it is returned directly.
func AuthSignIn(c *gin.Context) {
	req := SignInRequest{}
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	token, err := models.VerificationTokenCreate(req.Email, verificationTokenTTL())
	if err != nil {
		logger.L.Error("verification token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	result := gin.H{"error": ""}
	if config.DEBUG_MODE {
		logger.L.Debug("verification token issued", zap.String("email", req.Email), zap.String("token", token))
		result["token"] = token
	}
	c.JSON(http.StatusOK, result)
}

// AuthCallback consumes the verification token and signs the user in (creating it on first use)
func AuthCallback(c *gin.Context) {
	req := SignInCallbackRequest{}
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if err := models.VerificationTokenUse(req.Email, req.Token); err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, InvalidTokenResponse)
			return
		}
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	user, err := models.UserSignIn(req.Email)
	if err != nil {
		logger.L.Error("sign in", zap.Error(err))
		c.JSON(http.StatusInternalServerError, DBError2Response)
		return
	}
	account := models.Account{
		UserID:            user.ID,
		Type:              models.AccountTypeEmail,
		Provider:          "email",
		ProviderAccountID: user.Email,
	}
	if err = models.AccountLink(&account); err != nil {
		logger.L.Error("account link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, DBError3Response)
		return
	}
	if _, err = auth.LoadSession(c).LoginUser(user.ID); err != nil {
		logger.L.Error("session create", zap.Error(err))
		c.JSON(http.StatusInternalServerError, SessionErrorResponse)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "user": user})
}

func AuthSignOut(c *gin.Context, user *models.User) {
	Views.UnmountOwner(user.ID)
	if err := auth.LoadSession(c).LogoutUser(); err != nil {
		logger.L.Warn("sign out", zap.Error(err))
	}
	c.JSON(http.StatusOK, OKResponse)
}
