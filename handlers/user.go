package handlers

import (
	"net/http"

	"travellog/auth"
	"travellog/logger"
	"travellog/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func UserStatus(c *gin.Context, user *models.User) {
	c.JSON(http.StatusOK, gin.H{"error": "", "user": user})
}

func UserAccounts(c *gin.Context, user *models.User) {
	accounts, err := models.AccountsForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// UserDelete removes the signed in user. The store cascades to accounts, sessions and travel logs.
func UserDelete(c *gin.Context, user *models.User) {
	Views.UnmountOwner(user.ID)
	deleted, err := models.UserDelete(user.ID)
	if err != nil {
		logger.L.Error("user delete", zap.String("user", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	// the database session is already gone, this only expires the cookie
	_ = auth.LoadSession(c).LogoutUser()
	c.JSON(http.StatusOK, OKResponse)
}
