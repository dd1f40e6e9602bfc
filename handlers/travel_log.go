package handlers

import (
	"errors"
	"net/http"
	"time"

	"travellog/logger"
	"travellog/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var visitDateLayouts = []string{time.RFC3339, "2006-01-02"}

type TravelLogCreateRequest struct {
	Title       string   `json:"title" binding:"required,max=300"`
	Description string   `json:"description" binding:"required"`
	Image       string   `json:"image" binding:"required,url"`
	Rating      *int     `json:"rating" binding:"required,min=0,max=10"`
	VisitDate   string   `json:"visit_date" binding:"required"`
	Latitude    *float64 `json:"latitude" binding:"required,latitude"`
	Longitude   *float64 `json:"longitude" binding:"required,longitude"`
}

type TravelLogIDRequest struct {
	ID string `form:"id" json:"id" binding:"required"`
}

func parseVisitDate(s string) (time.Time, bool) {
	for _, layout := range visitDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func TravelLogList(c *gin.Context, user *models.User) {
	logs, err := models.TravelLogsForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func TravelLogGet(c *gin.Context, user *models.User) {
	r := TravelLogIDRequest{}
	if err := c.ShouldBindQuery(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	log, err := models.TravelLogGet(user.ID, r.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	c.JSON(http.StatusOK, log)
}

func TravelLogCreate(c *gin.Context, user *models.User) {
	r := TravelLogCreateRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	visitDate, ok := parseVisitDate(r.VisitDate)
	if !ok {
		c.JSON(http.StatusBadRequest, Response{"visit_date must be YYYY-MM-DD or RFC 3339"})
		return
	}
	log := models.TravelLog{
		Title:       r.Title,
		Description: r.Description,
		Image:       r.Image,
		Rating:      *r.Rating,
		VisitDate:   visitDate,
		Latitude:    *r.Latitude,
		Longitude:   *r.Longitude,
		UserID:      user.ID,
	}
	if err := log.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if err := models.TravelLogCreate(&log); err != nil {
		// e.g. the user was deleted meanwhile: the foreign key rejects the row
		logger.L.Error("travel log create", zap.String("user", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	refreshViews(user.ID)
	c.JSON(http.StatusOK, log)
}

func TravelLogDelete(c *gin.Context, user *models.User) {
	r := TravelLogIDRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	deleted, err := models.TravelLogDelete(user.ID, r.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	refreshViews(user.ID)
	c.JSON(http.StatusOK, OKResponse)
}

// refreshViews reframes the user's mounted maps after the entry set changed
func refreshViews(userID string) {
	logs, err := models.TravelLogsForUser(userID)
	if err != nil {
		logger.L.Warn("views refresh", zap.String("user", userID), zap.Error(err))
		return
	}
	Views.RefreshOwner(userID, logs)
}
