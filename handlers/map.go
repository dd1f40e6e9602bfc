package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"travellog/geo"
	"travellog/logger"
	"travellog/mapview"
	"travellog/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const geocodeTimeout = 15 * time.Second

type MapSizeRequest struct {
	Width  int `form:"width" json:"width" binding:"required,min=1"`
	Height int `form:"height" json:"height" binding:"required,min=1"`
}

// MapClickRequest takes any pair of numbers, clicks are not validated
type MapClickRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

type MapPointerRequest struct {
	Inside *bool `json:"inside" binding:"required"`
}

type MapMarkersResponse struct {
	Markers []mapview.Marker `json:"markers"`
	Skipped []string         `json:"skipped"`
}

func MapConfig(c *gin.Context) {
	c.JSON(http.StatusOK, mapview.OptionsFromConfig())
}

// MapFrame is a one-shot camera for all the user's entries in a map of the given size
func MapFrame(c *gin.Context, user *models.User) {
	r := MapSizeRequest{}
	if err := c.ShouldBindQuery(&r); err != nil {
		c.JSON(http.StatusBadRequest, BadSizeResponse)
		return
	}
	logs, err := models.TravelLogsForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	view := mapview.NewView("", user.ID, mapview.OptionsFromConfig())
	view.SetEntries(logs)
	if err = view.LayoutReady(geo.Size{Width: r.Width, Height: r.Height}); err != nil {
		c.JSON(http.StatusBadRequest, BadSizeResponse)
		return
	}
	state := view.State()
	c.JSON(http.StatusOK, gin.H{"camera": state.Camera, "skipped": state.Skipped})
}

// MapMarkers renders the user's entries (and the selection of a view, if given)
func MapMarkers(c *gin.Context, user *models.User) {
	logs, err := models.TravelLogsForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	selection := mapview.SelectionState{}
	if id := c.Query("view"); id != "" {
		view, err := Views.Get(id, user.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, NotFoundResponse)
			return
		}
		selection = view.Selection()
	}
	result := MapMarkersResponse{
		Markers: mapview.Render(logs, selection, mapview.MatchLocale(c.GetHeader("Accept-Language"))),
		Skipped: []string{},
	}
	for _, log := range logs {
		if log.Position().Validate() != nil {
			result.Skipped = append(result.Skipped, log.ID)
		}
	}
	c.JSON(http.StatusOK, result)
}

// MapViewMount creates a view with the user's entries, the camera follows once the layout is known
func MapViewMount(c *gin.Context, user *models.User) {
	logs, err := models.TravelLogsForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	view := Views.Mount(user.ID, mapview.OptionsFromConfig(), logs)
	c.JSON(http.StatusOK, view.State())
}

func MapViewUnmount(c *gin.Context, user *models.User) {
	if err := Views.Unmount(c.Param("id"), user.ID); err != nil {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func MapViewState(c *gin.Context, user *models.User) {
	view := loadView(c, user)
	if view == nil {
		return
	}
	c.JSON(http.StatusOK, view.State())
}

func MapViewLayout(c *gin.Context, user *models.User) {
	view := loadView(c, user)
	if view == nil {
		return
	}
	r := MapSizeRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, BadSizeResponse)
		return
	}
	if err := view.LayoutReady(geo.Size{Width: r.Width, Height: r.Height}); err != nil {
		c.JSON(http.StatusBadRequest, BadSizeResponse)
		return
	}
	c.JSON(http.StatusOK, view.State())
}

func MapViewClick(c *gin.Context, user *models.User) {
	view := loadView(c, user)
	if view == nil {
		return
	}
	r := MapClickRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	selectPoint(view, geo.LatLng{Lat: *r.Lat, Lng: *r.Lng})
	c.JSON(http.StatusOK, view.State())
}

func MapViewClear(c *gin.Context, user *models.User) {
	view := loadView(c, user)
	if view == nil {
		return
	}
	view.ClearSelection()
	c.JSON(http.StatusOK, view.State())
}

func MapViewPointer(c *gin.Context, user *models.User) {
	view := loadView(c, user)
	if view == nil {
		return
	}
	r := MapPointerRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if *r.Inside {
		view.PointerEnter()
	} else {
		view.PointerLeave()
	}
	c.JSON(http.StatusOK, view.State())
}

func loadView(c *gin.Context, user *models.User) *mapview.View {
	view, err := Views.Get(c.Param("id"), user.ID)
	if errors.Is(err, mapview.ErrViewNotFound) {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return nil
	}
	return view
}

// selectPoint sets the selection and, when enabled, looks up its place name in the background
func selectPoint(view *mapview.View, p geo.LatLng) {
	view.Click(p)
	geocoder := Geocoder
	if geocoder == nil || p.Validate() != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), geocodeTimeout)
		defer cancel()
		location, err := geocoder.Resolve(ctx, p)
		if err != nil {
			logger.L.Info("reverse geocoding", zap.Stringer("point", p), zap.Error(err))
			return
		}
		view.AnnotateSelection(p, location.GetShortDisplay())
	}()
}
