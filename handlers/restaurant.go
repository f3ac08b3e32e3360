package handlers

import (
	"encoding/json"
	"net/http"

	"larica/location"
	"larica/middleware"
	"larica/models"
	"larica/search"
	"larica/visitor"
	"larica/web"

	"github.com/gin-gonic/gin"
)

// LocationRequest is what the browser reports from its geolocation API:
// a position, or the GeolocationPositionError code.
type LocationRequest struct {
	Lat      json.Number `form:"lat" json:"lat"`
	Lon      json.Number `form:"lon" json:"lon"`
	GeoError json.Number `form:"geo_error" json:"geo_error"`
}

type SearchRequest struct {
	Term string `form:"term" json:"term"`
}

type CategoryRequest struct {
	Category string `form:"category" json:"category"`
}

type ViewRequest struct {
	Mode search.ViewMode `form:"mode" json:"mode" binding:"required,oneof=list map"`
}

type marker struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func markersOf(rs []models.Restaurant) []marker {
	out := make([]marker, 0, len(rs))
	for _, r := range rs {
		out = append(out, marker{ID: r.ID, Name: r.Name, Lat: r.Location.Lat, Lng: r.Location.Lng})
	}
	return out
}

func attemptFrom(c *gin.Context, req LocationRequest) location.Attempt {
	a := location.Attempt{ClientIP: c.ClientIP()}
	lat, latErr := req.Lat.Float64()
	lon, lonErr := req.Lon.Float64()
	switch {
	case latErr == nil && lonErr == nil:
		a.Device = &location.Fix{Lat: lat, Lon: lon}
	case req.GeoError != "":
		code, _ := req.GeoError.Int64()
		a.DeviceErr = location.DeviceError(int(code))
	}
	return a
}

func homeData(v *visitor.Visitor, home visitor.Home) gin.H {
	data := page(v, "")
	data["location"] = home.Location
	data["status"] = home.Status
	data["error"] = home.Error
	data["view"] = home.View
	data["more"] = home.More
	if home.View.Mode == search.ViewMap {
		data["markers"] = markersOf(home.View.Restaurants)
		if c := home.Location.Coordinates; c != nil {
			data["center"] = models.GeoPoint{Lat: c.Lat, Lng: c.Lon}
		} else {
			data["center"] = models.GeoPoint{}
		}
	}
	return data
}

// Home renders the list or map of nearby restaurants. The first render
// resolves the location, using lat/lon query parameters when present.
func (h *Handler) Home(c *gin.Context) {
	v := middleware.GetVisitor(c)
	var req LocationRequest
	_ = c.ShouldBindQuery(&req)

	home := v.Home(c.Request.Context(), attemptFrom(c, req))
	respond(c, http.StatusOK, "home.html", homeData(v, home))
}

// afterAction sends browsers back home and gives JSON clients the new view
func afterAction(c *gin.Context, v *visitor.Visitor) {
	if middleware.WantsJSON(c) {
		home := v.Home(c.Request.Context(), location.Attempt{ClientIP: c.ClientIP()})
		c.JSON(http.StatusOK, homeData(v, home))
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Detail shows one restaurant of the current catalog
func (h *Handler) Detail(c *gin.Context) {
	v := middleware.GetVisitor(c)
	data := page(v, "Restaurant")

	r, ok := v.Catalog.Find(c.Param("id"))
	if !ok {
		data["restaurant"] = nil
		data["error"] = "No restaurant selected"
		respond(c, http.StatusNotFound, "detail.html", data)
		return
	}
	data["title"] = r.Name
	data["restaurant"] = &r
	data["photo_url"] = web.PhotoURL(r.PhotoReference)
	data["markers"] = markersOf([]models.Restaurant{r})
	data["center"] = r.Location
	respond(c, http.StatusOK, "detail.html", data)
}

// SetLocation runs a new resolution with what the browser reported
func (h *Handler) SetLocation(c *gin.Context) {
	v := middleware.GetVisitor(c)
	var req LocationRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v.Location.Resolve(c.Request.Context(), attemptFrom(c, req))
	afterAction(c, v)
}

func (h *Handler) Search(c *gin.Context) {
	v := middleware.GetVisitor(c)
	var req SearchRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v.Search.SetTerm(req.Term)
	afterAction(c, v)
}

// ToggleCategory selects a category chip; selecting it again clears it
func (h *Handler) ToggleCategory(c *gin.Context) {
	v := middleware.GetVisitor(c)
	var req CategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v.Search.ToggleCategory(req.Category)
	afterAction(c, v)
}

func (h *Handler) ClearFilters(c *gin.Context) {
	v := middleware.GetVisitor(c)
	v.Search.ClearFilters()
	afterAction(c, v)
}

// More reveals the next page of the list
func (h *Handler) More(c *gin.Context) {
	v := middleware.GetVisitor(c)
	if err := v.ShowMore(); err != nil {
		// surfaced inline through the catalog status
		middleware.Logger(c).Debug("Load more failed", "error", err)
	}
	afterAction(c, v)
}

// SetView switches between list and map
func (h *Handler) SetView(c *gin.Context) {
	v := middleware.GetVisitor(c)
	var req ViewRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := v.SetViewMode(req.Mode); err != nil {
		middleware.Logger(c).Debug("Loading all pages failed", "error", err)
	}
	afterAction(c, v)
}

// Reload is the user-triggered retry after a failed fetch
func (h *Handler) Reload(c *gin.Context) {
	v := middleware.GetVisitor(c)
	if err := v.Reload(); err != nil {
		middleware.Logger(c).Debug("Reload failed", "error", err)
	}
	afterAction(c, v)
}
