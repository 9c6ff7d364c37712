package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/catcha-app/geotag/internal/auth"
	"github.com/catcha-app/geotag/internal/catchapi"
	"github.com/catcha-app/geotag/internal/csvexport"
	"github.com/catcha-app/geotag/internal/geotag"
	"github.com/catcha-app/geotag/internal/livetrack"
	"github.com/catcha-app/geotag/internal/model"
	"github.com/catcha-app/geotag/pkg/logger"
	"github.com/catcha-app/geotag/pkg/validator"
)

// Handler exposes the geo core over the local control API.
type Handler struct {
	geoService *geotag.Service
	exporter   *csvexport.Service
	liveTracks *livetrack.Client
	catches    *catchapi.Client
	tokens     *auth.TokenStore
	validator  validator.Validator
	log        logger.Logger

	apiBaseURL   string
	webCreateURL string
}

func NewHandler(
	geoService *geotag.Service,
	exporter *csvexport.Service,
	liveTracks *livetrack.Client,
	catches *catchapi.Client,
	tokens *auth.TokenStore,
	apiBaseURL, webCreateURL string,
	log logger.Logger,
) *Handler {
	return &Handler{
		geoService:   geoService,
		exporter:     exporter,
		liveTracks:   liveTracks,
		catches:      catches,
		tokens:       tokens,
		validator:    validator.NewValidator(),
		log:          log,
		apiBaseURL:   apiBaseURL,
		webCreateURL: webCreateURL,
	}
}

// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/position/current
func (h *Handler) GetCurrentPosition(c *gin.Context) {
	sample := h.geoService.GetCurrentLocation(c.Request.Context())
	if sample == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse("No fix available", CodeNoFix))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(sample))
}

// GET /api/position/saved
func (h *Handler) GetSavedPosition(c *gin.Context) {
	sample := h.geoService.LoadSavedPosition(c.Request.Context())
	if sample == nil {
		c.JSON(http.StatusNotFound, ErrorResponse("No saved position", CodeNotFound))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(sample))
}

// POST /api/position/save
func (h *Handler) SavePosition(c *gin.Context) {
	var req struct {
		Latitude  float64  `json:"latitude" binding:"required"`
		Longitude float64  `json:"longitude" binding:"required"`
		Accuracy  *float64 `json:"accuracy"`
		Source    string   `json:"source"`
		Timestamp int64    `json:"timestamp"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", CodeInvalidRequest))
		return
	}

	if err := h.validator.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), CodeInvalidCoordinates))
		return
	}

	source := model.Source(req.Source)
	if source == "" {
		source = model.SourceClick
	}

	sample := model.LocationSample{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Source:    source,
		Timestamp: req.Timestamp,
	}

	if err := h.geoService.SaveCurrentPosition(c.Request.Context(), sample); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), CodeSaveFailed))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(h.geoService.LoadSavedPosition(c.Request.Context())))
}

// DELETE /api/position
func (h *Handler) ClearPosition(c *gin.Context) {
	if err := h.geoService.ClearSavedPosition(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to clear position", CodeInternal))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"message": "Position cleared"}))
}

// POST /api/watch/start
func (h *Handler) StartWatch(c *gin.Context) {
	settings := h.geoService.Settings(c.Request.Context())
	h.geoService.SetRecording(settings.AutoWatch)

	// Outlives the request: the subscription must keep running after the
	// response is written.
	ok := h.geoService.StartLocationWatch(context.Background(), func(sample model.LocationSample) {
		h.log.Debug("watch sample",
			"lat", sample.Latitude,
			"lon", sample.Longitude,
			"geohash", sample.Geohash,
		)
	})
	if !ok {
		c.JSON(http.StatusForbidden, ErrorResponse("Location permission not granted", CodePermissionDenied))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{"watching": true}))
}

// POST /api/watch/stop
func (h *Handler) StopWatch(c *gin.Context) {
	h.geoService.StopLocationWatch()
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"watching": false}))
}

// GET /api/watch/status
func (h *Handler) WatchStatus(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"watching": h.geoService.WatchRunning(),
		"recorded": h.exporter.WatchCoordinateCount(c.Request.Context()),
	}))
}

// POST /api/wayfare/start
func (h *Handler) StartWayfare(c *gin.Context) {
	if !h.geoService.StartWayfareTracking(context.Background()) {
		c.JSON(http.StatusForbidden, ErrorResponse("Failed to start wayfare tracking", CodePermissionDenied))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"running": true}))
}

// POST /api/wayfare/stop
func (h *Handler) StopWayfare(c *gin.Context) {
	h.geoService.StopWayfareTracking(c.Request.Context())
	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"running": false,
		"summary": h.geoService.GetWayfareSummary(c.Request.Context()),
	}))
}

// GET /api/wayfare/track
func (h *Handler) GetWayfareTrack(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse(h.geoService.GetWayfareTrack(c.Request.Context())))
}

// GET /api/wayfare/summary
func (h *Handler) GetWayfareSummary(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"summary":     h.geoService.GetWayfareSummary(ctx),
		"distance_km": h.geoService.CalculateWayfareDistance(ctx),
	}))
}

// DELETE /api/wayfare
func (h *Handler) ClearWayfare(c *gin.Context) {
	if err := h.geoService.ClearWayfareTrack(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to clear wayfare track", CodeInternal))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"message": "Wayfare track cleared"}))
}

// POST /api/export/csv
func (h *Handler) ExportCSV(c *gin.Context) {
	path, err := h.exporter.ExportCSV(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), CodeExportFailed))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"path": path}))
}

// GET /api/export/preview
func (h *Handler) PreviewCSV(c *gin.Context) {
	c.Data(http.StatusOK, "text/csv", []byte(h.exporter.CSVString(c.Request.Context())))
}

// DELETE /api/export
func (h *Handler) ClearExport(c *gin.Context) {
	if err := h.exporter.ClearWatchCoordinates(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to clear coordinates", CodeInternal))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"message": "Coordinates cleared"}))
}

// POST /api/live-track/ensure
func (h *Handler) EnsureLiveTrack(c *gin.Context) {
	handle, err := h.liveTracks.EnsureLiveTrack(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse(err.Error(), CodeLiveTrackFailed))
		return
	}
	h.geoService.SetStreaming(true)
	c.JSON(http.StatusOK, SuccessResponse(handle))
}

// POST /api/live-track/end
func (h *Handler) EndLiveTrack(c *gin.Context) {
	ctx := c.Request.Context()
	handle := h.liveTracks.GetSavedLiveTrack(ctx)
	if handle == nil {
		c.JSON(http.StatusNotFound, ErrorResponse("No live track session", CodeNotFound))
		return
	}

	h.geoService.SetStreaming(false)
	res := h.liveTracks.EndLiveTrackSession(ctx, *handle)
	if !res.OK {
		c.JSON(http.StatusBadGateway, ErrorResponse(res.Error, CodeLiveTrackFailed))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"ended": true}))
}

// GET /api/live-track
func (h *Handler) GetLiveTrack(c *gin.Context) {
	handle := h.liveTracks.GetSavedLiveTrack(c.Request.Context())
	if handle == nil {
		c.JSON(http.StatusNotFound, ErrorResponse("No live track session", CodeNotFound))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(handle))
}

// POST /api/catches
func (h *Handler) CreateCatch(c *gin.Context) {
	var payload catchapi.CreateCatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", CodeInvalidRequest))
		return
	}

	if err := h.validator.ValidateCoordinates(payload.Latitude, payload.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), CodeInvalidCoordinates))
		return
	}

	res := h.catches.CreateCatch(c.Request.Context(), payload)
	if !res.OK {
		c.JSON(http.StatusBadGateway, ErrorResponse(res.Error, CodeSubmitFailed))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(res.Data))
}

// GET /api/web-create-url
func (h *Handler) WebCreateURL(c *gin.Context) {
	ctx := c.Request.Context()

	loc := h.geoService.LoadSavedPosition(ctx)
	if loc == nil {
		loc = h.geoService.GetCurrentLocation(ctx)
	}
	if loc == nil {
		c.JSON(http.StatusNotFound, ErrorResponse("No location available", CodeNotFound))
		return
	}

	u, err := catchapi.WebCreateURL(h.apiBaseURL, h.webCreateURL, *loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), CodeMissingConfig))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"url": u}))
}

// PUT /api/token
func (h *Handler) SetToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", CodeInvalidRequest))
		return
	}
	if err := h.tokens.SetToken(c.Request.Context(), req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to store token", CodeInternal))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"message": "Token stored"}))
}

// DELETE /api/token
func (h *Handler) ClearToken(c *gin.Context) {
	if err := h.tokens.ClearToken(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to clear token", CodeInternal))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"message": "Token cleared"}))
}

// GET /api/settings
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse(h.geoService.Settings(c.Request.Context())))
}

// PUT /api/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var settings model.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", CodeInvalidRequest))
		return
	}

	if err := h.geoService.UpdateSettings(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), CodeInvalidSettings))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(settings))
}
