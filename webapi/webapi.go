// Package webapi exposes the controller over HTTP JSON for the catalog's
// web layer. Outcomes travel in the response payload; the transport status
// stays 200 so the web layer can show the reason to the user.
package webapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anacrolix/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/moviesite/dmc/avtransport"
	"github.com/moviesite/dmc/control"
)

type playRequest struct {
	ID              int64   `json:"id"`
	File            string  `json:"file"`
	Renderer        string  `json:"renderer"`
	Title           string  `json:"title"`
	Bitrate         uint    `json:"bitrate"`
	Resolution      string  `json:"resolution"`
	Size            uint64  `json:"size"`
	DurationSeconds float64 `json:"duration"`
}

type discoverRequest struct {
	Devices        string `json:"devices"`
	TimeoutSeconds int    `json:"timeout"`
	Verbosity      int    `json:"verbosity"`
}

type browseRequest struct {
	MediaServer string `json:"mediaserver"`
	Directory   string `json:"directory"`
	Subdirs     bool   `json:"subdirs"`
}

type checkRequest struct {
	MediaServer string                `json:"mediaserver"`
	Files       []control.CatalogFile `json:"files"`
}

func NewRouter(ctrl *control.Controller, logger log.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestID(), accessLog(logger), gin.Recovery())

	api := router.Group("/api")
	api.POST("/movie/play", func(c *gin.Context) {
		var req playRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.File == "" {
			c.JSON(http.StatusOK, control.PlayResult{Protocol: "", Result: "no json"})
			return
		}
		c.JSON(http.StatusOK, ctrl.PlayMovie(c.Request.Context(), control.PlayRequest{
			File:        req.File,
			RendererURL: req.Renderer,
			Media: avtransport.MediaInfo{
				ID:         req.ID,
				Title:      req.Title,
				Bitrate:    req.Bitrate,
				Resolution: req.Resolution,
				Size:       req.Size,
				Duration:   time.Duration(req.DurationSeconds * float64(time.Second)),
			},
		}))
	})

	api.POST("/dlna/discover", func(c *gin.Context) {
		req := discoverRequest{Devices: string(control.ModeAll), TimeoutSeconds: 2, Verbosity: 2}
		_ = c.ShouldBindJSON(&req)
		report, err := ctrl.DiscoverReport(c.Request.Context(), control.DiscoverMode(req.Devices),
			time.Duration(req.TimeoutSeconds)*time.Second, req.Verbosity)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"code": 1, "reason": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "result": report})
	})

	api.POST("/dlna/browse", func(c *gin.Context) {
		var req browseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, gin.H{"code": 1, "reason": "no json"})
			return
		}
		entries, err := ctrl.BrowseTree(c.Request.Context(), req.MediaServer, req.Directory, req.Subdirs)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"code": 1, "reason": reason(err)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "result": entries})
	})

	api.POST("/dlna/check", func(c *gin.Context) {
		var req checkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, gin.H{"code": 1, "reason": "no json"})
			return
		}
		entries, err := ctrl.CheckMedias(c.Request.Context(), req.MediaServer, req.Files)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"code": 1, "reason": reason(err)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "result": entries})
	})

	return router
}

// reason maps the error taxonomy onto the short strings the web layer
// already knows.
func reason(err error) string {
	switch {
	case errors.Is(err, control.ErrNotConfigured):
		return "not configured"
	case errors.Is(err, control.ErrNoMediaServer):
		return "no media server"
	}
	return err.Error()
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

func accessLog(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Levelf(log.Info, "%s %s %d %s rid=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Millisecond), c.GetString("request_id"))
	}
}

// Serve runs the API until ctx is cancelled.
func Serve(ctx context.Context, addr string, ctrl *control.Controller, logger log.Logger) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(ctrl, logger),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
