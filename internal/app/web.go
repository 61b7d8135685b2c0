// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relabs-tech/sensor_monitor/internal/export"
	"github.com/relabs-tech/sensor_monitor/internal/session"
)

// NewRouter builds the HTTP shell. It exposes the same actions as the
// console plus a WebSocket feed of readings and state changes.
func NewRouter(a *App, hub *Hub) *gin.Engine {
	logger := a.Logger.WithPrefix("web")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "took", time.Since(start))
	})

	api := router.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.Status())
	})

	api.POST("/session/start", func(c *gin.Context) {
		err := a.Session.Start()
		var cerr *session.ConnectionError
		switch {
		case errors.Is(err, session.ErrAlreadyConnected):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "status": a.Status()})
		case errors.As(err, &cerr):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "status": a.Status()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, a.Status())
		}
	})

	api.POST("/session/stop", func(c *gin.Context) {
		a.Session.Stop()
		c.JSON(http.StatusOK, a.Status())
	})

	api.POST("/export", func(c *gin.Context) {
		path, err := a.Export()
		switch {
		case errors.Is(err, export.ErrEmptyStore):
			c.JSON(http.StatusConflict, gin.H{"error": ExportMessage(path, err)})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": ExportMessage(path, err)})
		default:
			c.JSON(http.StatusOK, gin.H{"path": path, "message": ExportMessage(path, nil)})
		}
	})

	router.GET("/ws", hub.Serve)

	return router
}

// RunWeb serves the HTTP shell on addr until ctx is cancelled, then stops
// the session and shuts the server down.
func RunWeb(ctx context.Context, a *App, addr string) error {
	gin.SetMode(gin.ReleaseMode)

	hub := NewHub(a.Logger.WithPrefix("ws"))
	go hub.Run(ctx)
	hub.Attach(a)

	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(a, hub),
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("web server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.Session.Stop()
		return err
	case <-ctx.Done():
	}

	a.Session.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
