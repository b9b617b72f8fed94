// Package api wires the HTTP surface: health, the WebSocket entry
// point, the chat log views, and Prometheus metrics.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/internal/chatlog"
	ws "github.com/wicara-ai/wicara/internal/websocket"
)

// InitRoutes initializes all API routes.
func InitRoutes(e *echo.Echo, hub *ws.Hub, deps ws.Deps, logger *zap.Logger, metricsEnabled bool) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":          "ok",
			"service":         "wicara-server",
			"active_sessions": hub.ClientCount(),
		})
	})

	// WebSocket endpoint
	e.GET("/ws", func(c echo.Context) error {
		return ws.HandleWebSocket(hub, c, deps, logger)
	})

	// Chat log views
	if deps.ChatLog != nil {
		logs := e.Group("/logs")
		logs.GET("/recent", func(c echo.Context) error {
			return logsRecent(c, deps.ChatLog, logger)
		})
		logs.GET("/summary", func(c echo.Context) error {
			return logsSummary(c, deps.ChatLog, logger)
		})
		logs.GET("/export", func(c echo.Context) error {
			return logsExport(c, deps.ChatLog)
		})
		logs.POST("/clear", func(c echo.Context) error {
			return logsClear(c, deps.ChatLog, logger)
		})
	}

	// Prometheus metrics
	if metricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}

func logsRecent(c echo.Context, log *chatlog.Logger, logger *zap.Logger) error {
	limit := 50
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "limit must be an integer",
		})
	}

	entries, err := log.Recent(limit)
	if err != nil {
		logger.Error("Failed to read chat log", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to read chat log",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

func logsSummary(c echo.Context, log *chatlog.Logger, logger *zap.Logger) error {
	summary, err := log.Summarize()
	if err != nil {
		logger.Error("Failed to summarize chat log", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to summarize chat log",
		})
	}
	return c.JSON(http.StatusOK, summary)
}

func logsExport(c echo.Context, log *chatlog.Logger) error {
	data, err := log.Export()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to export chat log",
		})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="chat_logs.csv"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

func logsClear(c echo.Context, log *chatlog.Logger, logger *zap.Logger) error {
	if err := log.Clear(); err != nil {
		logger.Error("Failed to clear chat log", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to clear chat log",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
