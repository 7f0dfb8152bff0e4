package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacentio/fundraiser/resolver"
)

// Headers that stand in for the Cognito identity AppSync would attach.
const (
	userHeader   = "X-Dev-User"
	groupsHeader = "X-Dev-Groups"
)

func newServer(h *resolver.Handler, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/graphql-resolver", resolve(h))
	return e
}

// resolve accepts the direct Lambda resolver payload, a single event or a
// batch, and returns what the Lambda would.
func resolve(h *resolver.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		payload := json.RawMessage(body)
		if sub := c.Request().Header.Get(userHeader); sub != "" {
			if payload, err = withIdentity(payload, sub, c.Request().Header.Get(groupsHeader)); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
		}

		out, err := h.Invoke(c.Request().Context(), payload)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, out)
	}
}

// withIdentity sets the caller on every event of payload that carries none.
func withIdentity(payload json.RawMessage, sub, groups string) (json.RawMessage, error) {
	identity := &events.AppSyncCognitoIdentity{Sub: sub, Username: sub}
	if groups != "" {
		identity.Claims = map[string]interface{}{resolver.GroupsClaim: groups}
	}

	if trimmed := strings.TrimSpace(string(payload)); strings.HasPrefix(trimmed, "[") {
		var evs []resolver.Event
		if err := json.Unmarshal(payload, &evs); err != nil {
			return nil, err
		}
		for i := range evs {
			if evs[i].Identity == nil {
				evs[i].Identity = identity
			}
		}
		return json.Marshal(evs)
	}

	var ev resolver.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	if ev.Identity == nil {
		ev.Identity = identity
	}
	return json.Marshal(ev)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("uri", req.URL.Path),
				slog.Int("status", status),
				slog.Duration("latency", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}

			level := slog.LevelInfo
			if status >= 400 {
				level = slog.LevelWarn
			}
			if status >= 500 {
				level = slog.LevelError
			}
			logger.LogAttrs(context.Background(), level, "HTTP request", attrs...)
			return nil
		}
	}
}
