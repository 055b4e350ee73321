// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/go-accounts/internal/config"
	"codeberg.org/oliverandrich/go-accounts/internal/handlers"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// HeaderAccountID names the account the caller acts as. It is set by the
// gateway in front of the service.
const HeaderAccountID = "X-Account-ID"

// MePath replaces the caller's own account path in responses.
const MePath = "/v1/me"

func setupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	e.Use(selfLinks())
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURIPath:   true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			// The path only, so tokens in query strings stay out of the log
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				slog.LogAttrs(c.Request().Context(), slog.LevelError, "request", attrs...)
			} else {
				slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			}

			return nil
		},
	})
}

// selfLinks rewrites links to the caller's own account in JSON responses to
// MePath.
func selfLinks() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			accountID := strings.TrimSpace(c.Request().Header.Get(HeaderAccountID))
			if accountID == "" || strings.ContainsAny(accountID, `"/`) {
				return next(c)
			}

			res := c.Response()
			original := res.Writer
			buf := &bufferedWriter{ResponseWriter: original, status: http.StatusOK}
			res.Writer = buf
			defer func() { res.Writer = original }()

			err := next(c)

			body := buf.body.Bytes()
			if strings.HasPrefix(original.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
				body = rewriteSelfLinks(body, handlers.AccountPath(accountID))
				original.Header().Del(echo.HeaderContentLength)
			}
			if buf.wroteHeader {
				original.WriteHeader(buf.status)
			}
			if len(body) > 0 {
				if _, writeErr := original.Write(body); writeErr != nil && err == nil {
					err = writeErr
				}
			}
			return err
		}
	}
}

// rewriteSelfLinks replaces path and its sub-paths inside JSON strings.
func rewriteSelfLinks(body []byte, path string) []byte {
	quoted := []byte(`"` + path)
	if !bytes.Contains(body, quoted) {
		return body
	}
	body = bytes.ReplaceAll(body, []byte(`"`+path+`"`), []byte(`"`+MePath+`"`))
	return bytes.ReplaceAll(body, []byte(`"`+path+`/`), []byte(`"`+MePath+`/`))
}

// bufferedWriter holds back the response until the handler is done.
type bufferedWriter struct {
	http.ResponseWriter
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (w *bufferedWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}
