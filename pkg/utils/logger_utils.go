package utils

import (
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
)

// InitLogger configures the global zerolog logger. format "json" writes raw
// JSON lines for log shippers; anything else uses the console writer.
func InitLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var base zerolog.Logger
	if strings.EqualFold(format, "json") {
		base = zerolog.New(os.Stdout)
	} else {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	log.Logger = base.With().Timestamp().Str("service", "gaming-lounge").Logger()

	log.Info().Str("level", lvl.String()).Str("format", format).Msg("Logger initialized")
}

// RequestID tags every request with an id, reusing the caller's X-Request-ID
// when present, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// GinLogger logs one line per request at a level picked from the status.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		event := eventForStatus(status).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status_code", status).
			Dur("latency", time.Since(started)).
			Str("client_ip", c.ClientIP())
		if id := RequestIDFrom(c); id != "" {
			event = event.Str("request_id", id)
		}
		if user := c.GetString("username"); user != "" {
			event = event.Str("staff", user)
		}
		if len(c.Errors) > 0 {
			event = event.Str("gin_errors", c.Errors.String())
		}
		event.Msg("Request processed")
	}
}

func eventForStatus(status int) *zerolog.Event {
	switch {
	case status >= 500:
		return log.Error()
	case status >= 400:
		return log.Warn()
	default:
		return log.Info()
	}
}

func emit(event *zerolog.Event, message string, fields []map[string]interface{}) {
	for _, f := range fields {
		event = event.Fields(f)
	}
	event.Msg(message)
}

// LogError logs err; a nil err is ignored.
func LogError(err error, message string, fields ...map[string]interface{}) {
	if err == nil {
		return
	}
	emit(log.Error().Err(err), message, fields)
}

// LogWarn logs a warning, optionally carrying the error that caused it.
func LogWarn(err error, message string, fields ...map[string]interface{}) {
	event := log.Warn()
	if err != nil {
		event = event.Err(err)
	}
	emit(event, message, fields)
}

func LogInfo(message string, fields ...map[string]interface{}) {
	emit(log.Info(), message, fields)
}

func LogDebug(message string, fields ...map[string]interface{}) {
	emit(log.Debug(), message, fields)
}
