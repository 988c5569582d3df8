package logger

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey stores the request identifier on a context.Context.
type RequestIDKey struct{}

var (
	global     *zap.Logger
	initLogger sync.Once
)

// New builds the process-wide logger once and returns it on every call.
// Production gets JSON output; any other environment gets the colored
// development encoder.
func New(env string) (*zap.Logger, error) {
	var err error
	initLogger.Do(func() {
		global, err = buildConfig(env).Build()
	})
	return global, err
}

func buildConfig(env string) zap.Config {
	if env == "production" {
		return zap.NewProductionConfig()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// WithContext returns the global logger enriched with the request identifier
// carried by ctx, when one is present.
func WithContext(ctx context.Context) *zap.Logger {
	if global == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	if ctx == nil {
		return global
	}
	return global.With(zap.String("request_id", requestIDFromContext(ctx)))
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey{}).(string)
	return id
}

// Log lines never carry raw PII; the helpers below reduce identifiers to a
// recognizable but non-reversible form before they are logged.

var emailRegex = regexp.MustCompile(`^([^@]{1,3})[^@]*(@.+)$`)

// MaskEmail keeps at most the first 3 characters of the local part and the
// full domain: john.doe@example.com becomes joh***@example.com.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	if matches := emailRegex.FindStringSubmatch(email); len(matches) == 3 {
		return matches[1] + "***" + matches[2]
	}
	if _, domain, found := strings.Cut(email, "@"); found {
		return "***@" + domain
	}
	return "***"
}

// MaskIP keeps the first 2 octets of an IPv4 address or the first 4 groups
// of an IPv6 address.
func MaskIP(ip string) string {
	switch {
	case ip == "":
		return ""
	case strings.Contains(ip, "."):
		if parts := strings.Split(ip, "."); len(parts) == 4 {
			return parts[0] + "." + parts[1] + ".*.*"
		}
	case strings.Contains(ip, ":"):
		if parts := strings.Split(ip, ":"); len(parts) >= 4 {
			return strings.Join(parts[:4], ":") + ":*:*:*:*"
		}
	}
	return "***"
}

// MaskString keeps the first and last 2 characters of any other sensitive
// value.
func MaskString(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "***"
	default:
		return s[:2] + "***" + s[len(s)-2:]
	}
}
