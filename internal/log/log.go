package log

import (
	"os"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() { current.Store(zap.NewNop()) }

// Init builds the process logger. production selects the JSON encoder; a
// non-empty file adds a second sink next to stderr.
func Init(env, file string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	if file != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, file)
	}
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	SetLogger(l)
	return l, nil
}

// SetLogger replaces the process logger.
func SetLogger(l *zap.Logger) { current.Store(l) }

func L() *zap.Logger { return current.Load() }

func write(level zapcore.Level, c *fiber.Ctx, action string, err error, fields map[string]any) {
	l := current.Load()
	if ce := l.Check(level, action); ce != nil {
		fs := make([]zap.Field, 0, len(fields)+7)
		fs = append(fs, zap.String("action", action))
		if c != nil {
			fs = append(fs,
				zap.String("ip", c.IP()),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().StatusCode()),
			)
			if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
				fs = append(fs, zap.String("req_id", rid))
			}
		}
		if err != nil {
			fs = append(fs, zap.Error(err))
		}
		for k, v := range fields {
			fs = append(fs, zap.Any(k, v))
		}
		ce.Write(fs...)
	}
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.InfoLevel, c, action, nil, fields)
}

func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.InfoLevel, c, action, nil, withAudit(fields))
}

func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.WarnLevel, c, action, nil, fields)
}

func Warn(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.WarnLevel, c, action, nil, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(zapcore.ErrorLevel, c, action, err, fields)
}

func Sync() { _ = current.Load().Sync() }

func withAudit(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["audit"] = true
	return out
}

// Fatal logs and exits; used only during startup.
func Fatal(action string, err error) {
	write(zapcore.ErrorLevel, nil, action, err, nil)
	Sync()
	os.Exit(1)
}
