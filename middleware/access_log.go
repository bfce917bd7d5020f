package middleware

import (
	"time"

	"github.com/pylon-dev/pylon"
)

// AccessLogConfig configures the order-200 request-logging middleware,
// grounded texturally on rivaas/router/middleware/accesslog's
// per-request duration logging.
type AccessLogConfig struct {
	Skipper Skipper
	Log     func(entry AccessLogEntry)
}

// AccessLogEntry is one structured access-log record.
type AccessLogEntry struct {
	RequestID string
	Method    string
	Path      string
	Status    int
	Duration  time.Duration
}

// DefaultAccessLogConfig is the default access-log config; its Log func
// must be supplied by callers via AccessLogWithConfig, since there is no
// sensible default sink.
var DefaultAccessLogConfig = AccessLogConfig{Skipper: defaultSkipper}

func (c *AccessLogConfig) fill() {
	if c.Skipper == nil {
		c.Skipper = DefaultAccessLogConfig.Skipper
	}
	if c.Log == nil {
		c.Log = func(AccessLogEntry) {}
	}
}

// AccessLog returns the order-200 middleware, logging to log.
func AccessLog(log func(AccessLogEntry)) pylon.Middleware {
	return AccessLogWithConfig(AccessLogConfig{Log: log})
}

// AccessLogWithConfig returns the order-200 middleware built from config.
func AccessLogWithConfig(config AccessLogConfig) pylon.Middleware {
	config.fill()

	return pylon.NewMiddleware(pylon.OrderRequestLogging, func(next pylon.Handler) pylon.Handler {
		return func(req *pylon.Request, res *pylon.Response) error {
			if config.Skipper(req) {
				return next(req, res)
			}

			start := time.Now()
			err := next(req, res)
			config.Log(AccessLogEntry{
				RequestID: req.ID,
				Method:    req.Method,
				Path:      req.Path,
				Status:    res.Status,
				Duration:  time.Since(start),
			})
			return err
		}
	})
}
