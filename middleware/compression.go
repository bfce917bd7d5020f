package middleware

import "github.com/pylon-dev/pylon"

// CompressionConfig configures the order-900 compression middleware,
// grounded on air's response.go gzip handling (gzippable flag,
// handleGzip).
type CompressionConfig struct {
	Skipper  Skipper
	MinBytes int
}

// DefaultCompressionConfig enables compression for bodies of any size.
var DefaultCompressionConfig = CompressionConfig{Skipper: defaultSkipper}

func (c *CompressionConfig) fill() {
	if c.Skipper == nil {
		c.Skipper = DefaultCompressionConfig.Skipper
	}
}

// Compression returns the order-900 middleware with default config.
func Compression() pylon.Middleware {
	return CompressionWithConfig(DefaultCompressionConfig)
}

// CompressionWithConfig returns the order-900 middleware built from
// config: it marks eligible responses compressible, leaving the actual
// gzip negotiation to Response.WriteTo at transport-emission time.
func CompressionWithConfig(config CompressionConfig) pylon.Middleware {
	config.fill()

	return pylon.NewMiddleware(pylon.OrderCompression, func(next pylon.Handler) pylon.Handler {
		return func(req *pylon.Request, res *pylon.Response) error {
			if config.Skipper(req) {
				return next(req, res)
			}
			if err := next(req, res); err != nil {
				return err
			}
			if len(res.Body) >= config.MinBytes {
				res.EnableCompression()
			}
			return nil
		}
	})
}
