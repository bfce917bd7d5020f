package middleware

import (
	"strconv"
	"strings"

	"github.com/pylon-dev/pylon"
)

// CORSConfig configures the order-300 CORS middleware, grounded on
// air's gases/cors.go, generalized from *air.Context to *pylon.Request/
// *pylon.Response.
type CORSConfig struct {
	Skipper          Skipper
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	ExposeHeaders    []string
	MaxAge           int
}

// DefaultCORSConfig is the default CORS config, allowing any origin with
// GET/HEAD/PUT/PATCH/POST/DELETE.
var DefaultCORSConfig = CORSConfig{
	Skipper:      defaultSkipper,
	AllowOrigins: []string{"*"},
	AllowMethods: []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
}

func (c *CORSConfig) fill() {
	if c.Skipper == nil {
		c.Skipper = DefaultCORSConfig.Skipper
	}
	if len(c.AllowOrigins) == 0 {
		c.AllowOrigins = DefaultCORSConfig.AllowOrigins
	}
	if len(c.AllowMethods) == 0 {
		c.AllowMethods = DefaultCORSConfig.AllowMethods
	}
}

// CORS returns the order-300 middleware with default config.
func CORS() pylon.Middleware {
	return CORSWithConfig(DefaultCORSConfig)
}

// CORSWithConfig returns the order-300 middleware built from config.
func CORSWithConfig(config CORSConfig) pylon.Middleware {
	config.fill()
	allowMethods := strings.Join(config.AllowMethods, ",")
	allowHeaders := strings.Join(config.AllowHeaders, ",")
	exposeHeaders := strings.Join(config.ExposeHeaders, ",")

	return pylon.NewMiddleware(pylon.OrderCORS, func(next pylon.Handler) pylon.Handler {
		return func(req *pylon.Request, res *pylon.Response) error {
			if config.Skipper(req) {
				return next(req, res)
			}

			origin := req.Header.Get("Origin")
			res.Header.Add("Vary", "Origin")

			allowed := false
			for _, o := range config.AllowOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}
			if allowed {
				if config.AllowOrigins[0] == "*" && !config.AllowCredentials {
					res.SetHeader("Access-Control-Allow-Origin", "*")
				} else {
					res.SetHeader("Access-Control-Allow-Origin", origin)
				}
				if config.AllowCredentials {
					res.SetHeader("Access-Control-Allow-Credentials", "true")
				}
				if exposeHeaders != "" {
					res.SetHeader("Access-Control-Expose-Headers", exposeHeaders)
				}
			}

			if req.Method == "OPTIONS" {
				res.Header.Add("Vary", "Access-Control-Request-Method")
				res.Header.Add("Vary", "Access-Control-Request-Headers")
				res.SetHeader("Access-Control-Allow-Methods", allowMethods)
				if allowHeaders != "" {
					res.SetHeader("Access-Control-Allow-Headers", allowHeaders)
				} else if h := req.Header.Get("Access-Control-Request-Headers"); h != "" {
					res.SetHeader("Access-Control-Allow-Headers", h)
				}
				if config.MaxAge > 0 {
					res.SetHeader("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
				}
				res.Status = 204
				return nil
			}

			return next(req, res)
		}
	})
}
