package middleware

import (
	"net/http"
	"strings"

	"github.com/pylon-dev/pylon"
)

// Authenticator verifies a bearer token extracted from a request and
// returns the auth tags it grants.
type Authenticator interface {
	Authenticate(token string) (tags []string, err error)
}

// AuthConfig configures the order-400 auth middleware, grounded on
// air's gases/jwt.go TokenLookup/extractor convention, generalized to any
// Authenticator rather than hard-coding JWT.
type AuthConfig struct {
	Skipper     Skipper
	Authn       Authenticator
	TokenLookup string // "header:<name>" | "query:<name>" | "cookie:<name>"
}

// DefaultAuthConfig extracts the bearer token from the Authorization
// header.
var DefaultAuthConfig = AuthConfig{Skipper: defaultSkipper, TokenLookup: "header:Authorization"}

func (c *AuthConfig) fill() {
	if c.Skipper == nil {
		c.Skipper = DefaultAuthConfig.Skipper
	}
	if c.TokenLookup == "" {
		c.TokenLookup = DefaultAuthConfig.TokenLookup
	}
}

// Auth returns the order-400 middleware using authn to verify tokens.
func Auth(authn Authenticator) pylon.Middleware {
	return AuthWithConfig(AuthConfig{Authn: authn})
}

// AuthWithConfig returns the order-400 middleware built from config.
func AuthWithConfig(config AuthConfig) pylon.Middleware {
	config.fill()
	parts := strings.SplitN(config.TokenLookup, ":", 2)
	source, name := parts[0], ""
	if len(parts) == 2 {
		name = parts[1]
	}

	return pylon.NewMiddleware(pylon.OrderAuth, func(next pylon.Handler) pylon.Handler {
		return func(req *pylon.Request, res *pylon.Response) error {
			if config.Skipper(req) || config.Authn == nil {
				return next(req, res)
			}

			token := extractToken(req, source, name)
			if token == "" {
				return next(req, res) // unauthenticated routes remain accessible; route-level filter enforces tags
			}

			tags, err := config.Authn.Authenticate(token)
			if err != nil {
				return pylon.ErrNotAuthenticated
			}

			req.AuthTags = append(req.AuthTags, tags...)

			return next(req, res)
		}
	})
}

func extractToken(req *pylon.Request, source, name string) string {
	switch source {
	case "query":
		return req.Query.Get(name)
	case "cookie":
		if c, err := (&http.Request{Header: req.Header}).Cookie(name); err == nil {
			return c.Value
		}
		return ""
	default:
		auth := req.Header.Get(name)
		const bearer = "Bearer "
		if strings.HasPrefix(auth, bearer) {
			return strings.TrimPrefix(auth, bearer)
		}
		return ""
	}
}
