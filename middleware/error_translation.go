package middleware

import (
	"fmt"
	"runtime"

	"github.com/pylon-dev/pylon"
)

// ErrorTranslationConfig configures the order-100 error-translation
// middleware, which recovers panics into KindInternal errors. Errors a
// downstream handler returns are passed up unchanged; the Dispatcher turns
// them into a populated Response via the fixed kind-to-status table of
// §4.6/§7. Grounded on gases/recover.go's runtime.Stack-based panic capture.
type ErrorTranslationConfig struct {
	Skipper Skipper
	// OnPanic is invoked with the recovered value and stack, primarily for
	// logging; may be nil.
	OnPanic func(recovered interface{}, stack []byte)
}

// DefaultErrorTranslationConfig is the default error-translation config.
var DefaultErrorTranslationConfig = ErrorTranslationConfig{Skipper: defaultSkipper}

func (c *ErrorTranslationConfig) fill() {
	if c.Skipper == nil {
		c.Skipper = DefaultErrorTranslationConfig.Skipper
	}
}

// ErrorTranslation returns the order-100 middleware with default config.
func ErrorTranslation() pylon.Middleware {
	return ErrorTranslationWithConfig(DefaultErrorTranslationConfig)
}

// ErrorTranslationWithConfig returns the order-100 middleware built from
// config.
func ErrorTranslationWithConfig(config ErrorTranslationConfig) pylon.Middleware {
	config.fill()

	return pylon.NewMiddleware(pylon.OrderErrorTranslation, func(next pylon.Handler) pylon.Handler {
		return func(req *pylon.Request, res *pylon.Response) (err error) {
			if config.Skipper(req) {
				return next(req, res)
			}

			defer func() {
				if r := recover(); r != nil {
					stack := make([]byte, 4096)
					n := runtime.Stack(stack, false)
					stack = stack[:n]
					if config.OnPanic != nil {
						config.OnPanic(r, stack)
					}
					err = pylon.NewError(pylon.KindInternal, fmt.Sprintf("panic: %v", r))
				}
			}()

			return next(req, res)
		}
	})
}
