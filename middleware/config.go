// Package middleware implements pylon's standard order-numbered middleware
// set (§4.5), each following the Config+Skipper+fill()+XxxWithConfig idiom
// grounded on air's gases/jwt.go, gases/cors.go, and gases/recover.go.
package middleware

import "github.com/pylon-dev/pylon"

// Skipper decides whether a middleware should be bypassed for req,
// mirroring gases.Skipper's role in the teacher.
type Skipper func(req *pylon.Request) bool

func defaultSkipper(*pylon.Request) bool { return false }
