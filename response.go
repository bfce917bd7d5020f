package pylon

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pylon-dev/pylon/codec"
)

// MediaTypeOverride names an explicit media type for a returned value.
// SetResult does not consult it; the override SetResult reads is the
// WithMediaType option, without which mapping/sequence values are
// serialized as application/json.
type MediaTypeOverride struct {
	MediaType string
}

// ResultOption configures how Response.SetResult serializes its value.
type ResultOption func(*resultConfig)

type resultConfig struct {
	mediaType string
}

// WithMediaType overrides the inferred media type for a SetResult call.
func WithMediaType(mediaType string) ResultOption {
	return func(c *resultConfig) { c.mediaType = mediaType }
}

// Response is the transport-neutral outbound response model. A Dispatcher
// builds one per request, handlers mutate it via SetResult/SetError/
// SetHeader, and the Dispatcher hands the finished Response to the
// transport for emission.
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Written bool

	req         *Request
	gzippable   bool
	deferred    []func()
	mu          sync.Mutex
}

// NewResponse builds a Response bound to req, defaulting to 200 with an
// empty header set, mirroring air's Response.reset defaults.
func NewResponse(req *Request) *Response {
	return &Response{
		Status: http.StatusOK,
		Header: make(http.Header),
		req:    req,
	}
}

// SetHeader sets a response header, canonicalizing the key as net/http does.
func (res *Response) SetHeader(key, value string) {
	res.Header.Set(key, value)
}

// SetResult serializes value onto the response body, applying the media
// type resolution rules of §4.2:
//   - string/[]byte -> text/plain or application/octet-stream
//   - file paths are not recognized here: a string is always text/plain;
//     SetFile is the method that resolves a type via mime.TypeByExtension
//   - map/slice values -> application/json, unless WithMediaType overrides it
//   - values already typed-codec tagged are passed through pylon/codec when
//     the originating request was typed
func (res *Response) SetResult(value interface{}, opts ...ResultOption) error {
	cfg := &resultConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch v := value.(type) {
	case string:
		res.Body = []byte(v)
		res.setDefaultContentType(cfg.mediaType, "text/plain; charset=utf-8")
		return nil
	case []byte:
		res.Body = v
		res.setDefaultContentType(cfg.mediaType, "application/octet-stream")
		return nil
	default:
		mode := codec.ModeJSON
		mediaType := cfg.mediaType
		if mediaType == "" {
			mediaType = "application/json"
		}
		if mediaType == "application/vnd.pylon.typed+msgpack" {
			mode = codec.ModeMsgpack
		}
		data, err := codec.Marshal(value, mode, res.req != nil && res.req.Typed)
		if err != nil {
			return Wrap(KindInternal, err)
		}
		res.Body = data
		res.setDefaultContentType(cfg.mediaType, mediaType)
		return nil
	}
}

func (res *Response) setDefaultContentType(explicit, fallback string) {
	if explicit != "" {
		res.Header.Set("Content-Type", explicit)
		return
	}
	if res.Header.Get("Content-Type") == "" {
		res.Header.Set("Content-Type", fallback)
	}
}

// SetFile points the response at a filesystem path whose extension decides
// the content type via mime.TypeByExtension — deliberately not content-
// sniffed; see DESIGN.md for why the teacher's mimesniffer dependency was
// dropped.
func (res *Response) SetFile(path string, content []byte) {
	res.Body = content
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	res.Header.Set("Content-Type", ct)
}

// SetError translates err into the response body and status using the
// fixed kind-to-status table (§4.6/§7).
func (res *Response) SetError(err error) {
	pe := AsError(err)
	res.Status = pe.Status()
	body, _ := json.Marshal(map[string]string{
		"error":   pe.Kind.String(),
		"message": pe.Message,
	})
	res.Body = body
	res.Header.Set("Content-Type", "application/json")
}

// EnableCompression marks the response as eligible for gzip negotiation by
// the compression middleware (order 900), mirroring air's gzippable flag.
func (res *Response) EnableCompression() { res.gzippable = true }

// Defer registers a func to run after the response has been written to the
// transport, mirroring air.Response.Defer's deferredFuncs queue.
func (res *Response) Defer(f func()) {
	res.mu.Lock()
	defer res.mu.Unlock()
	res.deferred = append(res.deferred, f)
}

// runDeferred runs every deferred func in LIFO order, matching air's
// Response.Write defer-execution order.
func (res *Response) runDeferred() {
	res.mu.Lock()
	fs := res.deferred
	res.deferred = nil
	res.mu.Unlock()
	for i := len(fs) - 1; i >= 0; i-- {
		fs[i]()
	}
}

// WriteTo emits the response onto an HTTP transport, applying gzip
// compression when both the client and the response opt in, mirroring
// air.Response's handleGzip/countWriter chaining.
func (res *Response) WriteTo(w http.ResponseWriter, acceptEncoding string) error {
	defer res.runDeferred()

	hdr := w.Header()
	for k, vs := range res.Header {
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}

	body := res.Body
	if res.gzippable && strings.Contains(acceptEncoding, "gzip") && len(body) > 0 {
		hdr.Set("Content-Encoding", "gzip")
		hdr.Del("Content-Length")
		w.WriteHeader(res.Status)
		gw := gzip.NewWriter(w)
		defer gw.Close()
		_, err := gw.Write(body)
		res.Written = true
		return err
	}

	w.WriteHeader(res.Status)
	var err error
	if len(body) > 0 {
		_, err = w.Write(body)
	}
	res.Written = true
	return err
}

// copyBody reads and returns an io.ReadCloser body in full, respecting the
// configured max-body-bytes limit (§8, ErrBodyTooLarge).
func copyBody(body io.ReadCloser, maxBytes int64) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	defer body.Close()
	limited := io.LimitReader(body, maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}
