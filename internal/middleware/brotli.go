package middleware

import (
	"bytes"
	"mime"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// DefaultBrotliMinLength is the smallest body worth compressing.
const DefaultBrotliMinLength = 1024

// compressibleTypes are the response types the API produces in bulk.
// Uploaded files (PDF, images) are already compressed and pass through.
var compressibleTypes = map[string]bool{
	"application/json": true,
	"text/plain":       true,
	"text/html":        true,
}

// brotliWriter holds back the first minLength bytes so it can decide,
// with the handler's headers in place, whether the response is worth
// compressing.
type brotliWriter struct {
	gin.ResponseWriter
	br        *brotli.Writer
	quality   int
	minLength int
	buf       bytes.Buffer
	decided   bool
	compress  bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	if w.decided {
		return w.out(data)
	}
	w.buf.Write(data)
	if w.buf.Len() < w.minLength {
		return len(data), nil
	}
	w.decide()
	if _, err := w.out(w.buf.Bytes()); err != nil {
		return 0, err
	}
	w.buf.Reset()
	return len(data), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush switches streaming responses to plain output.
func (w *brotliWriter) Flush() {
	if !w.decided {
		w.decided = true
		_, _ = w.ResponseWriter.Write(w.buf.Bytes())
		w.buf.Reset()
	}
	if w.compress {
		_ = w.br.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *brotliWriter) decide() {
	w.decided = true
	h := w.ResponseWriter.Header()
	if h.Get("Content-Encoding") != "" || !compressible(h.Get("Content-Type")) {
		return
	}
	w.compress = true
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	w.br = brotli.NewWriterLevel(w.ResponseWriter, w.quality)
}

func (w *brotliWriter) out(p []byte) (int, error) {
	if w.compress {
		return w.br.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

// finish writes whatever is still buffered. Short bodies never reach the
// threshold and go out uncompressed.
func (w *brotliWriter) finish() error {
	if !w.decided {
		w.decided = true
		if w.buf.Len() == 0 {
			return nil
		}
		_, err := w.ResponseWriter.Write(w.buf.Bytes())
		return err
	}
	if w.compress {
		return w.br.Close()
	}
	return nil
}

// Brotli compresses JSON and text responses for clients that accept br.
func Brotli(quality, minLength int) gin.HandlerFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}
	if minLength <= 0 {
		minLength = DefaultBrotliMinLength
	}

	return func(c *gin.Context) {
		if isStreamRequest(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer, quality: quality, minLength: minLength}
		c.Writer = bw
		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

// isStreamRequest reports whether the request expects a live stream; the
// WebSocket handshake fails if its response is wrapped.
func isStreamRequest(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket") ||
		strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

func compressible(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && compressibleTypes[mt]
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(enc, ";")
		if strings.EqualFold(strings.TrimSpace(name), "br") {
			return true
		}
	}
	return false
}
