package middleware

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/sfi2k7/blueroute"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// Compression level, -1 to 9
	Level int

	// Minimum body size in bytes before compressing
	MinSize int

	// Content types to compress
	Types []string

	// Content types to exclude
	ExcludeTypes []string

	// Paths to exclude
	ExcludePaths []string
}

// DefaultCompressionConfig compresses text like bodies of 1KB or more
var DefaultCompressionConfig = CompressionConfig{
	Level:   gzip.DefaultCompression,
	MinSize: 1024, // 1KB
	Types: []string{
		"text/html",
		"text/css",
		"text/plain",
		"text/javascript",
		"application/javascript",
		"application/json",
		"application/xml",
		"application/yaml",
		"image/svg+xml",
		"application/wasm",
	},
	ExcludeTypes: []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"audio/",
		"video/",
	},
}

type compressor interface {
	io.WriteCloser
	Reset(io.Writer)
}

type compressionPool struct {
	gzipPool    sync.Pool
	deflatePool sync.Pool
}

// Compression encodes response bodies with gzip or deflate when the client
// accepts it.
func Compression(config ...CompressionConfig) blueroute.Middleware {
	cfg := DefaultCompressionConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	pool := &compressionPool{
		gzipPool: sync.Pool{
			New: func() interface{} {
				gz, err := gzip.NewWriterLevel(nil, cfg.Level)
				if err != nil {
					gz = gzip.NewWriter(nil)
				}
				return gz
			},
		},
		deflatePool: sync.Pool{
			New: func() interface{} {
				df, err := zlib.NewWriterLevel(nil, cfg.Level)
				if err != nil {
					df = zlib.NewWriter(nil)
				}
				return df
			},
		},
	}

	return blueroute.MiddlewareFunc(func(c *blueroute.Context, next blueroute.Handler) (*blueroute.Response, error) {
		res, err := next.Handle(c)
		if err != nil || res == nil || shouldSkipCompression(c, res, &cfg) {
			return res, err
		}

		encoding, p := pool.pick(c.Header("Accept-Encoding"))
		if p == nil {
			return res, nil
		}

		body, cerr := compress(p, res.Body)
		if cerr != nil {
			return nil, cerr
		}

		res.Body = body
		if res.Header == nil {
			res.Header = http.Header{}
		}
		res.Header.Set("Content-Encoding", encoding)
		res.Header.Add("Vary", "Accept-Encoding")
		res.Header.Del("Content-Length")
		return res, nil
	})
}

func shouldSkipCompression(c *blueroute.Context, res *blueroute.Response, cfg *CompressionConfig) bool {
	if len(res.Body) < cfg.MinSize || !bodyStatus(res.Status) {
		return true
	}

	if res.Header.Get("Content-Encoding") != "" {
		return true
	}

	for _, path := range cfg.ExcludePaths {
		if strings.HasPrefix(c.Path(), path) {
			return true
		}
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	for _, excluded := range cfg.ExcludeTypes {
		if strings.HasPrefix(contentType, excluded) {
			return true
		}
	}
	for _, included := range cfg.Types {
		if strings.HasPrefix(contentType, included) {
			return false
		}
	}
	return true
}

func bodyStatus(status int) bool {
	return status == 0 || (status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified)
}

// pick prefers gzip over deflate
func (p *compressionPool) pick(acceptEncoding string) (string, *sync.Pool) {
	var gz, deflate bool
	for _, part := range strings.Split(acceptEncoding, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.ReplaceAll(strings.TrimSpace(params), " ", "") == "q=0" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(coding)) {
		case "gzip":
			gz = true
		case "deflate":
			deflate = true
		}
	}

	switch {
	case gz:
		return "gzip", &p.gzipPool
	case deflate:
		return "deflate", &p.deflatePool
	}
	return "", nil
}

func compress(pool *sync.Pool, body []byte) ([]byte, error) {
	w := pool.Get().(compressor)
	defer pool.Put(w)

	var buf bytes.Buffer
	w.Reset(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, errors.Wrap(err, "compress response")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "compress response")
	}
	return buf.Bytes(), nil
}
