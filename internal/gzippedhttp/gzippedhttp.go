// Package gzippedhttp accepts gzip-compressed request bodies. Response
// compression is left to chi's middleware.Compress.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/catfinder/internal/logger"
)

// CompressedReader wraps an io.ReadCloser and decompresses its input using gzip.
type CompressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

// NewCompressedReader returns a new CompressedReader that reads gzip-compressed data
// from the provided io.ReadCloser.
func NewCompressedReader(requestBody io.ReadCloser) (*CompressedReader, error) {
	zippedRequestBody, err := gzip.NewReader(requestBody)
	if err != nil {
		return nil, err
	}

	return &CompressedReader{
		r:  requestBody,
		zr: zippedRequestBody,
	}, nil
}

func (c *CompressedReader) Read(p []byte) (n int, err error) {
	return c.zr.Read(p)
}

// Close closes both the gzip reader and the underlying io.ReadCloser.
func (c *CompressedReader) Close() error {
	if err := c.r.Close(); err != nil {
		return err
	}
	return c.zr.Close()
}

// UngzipRequest replaces the body of a request sent with
// "Content-Encoding: gzip" by its decompressed stream. A body that is not
// valid gzip is rejected with 400.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			body, err := NewCompressedReader(request.Body)
			if err != nil {
				logger.Log.Debugw("Error calling the `NewCompressedReader()`", zap.Error(err))
				http.Error(response, "malformed gzip body", http.StatusBadRequest)
				return
			}
			defer body.Close()

			request.Body = body
			request.Header.Del("Content-Encoding")
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
