// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package server exposes the conversion engine over HTTP. It owns the
// policies the engine leaves to its caller: the upload size limit, the
// request deadline, and MIME sniffing for undeclared uploads.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	fileconvert "github.com/nicholasgasior/fileconvert-go"
)

// Defaults for Config fields left zero.
const (
	DefaultAddr           = ":8080"
	DefaultMaxUploadBytes = 50 << 20
	DefaultTimeout        = 60 * time.Second
)

// Converter is the part of *fileconvert.Engine the server uses.
type Converter interface {
	Convert(ctx context.Context, req fileconvert.Request) (*fileconvert.Result, error)
	Routes() []fileconvert.RouteInfo
}

// Config holds the transport policies.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	Timeout        time.Duration
	Logger         *slog.Logger
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server is the HTTP front end of a Converter.
type Server struct {
	conv   Converter
	cfg    Config
	logger *slog.Logger
}

// New creates a Server.
func New(conv Converter, cfg Config) *Server {
	cfg.defaults()
	return &Server{conv: conv, cfg: cfg, logger: cfg.Logger}
}

// Handler returns the chi router serving all endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/formats", s.handleFormats)

	r.Group(func(r chi.Router) {
		r.Use(s.deadline)
		r.Post("/convert", s.handleConvert)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// deadline bounds the request context by the configured timeout. The
// converter observes it and reports Canceled, which the handler answers with
// 503; no status is written here.
func (s *Server) deadline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// errorBody is the JSON shape of every failed conversion response.
type errorBody struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	Causes      []string `json:"causes,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

const kindTooLarge = "too_large"

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error:   kindTooLarge,
				Message: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   string(fileconvert.KindMalformedInput),
			Message: fmt.Sprintf("parse multipart form: %v", err),
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   string(fileconvert.KindMalformedInput),
			Message: "missing \"file\" part",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   string(fileconvert.KindMalformedInput),
			Message: fmt.Sprintf("read upload: %v", err),
		})
		return
	}

	declared, charset := declaredType(header.Header.Get("Content-Type"), data)
	res, err := s.conv.Convert(r.Context(), fileconvert.Request{
		Data:     data,
		Filename: header.Filename,
		MIMEType: declared,
		Charset:  charset,
		Output:   r.FormValue("format"),
	})
	if err != nil {
		s.writeConversionError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.Header().Set("X-Conversion-Pipeline", res.Pipeline)
	if res.Diagnostic {
		w.Header().Set("X-Conversion-Diagnostic", "true")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Payload)
}

// declaredType returns the upload's MIME type without parameters and its
// declared charset parameter. Missing or generic types are filled in by
// sniffing; a sniffed charset is not used as a hint.
func declaredType(contentType string, data []byte) (string, string) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		sniffed, _, _ := mime.ParseMediaType(mimetype.Detect(data).String())
		return sniffed, params["charset"]
	}
	return mediaType, params["charset"]
}

func (s *Server) writeConversionError(w http.ResponseWriter, err error) {
	body := errorBody{Error: string(fileconvert.KindInternalFault), Message: err.Error()}
	var ce *fileconvert.ConversionError
	if errors.As(err, &ce) {
		body.Error = string(ce.Kind)
		body.Message = ce.Message
		if ce.Diagnostics != nil {
			body.Causes = ce.Diagnostics.Causes
			body.Suggestions = ce.Diagnostics.Suggestions
		}
	}
	writeJSON(w, statusFor(fileconvert.KindOf(err)), body)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind fileconvert.ErrorKind) int {
	switch kind {
	case fileconvert.KindUnsupported, fileconvert.KindMalformedInput:
		return http.StatusBadRequest
	case fileconvert.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type routeView struct {
	Source   string `json:"source"`
	Output   string `json:"output"`
	Pipeline string `json:"pipeline"`
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	var outputs []string
	for _, k := range fileconvert.OutputKinds() {
		outputs = append(outputs, string(k))
	}
	var routes []routeView
	for _, ri := range s.conv.Routes() {
		routes = append(routes, routeView{
			Source:   string(ri.Source),
			Output:   string(ri.Output),
			Pipeline: ri.Pipeline,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outputs": outputs,
		"routes":  routes,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
