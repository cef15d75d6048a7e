package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// OpenAPIValidatorConfig controls request/response validation against the
// portal's OpenAPI document.
type OpenAPIValidatorConfig struct {
	Enabled  bool
	SpecPath string
	// ValidateRequests rejects requests that do not match the document.
	ValidateRequests bool
	// ValidateResponses checks outbound bodies too. Costly; off by default.
	ValidateResponses bool
	// SkipPaths are prefixes exempt from validation.
	SkipPaths []string
}

// DefaultOpenAPIValidatorConfig enables validation outside production and
// exempts the operational endpoints, which are not part of the contract.
func DefaultOpenAPIValidatorConfig() *OpenAPIValidatorConfig {
	env := os.Getenv("ENVIRONMENT")

	return &OpenAPIValidatorConfig{
		Enabled:           env != "production" && env != "prod",
		SpecPath:          "api/openapi.yaml",
		ValidateRequests:  true,
		ValidateResponses: false,
		SkipPaths:         []string{"/health", "/metrics"},
	}
}

// passthrough is the middleware used whenever validation cannot or should
// not run. Startup must never fail because the contract document is bad.
func passthrough(next http.Handler) http.Handler {
	return next
}

// OpenAPIValidator validates portal traffic against the OpenAPI document.
// A missing or invalid document downgrades to a no-op with an error log
// rather than refusing to serve.
func OpenAPIValidator(config *OpenAPIValidatorConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultOpenAPIValidatorConfig()
	}
	if !config.Enabled {
		slog.Info("OpenAPI validation disabled")
		return passthrough
	}

	router, err := loadContract(config.SpecPath)
	if err != nil {
		slog.Error("OpenAPI validation unavailable",
			slog.String("path", config.SpecPath),
			slog.String("error", err.Error()))
		return passthrough
	}

	slog.Info("OpenAPI validation enabled",
		slog.Bool("validate_requests", config.ValidateRequests),
		slog.Bool("validate_responses", config.ValidateResponses),
		slog.String("spec_path", config.SpecPath))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkipPath(r.URL.Path, config.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				if config.ValidateRequests {
					slog.Warn("request path not found in OpenAPI spec",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path))
					writeValidationError(w, fmt.Sprintf("Path not found in OpenAPI spec: %s %s", r.Method, r.URL.Path))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			reqInput := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}

			if config.ValidateRequests {
				if err := openapi3filter.ValidateRequest(context.Background(), reqInput); err != nil {
					slog.Warn("request validation failed",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()))
					writeValidationError(w, fmt.Sprintf("Request validation failed: %s", err.Error()))
					return
				}
			}

			if !config.ValidateResponses {
				next.ServeHTTP(w, r)
				return
			}

			capture := &capturingWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			// The response is already on the wire; a mismatch can only
			// be logged at this point.
			respInput := &openapi3filter.ResponseValidationInput{
				RequestValidationInput: reqInput,
				Status:                 capture.statusCode,
				Header:                 capture.Header(),
				Body:                   io.NopCloser(bytes.NewReader(capture.body)),
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}
			if err := openapi3filter.ValidateResponse(context.Background(), respInput); err != nil {
				slog.Warn("response validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", capture.statusCode),
					slog.String("error", err.Error()))
			}
		})
	}
}

// loadContract parses and validates the OpenAPI document, then builds the
// route matcher for it.
func loadContract(path string) (routers.Router, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return router, nil
}

func shouldSkipPath(path string, skipPaths []string) bool {
	for _, prefix := range skipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func writeValidationError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// capturingWriter buffers the response body for post-hoc validation
type capturingWriter struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (c *capturingWriter) WriteHeader(statusCode int) {
	c.statusCode = statusCode
	c.ResponseWriter.WriteHeader(statusCode)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	c.body = append(c.body, b...)
	return c.ResponseWriter.Write(b)
}
