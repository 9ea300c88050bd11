// Package swagger publishes the interview API's OpenAPI document and a
// ReDoc page that renders it.
package swagger

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"
)

// OpenAPI is the embedded OpenAPI 3 document.
//
//go:embed openapi.yaml
var OpenAPI []byte

// Register attaches the docs routes to mux:
//
//	GET /api-docs      ReDoc page
//	GET /openapi.yaml  document as YAML
//	GET /openapi.json  document as JSON, for clients generated from it
//
// It fails when the embedded document does not parse.
func Register(_ context.Context, mux *http.ServeMux) error {
	if mux == nil {
		return fmt.Errorf("swagger: nil mux")
	}
	asJSON, err := toJSON(OpenAPI)
	if err != nil {
		return fmt.Errorf("swagger: %w", err)
	}

	mux.HandleFunc("GET /api-docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})
	mux.HandleFunc("GET /openapi.yaml", serve("application/yaml; charset=utf-8", OpenAPI))
	mux.HandleFunc("GET /openapi.json", serve("application/json", asJSON))
	return nil
}

func serve(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(body)
	}
}

func toJSON(doc []byte) ([]byte, error) {
	var v map[string]any
	if err := yaml.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("parse openapi.yaml: %w", err)
	}
	return json.Marshal(v)
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>codevoice interview API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true, hideDownloadButton: false }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
