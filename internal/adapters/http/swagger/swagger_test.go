package swagger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

func get(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return w
}

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given the docs routes on a mux", t, func() {
		mux := http.NewServeMux()
		err := Register(context.Background(), mux)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then /openapi.yaml serves the document", func() {
			w := get(mux, "/openapi.yaml")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
			convey.So(w.Body.Len(), convey.ShouldEqual, len(OpenAPI))
		})

		convey.Convey("And /openapi.json serves the same document as JSON", func() {
			w := get(mux, "/openapi.json")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/json")

			var doc map[string]any
			convey.So(json.Unmarshal(w.Body.Bytes(), &doc), convey.ShouldBeNil)
			convey.So(doc, convey.ShouldContainKey, "paths")
		})

		convey.Convey("And /api-docs serves the ReDoc page", func() {
			w := get(mux, "/api-docs")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
		})
	})

	convey.Convey("Given no mux", t, func() {
		convey.So(Register(context.Background(), nil), convey.ShouldNotBeNil)
	})
}

func TestOpenAPIDocument(t *testing.T) {
	convey.Convey("Given the embedded OpenAPI document", t, func() {
		var doc struct {
			OpenAPI string                    `yaml:"openapi"`
			Paths   map[string]map[string]any `yaml:"paths"`
		}
		err := yaml.Unmarshal(OpenAPI, &doc)

		convey.Convey("Then it parses and lists the interview routes", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(doc.OpenAPI, convey.ShouldStartWith, "3.")
			convey.So(doc.Paths, convey.ShouldContainKey, "/sessions")
			convey.So(doc.Paths, convey.ShouldContainKey, "/sessions/{id}/answers")
			convey.So(doc.Paths["/questions/{id}"], convey.ShouldContainKey, "delete")
		})
	})
}
