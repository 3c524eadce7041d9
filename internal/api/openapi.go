package api

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"sigs.k8s.io/yaml"
)

//go:embed openapi.yaml
var openAPIYAML []byte

// openAPIDocument renders the embedded YAML as JSON, stamping the running
// version into info.version and pointing servers at baseURL when one is set.
func openAPIDocument(version, baseURL string) ([]byte, error) {
	raw, err := yaml.YAMLToJSON(openAPIYAML)
	if err != nil {
		return nil, fmt.Errorf("convert openapi yaml: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode openapi json: %w", err)
	}

	if info, ok := doc["info"].(map[string]any); ok && version != "" {
		info["version"] = version
	}
	if base := strings.TrimRight(baseURL, "/"); base != "" {
		doc["servers"] = []map[string]string{{"url": base + "/api/v1"}}
	}
	return json.Marshal(doc)
}

// OpenAPIHandler serves the API description. The document is built on first
// request and reused.
func OpenAPIHandler(version, baseURL string) http.HandlerFunc {
	var (
		once sync.Once
		body []byte
		err  error
	)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		once.Do(func() { body, err = openAPIDocument(version, baseURL) })
		if err != nil {
			http.Error(w, "openapi unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	}
}
