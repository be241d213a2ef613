package docs

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSwaggerInfoRegistered(t *testing.T) {
	if SwaggerInfo == nil {
		t.Fatal("swagger info not initialized")
	}
	if SwaggerInfo.Title != "Cautious Pancake API" {
		t.Fatalf("unexpected title: %s", SwaggerInfo.Title)
	}
}

func TestDocTemplateIsValidJSON(t *testing.T) {
	// Strip the swag template verbs before parsing.
	raw := strings.NewReplacer(
		"{{ marshal .Schemes }}", "[]",
		"{{escape .Description}}", "",
		"{{.Title}}", "",
		"{{.Version}}", "",
		"{{.Host}}", "",
		"{{.BasePath}}", "/",
	).Replace(docTemplate)

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("doc template is not valid JSON: %v", err)
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		t.Fatal("doc template has no paths")
	}
	if _, ok := paths["/api/signal/{symbol}"]; !ok {
		t.Fatal("doc template missing signal route")
	}
}
