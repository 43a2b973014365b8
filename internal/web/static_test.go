package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandlerServesEmbeddedApp(t *testing.T) {
	h, err := Handler("")
	if err != nil {
		t.Fatalf("Handler err: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestHandlerRejectsMissingDir(t *testing.T) {
	if _, err := Handler(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing static dir")
	}

	file := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(file, []byte("<p>x</p>"), 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}
	_, err := Handler(file)
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("expected not a directory error, got %v", err)
	}
}
