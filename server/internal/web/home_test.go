package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHandler_Embedded_Home(t *testing.T) {
	h := Handler("")
	for _, path := range []string{"/home", "/home/"} {
		rr := get(t, h, path)
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s: got %d, want 200", path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "<title>Taskboard</title>") {
			t.Errorf("GET %s: body does not look like the home page", path)
		}
	}
}

func TestHandler_Embedded_Asset(t *testing.T) {
	rr := get(t, Handler(""), "/home/style.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("Content-Type: got %q, want text/css", ct)
	}
}

func TestHandler_MissingAsset(t *testing.T) {
	rr := get(t, Handler(""), "/home/nope.js")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestHandler_Dir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>custom</p>"), 0o600); err != nil {
		t.Fatal(err)
	}

	rr := get(t, Handler(dir), "/home")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if body := rr.Body.String(); body != "<p>custom</p>" {
		t.Errorf("body: got %q", body)
	}
}
