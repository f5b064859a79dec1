package handlers

import (
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-dedup/internal/config"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Dedupe: config.DedupeConfig{
			HashSize:     8,
			Threshold:    8,
			MinThreshold: 2,
			MaxThreshold: 62,
			Step:         4,
			Linkage:      "chain",
			Extensions:   config.DefaultExtensions(),
		},
		Web: config.WebConfig{Host: "127.0.0.1", Port: 8080},
	}
}

// writeGradient writes a horizontal gray gradient PNG.
func writeGradient(t *testing.T, path string, descending bool) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 72, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 72; x++ {
			v := uint8(x * 3)
			if descending {
				v = uint8(255 - x*3)
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding %s: %v", path, err)
	}
}

// testWorkingSet creates two identical images and one different one.
func testWorkingSet(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeGradient(t, filepath.Join(dir, "a.png"), false)
	writeGradient(t, filepath.Join(dir, "a (1).png"), false)
	writeGradient(t, filepath.Join(dir, "b.png"), true)
	return dir
}

func postJSON(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}
