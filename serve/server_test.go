package serve

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altsrc-dev/altsrc/altsource"
)

func writeSource(t *testing.T) (string, *altsource.Source) {
	t.Helper()

	src := altsource.New("Served Source", "com.example.served")
	app := &altsource.App{
		Name:                 "Served App",
		BundleIdentifier:     "com.example.served.app",
		DeveloperName:        "Example.com",
		LocalizedDescription: "An app served for preview.",
		IconURL:              "https://example.com/icon.png",
	}
	app.UpsertVersion(&altsource.Version{
		Version:     "1.0",
		Date:        "2023-01-01T00:00:00Z",
		DownloadURL: "https://example.com/app.ipa",
		Size:        1024,
	})
	require.NoError(t, src.AddApp(app))

	path := filepath.Join(t.TempDir(), "apps.json")
	require.NoError(t, src.Save(path))
	return path, src
}

func TestServeSource(t *testing.T) {
	path, src := writeSource(t)
	router := NewServer(path, time.Minute).Router()

	for _, route := range []string{"/", "/apps.json"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, route, nil))

		require.Equal(t, http.StatusOK, rec.Code, route)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		served, err := altsource.Parse(rec.Body.Bytes())
		require.NoError(t, err)
		assert.Equal(t, src.Identifier, served.Identifier)
		require.Len(t, served.Apps, 1)
		assert.Equal(t, "com.example.served.app", served.Apps[0].BundleIdentifier)
	}
}

func TestServeMissingFile(t *testing.T) {
	router := NewServer(filepath.Join(t.TempDir(), "nope.json"), time.Minute).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeCaches(t *testing.T) {
	path, _ := writeSource(t)
	server := NewServer(path, time.Minute)
	router := server.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Rewrite the file; the cached copy keeps serving until the TTL runs out.
	updated := altsource.New("Renamed", "com.example.renamed")
	require.NoError(t, updated.Save(path))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	served, err := altsource.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "com.example.served", served.Identifier)

	server.cache.Flush()
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	served, err = altsource.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "com.example.renamed", served.Identifier)
}
