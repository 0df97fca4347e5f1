package ipa

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Payload/Example.app/Info.plist")
	require.NoError(t, err)
	_, err = w.Write([]byte(testPlist))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write(buf.Bytes())
	}))
	defer server.Close()

	path, err := Fetch(context.Background(), server.Client(), server.URL+"/example.ipa")
	require.NoError(t, err)
	defer os.Remove(path)

	info, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", info.BundleIdentifier())
}

func TestFetchRejectsNonZip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte("<html>404-ish page pretending to be fine</html>"))
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), server.Client(), server.URL+"/example.ipa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an ipa")
}

func TestFetchBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), server.Client(), server.URL+"/example.ipa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
