package ipa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// Fetch downloads a release asset to a temporary file and verifies it is a
// zip archive before handing it back as an .ipa candidate. The caller owns
// the returned path and should os.Remove it when done.
func Fetch(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp("", "altsrc-*.ipa")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("saving download: %w", err)
	}

	kind, err := mimetype.DetectFile(tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if !kind.Is("application/zip") {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("downloaded file is %s, not an ipa", kind)
	}

	return tmp.Name(), nil
}
