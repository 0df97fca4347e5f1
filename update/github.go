package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultAPIBase is the public GitHub API endpoint.
const DefaultAPIBase = "https://api.github.com"

type release struct {
	TagName     string  `json:"tag_name"`
	Name        string  `json:"name"`
	Body        string  `json:"body"`
	Prerelease  bool    `json:"prerelease"`
	CreatedAt   string  `json:"created_at"`
	PublishedAt string  `json:"published_at"`
	Assets      []asset `json:"assets"`
}

type asset struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	UpdatedAt   string `json:"updated_at"`
	DownloadURL string `json:"browser_download_url"`
}

type apiError struct {
	Message string `json:"message"`
}

func fetchReleases(ctx context.Context, client *http.Client, base, owner, repo string) ([]release, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if base == "" {
		base = DefaultAPIBase
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases", base, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching releases for %s/%s: %w", owner, repo, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var releases []release
	if err := json.Unmarshal(body, &releases); err != nil {
		// Errors come back as an object with a message, not an array.
		var apiErr apiError
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("github api: %s/%s: %s", owner, repo, apiErr.Message)
		}
		return nil, fmt.Errorf("github api: %s/%s: %w", owner, repo, err)
	}
	return releases, nil
}
