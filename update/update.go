// Package update checks GitHub for a newer release of this tool. The game
// client updates shift the listing layout often enough that running an old
// scanner usually means garbage reads, so the CLI warns on startup.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const defaultEndpoint = "https://api.github.com/repos/snowbreak-tools/gacha-export/releases/latest"

// Release is the subset of the GitHub release payload the check needs.
type Release struct {
	Version string `json:"tag_name"`
	URL     string `json:"html_url"`
}

// Checker queries the release endpoint. The zero value uses GitHub and a
// short timeout.
type Checker struct {
	Endpoint string
	Client   *http.Client
}

func (c *Checker) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return defaultEndpoint
}

func (c *Checker) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Latest fetches the newest published release.
func (c *Checker) Latest(ctx context.Context) (Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client().Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("release check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("release check: unexpected status %s", resp.Status)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("release check: %w", err)
	}
	if rel.Version == "" {
		return Release{}, fmt.Errorf("release check: response has no tag name")
	}
	return rel, nil
}

// Available reports whether latest is strictly newer than the running
// version. Unparsable versions compare as not-newer, so a dev build never
// nags.
func Available(current string, latest Release) bool {
	cur, lat := canonical(current), canonical(latest.Version)
	if !semver.IsValid(cur) || !semver.IsValid(lat) {
		return false
	}
	return semver.Compare(lat, cur) > 0
}

func canonical(v string) string {
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
