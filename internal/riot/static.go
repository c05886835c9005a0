package riot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"slds/internal/storage"
)

const (
	ddragonBaseURL = "https://ddragon.leagueoflegends.com"
	defaultLocale  = "en_US"
)

// StaticClient downloads Data Dragon reference data
type StaticClient struct {
	httpClient *http.Client
	baseURL    string
	locale     string
}

// NewStaticClient creates a Data Dragon client; baseURL may be empty
func NewStaticClient(baseURL string) *StaticClient {
	if baseURL == "" {
		baseURL = ddragonBaseURL
	}
	return &StaticClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		locale:     defaultLocale,
	}
}

func (s *StaticClient) get(ctx context.Context, path string, result any) error {
	u := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, URL: u}
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// Versions lists game versions, newest first
func (s *StaticClient) Versions(ctx context.Context) ([]string, error) {
	var versions []string
	if err := s.get(ctx, "/api/versions.json", &versions); err != nil {
		return nil, fmt.Errorf("failed to fetch versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("failed to fetch versions: empty list")
	}
	return versions, nil
}

// SaveStaticData writes versions, champions, items, summoners and runes of
// the latest version into dir and returns that version
func (s *StaticClient) SaveStaticData(ctx context.Context, dir string) (string, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return "", err
	}
	latest := versions[0]
	if err := storage.WriteJSON(versions, dir, "versions"); err != nil {
		return "", err
	}

	files := []struct {
		name string
		path string
	}{
		{"champions", "champion.json"},
		{"items", "item.json"},
		{"summoners", "summoner.json"},
		{"runes", "runesReforged.json"},
	}
	for _, f := range files {
		var doc any
		path := fmt.Sprintf("/cdn/%s/data/%s/%s", latest, s.locale, f.path)
		if err := s.get(ctx, path, &doc); err != nil {
			return "", fmt.Errorf("failed to fetch %s: %w", f.name, err)
		}
		if err := storage.WriteJSON(doc, dir, f.name); err != nil {
			return "", err
		}
		log.Printf("[Static] Saved %s (%s)", f.name, latest)
	}
	return latest, nil
}
