package riot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// LoL Status API, lightweight and available on every platform
	statusEndpoint = "/lol/status/v4/platform-data"

	defaultValidationTimeout = 10 * time.Second
)

// ErrInvalidKey means the provider rejected the key (401/403)
var ErrInvalidKey = errors.New("riot API key rejected")

// KeyValidator checks an API key against one platform before a download
// starts, so an expired key fails fast instead of skipping every match
type KeyValidator struct {
	httpClient *http.Client
	baseURL    string
}

// KeyValidatorOption configures a KeyValidator
type KeyValidatorOption func(*KeyValidator)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(u string) KeyValidatorOption {
	return func(v *KeyValidator) {
		v.baseURL = strings.TrimRight(u, "/")
	}
}

// WithPlatform validates against https://{platform}.api.riotgames.com
func WithPlatform(platform string) KeyValidatorOption {
	return func(v *KeyValidator) {
		v.baseURL = fmt.Sprintf("https://%s.api.riotgames.com", strings.ToLower(platform))
	}
}

// WithTimeout sets a custom timeout for validation requests
func WithTimeout(timeout time.Duration) KeyValidatorOption {
	return func(v *KeyValidator) {
		v.httpClient.Timeout = timeout
	}
}

// NewKeyValidator creates a validator for EUW1 unless told otherwise
func NewKeyValidator(opts ...KeyValidatorOption) *KeyValidator {
	v := &KeyValidator{
		httpClient: &http.Client{Timeout: defaultValidationTimeout},
	}
	WithPlatform("EUW1")(v)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns nil for a usable key, ErrInvalidKey when the provider
// rejects it, and any other error when validity could not be determined
func (v *KeyValidator) Validate(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+statusEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("key validation request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrInvalidKey, resp.StatusCode)
	default:
		return &StatusError{StatusCode: resp.StatusCode, URL: v.baseURL + statusEndpoint}
	}
}
