package discord

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"slds/internal/collector"
	"slds/internal/ids"
	"slds/internal/syncer"

	json "github.com/goccy/go-json"
)

const (
	// Colors for Discord embeds
	colorRed    = 15158332 // 0xE74C3C - skipped games
	colorGreen  = 5763719  // 0x57F287 - dataset updated
	colorYellow = 16705372 // 0xFEE75C - games left without raw data

	defaultWebhookTimeout = 10 * time.Second

	maxRetries = 3

	// Discord rejects field values over 1024 characters
	maxListedIDs = 20
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// NewSyncPayload summarizes a persisted dataset sync
func NewSyncPayload(out *syncer.Outcome) WebhookPayload {
	color := colorGreen
	if len(out.Missing) > 0 {
		color = colorYellow
	}
	fields := []EmbedField{
		{Name: "Status", Value: string(out.Status), Inline: true},
		{Name: "Rows", Value: formatNumber(out.Rows), Inline: true},
		{Name: "Added", Value: formatNumber(out.Added), Inline: true},
	}
	if len(out.NewIDs) > 0 {
		fields = append(fields, EmbedField{Name: "New Games", Value: formatIDs(out.NewIDs)})
	}
	if len(out.Missing) > 0 {
		fields = append(fields, EmbedField{Name: "Without Raw Data", Value: formatIDs(out.Missing)})
	}

	title := "📊 " + out.League + " dataset updated"
	if out.Bootstrapped {
		title = "📊 " + out.League + " dataset created"
	}
	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:     title,
				Color:     color,
				Fields:    fields,
				Footer:    &EmbedFooter{Text: "Run " + out.RunID},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
}

// NewDownloadPayload summarizes an acquisition pass
func NewDownloadPayload(league string, res *collector.Result) WebhookPayload {
	color := colorGreen
	content := ""
	if len(res.Skipped) > 0 {
		color = colorRed
		content = fmt.Sprintf("%d %s games could not be downloaded", len(res.Skipped), league)
	}
	fields := []EmbedField{
		{Name: "Requested", Value: formatNumber(len(res.Requested)), Inline: true},
		{Name: "Downloaded", Value: formatNumber(len(res.Succeeded)), Inline: true},
		{Name: "Skipped", Value: formatNumber(len(res.Skipped)), Inline: true},
	}
	if len(res.Skipped) > 0 {
		lines := make([]string, 0, maxListedIDs+1)
		for i, s := range res.Skipped {
			if i == maxListedIDs {
				lines = append(lines, fmt.Sprintf("and %d more", len(res.Skipped)-maxListedIDs))
				break
			}
			lines = append(lines, fmt.Sprintf("`%s` %s", s.ID, truncate(s.Err.Error(), 40)))
		}
		fields = append(fields, EmbedField{Name: "Skipped Games", Value: strings.Join(lines, "\n")})
	}
	if len(res.Pending) > 0 {
		fields = append(fields, EmbedField{Name: "Interrupted Before", Value: formatIDs(res.Pending)})
	}
	return WebhookPayload{
		Content: content,
		Embeds: []Embed{
			{
				Title:     "⬇️ " + league + " download finished",
				Color:     color,
				Fields:    fields,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
}

// WebhookClient posts summaries to a Discord webhook
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// WebhookOption configures a WebhookClient
type WebhookOption func(*WebhookClient)

// WithHTTPClient replaces the default client (10s timeout)
func WithHTTPClient(hc *http.Client) WebhookOption {
	return func(c *WebhookClient) {
		c.httpClient = hc
	}
}

// NewWebhookClient creates a client for one webhook URL
func NewWebhookClient(webhookURL string, opts ...WebhookOption) *WebhookClient {
	c := &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NotifySync posts a sync summary
func (c *WebhookClient) NotifySync(ctx context.Context, out *syncer.Outcome) error {
	return c.post(ctx, NewSyncPayload(out))
}

// NotifyDownload posts an acquisition summary
func (c *WebhookClient) NotifyDownload(ctx context.Context, league string, res *collector.Result) error {
	return c.post(ctx, NewDownloadPayload(league, res))
}

// post delivers a payload, waiting out 429 responses up to maxRetries times
func (c *WebhookClient) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusNoContent:
			return nil
		case http.StatusTooManyRequests:
			wait := retryAfter(resp.Header.Get("Retry-After"))
			log.Printf("[Discord] Rate limited, retrying in %v (attempt %d/%d)", wait, attempt, maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		default:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
	}
	return fmt.Errorf("webhook still rate limited after %d attempts", maxRetries)
}

// retryAfter parses Discord's Retry-After header, which may carry
// fractional seconds
func retryAfter(header string) time.Duration {
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds <= 0 {
		return time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	if n < 1000 && n > -1000 {
		return strconv.Itoa(n)
	}

	s := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	var result bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return sign + result.String()
}

// formatIDs lists ids inline, capped so the field stays under Discord's limit
func formatIDs(list []ids.GameID) string {
	all := ids.Strings(list)
	shown := all
	if len(all) > maxListedIDs {
		shown = all[:maxListedIDs]
	}
	s := strings.Join(shown, ", ")
	if len(all) > len(shown) {
		s += fmt.Sprintf(" and %d more", len(all)-len(shown))
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
