package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/topicstream/topicstream/pkg/config"
	"github.com/topicstream/topicstream/pkg/logging"
	"github.com/topicstream/topicstream/pkg/telemetry"
)

// Client translates post text through an external translation API. When
// no API key is configured it returns a marked copy of the input so the
// pipeline stays usable in development.
type Client struct {
	httpClient *http.Client
	apiKey     string
	url        string
	sourceLang string
	targetLang string
	logger     *zap.Logger
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// New creates a new translation client
func New(cfg *config.TranslationConfig) *Client {
	logger := logging.GetLogger().With(zap.String("component", "translate-client"))

	if cfg.APIKey == "" {
		logger.Warn("TS_TRANSLATION_API_KEY not set, using mock translation")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     cfg.APIKey,
		url:        cfg.URL,
		sourceLang: cfg.SourceLang,
		targetLang: cfg.TargetLang,
		logger:     logger,
	}
}

// Translate translates text to the configured target language
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "translate.translate")
	defer span.End()

	if c.apiKey == "" || c.url == "" {
		return "[Mock Translation] " + text, nil
	}

	payload, err := json.Marshal(translateRequest{
		Text:       text,
		SourceLang: c.sourceLang,
		TargetLang: c.targetLang,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal translation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build translation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call translation API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation API error: %d", resp.StatusCode)
	}

	var body translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode translation response: %w", err)
	}
	if body.TranslatedText == "" {
		return "", fmt.Errorf("translation API returned empty text")
	}

	return body.TranslatedText, nil
}
