package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-oracle/internal/apperror"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"

	maxOutputTokens = 16
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client asks a Gemini model for a Tic-Tac-Toe move.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	conf       Config
}

func New(logger *slog.Logger, conf Config) *Client {
	if conf.BaseURL == "" {
		conf.BaseURL = DefaultBaseURL
	}

	if conf.Model == "" {
		conf.Model = DefaultModel
	}

	return &Client{
		logger:     logger.With("component", "oracle"),
		httpClient: &http.Client{Timeout: conf.Timeout},
		conf:       conf,
	}
}

// SuggestMove sends the prompt and returns the model's raw text reply.
func (that *Client) SuggestMove(ctx context.Context, prompt string) (string, error) {
	log := that.logger.With("method", "SuggestMove", "model", that.conf.Model)

	if that.conf.APIKey == "" {
		return "", fmt.Errorf("%w: api key is not configured", apperror.ErrOracleUnavailable)
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: prompt}},
		}},
		// thinking would use up maxOutputTokens before any text is produced
		GenerationConfig: &generationConfig{
			MaxOutputTokens: maxOutputTokens,
			ThinkingConfig:  &thinkingConfig{ThinkingBudget: 0},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(that.conf.BaseURL, "/"), that.conf.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", that.conf.APIKey)

	resp, err := that.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %w", apperror.ErrOracleUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", apperror.ErrOracleUnavailable, resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err = json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %w", apperror.ErrOracleUnavailable, err)
	}

	text := firstText(genResp)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", apperror.ErrOracleUnavailable)
	}

	log.Debug("oracle replied", "reply", text)

	return text, nil
}

func firstText(resp generateResponse) string {
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			if text := strings.TrimSpace(p.Text); text != "" {
				return text
			}
		}
	}

	return ""
}
