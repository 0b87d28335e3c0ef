package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultGeminiBaseURL is the model collection of the public Gemini API.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	// DefaultGeminiModel is used when no model is configured.
	DefaultGeminiModel = "gemini-1.5-flash"

	safetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	maxErrorBody    = 4 << 10
)

var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64  `json:"temperature"`
	TopK            int      `json:"topK"`
	TopP            float64  `json:"topP"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
	StopSequences   []string `json:"stopSequences"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// GeminiClient calls the generateContent endpoint of one model.
type GeminiClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewGeminiClient builds a client for {baseURL}/{model}:generateContent.
// The client sets no timeout of its own; cancellation comes from the
// caller's context.
func NewGeminiClient(baseURL, model, apiKey string, httpClient *http.Client) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GeminiClient{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(baseURL, "/") + "/" + model + ":generateContent",
		apiKey:     apiKey,
	}
}

// Generate implements Generator.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerationOptions) (string, error) {
	opts = opts.withDefaults()

	body := generateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     opts.Temperature,
			TopK:            opts.TopK,
			TopP:            opts.TopP,
			MaxOutputTokens: opts.MaxOutputTokens,
			StopSequences:   opts.StopSequences,
		},
		SafetySettings: make([]safetySetting, 0, len(safetyCategories)),
	}
	for _, cat := range safetyCategories {
		body.SafetySettings = append(body.SafetySettings, safetySetting{Category: cat, Threshold: safetyThreshold})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
