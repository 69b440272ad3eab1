// Package gemini implements the document generator on top of the Gemini
// generateContent REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/digkill/resumegate/internal/models"
	"github.com/digkill/resumegate/internal/prompt"
)

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *slog.Logger
}

// APIError is a non-2xx answer from Gemini.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error (%d): %s", e.StatusCode, e.Message)
}

func NewClient(apiKey, baseURL, model string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
	ResponseSchema   schema `json:"responseSchema"`
}

type schema struct {
	Type       string            `json:"type"`
	Items      *schema           `json:"items,omitempty"`
	Properties map[string]schema `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// maxResponseBytes caps a generateContent body; a full document is far smaller.
const maxResponseBytes = 4 << 20

var (
	stringSchema = schema{Type: "STRING"}
	listSchema   = schema{Type: "ARRAY", Items: &stringSchema}
)

// responseSchema asks only for the sections in fields.
func responseSchema(fields models.FieldSet) schema {
	props := make(map[string]schema, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case models.FieldExperienceBullets:
			props[string(f)] = schema{Type: "ARRAY", Items: &listSchema}
		case models.FieldKeywordMapping:
			props[string(f)] = listSchema
		default:
			props[string(f)] = stringSchema
		}
		required = append(required, string(f))
	}
	return schema{Type: "OBJECT", Properties: props, Required: required}
}

// Generate produces the document for one sanitized profile. Output that cannot
// be parsed, or that lacks a resume summary, wraps models.ErrMalformedDocument.
func (c *Client) Generate(ctx context.Context, in models.GenerationInput) (*models.DocumentResult, error) {
	userPrompt, err := prompt.Build(in)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	fields := in.Fields
	if len(fields) == 0 {
		fields = models.FieldsFor(in.PackageType)
	}

	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: userPrompt}}}},
		SystemInstruction: &content{
			Parts: []part{{Text: prompt.SystemInstruction(in.PackageType)}},
		},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema(fields),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post gemini: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := truncateBody(rawBody)
		var errResp errorResponse
		if err := json.Unmarshal(rawBody, &errResp); err == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		if c.log != nil {
			c.log.Error("gemini generate failed", "status", resp.StatusCode, "model", c.model, "body", truncateBody(rawBody))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	doc, err := parseDocument(rawBody)
	if err != nil {
		if c.log != nil {
			c.log.Warn("gemini returned unusable document", "model", c.model, "err", err)
		}
		return nil, err
	}

	if c.log != nil {
		c.log.Info("gemini document generated",
			"model", c.model,
			"tier", in.PackageType.Tier(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
	return doc, nil
}

func parseDocument(rawBody []byte) (*models.DocumentResult, error) {
	var genResp generateResponse
	if err := json.Unmarshal(rawBody, &genResp); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", models.ErrMalformedDocument, err)
	}
	if genResp.PromptFeedback != nil && genResp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked: %s", models.ErrMalformedDocument, genResp.PromptFeedback.BlockReason)
	}
	if len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", models.ErrMalformedDocument)
	}

	var text strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	var doc models.DocumentResult
	if err := json.Unmarshal([]byte(stripFences(text.String())), &doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", models.ErrMalformedDocument, err)
	}
	if strings.TrimSpace(doc.ResumeSummary) == "" {
		return nil, fmt.Errorf("%w: empty resumeSummary", models.ErrMalformedDocument)
	}
	return &doc, nil
}

// stripFences drops a ```json wrapper the model sometimes adds despite the mime type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncateBody(b []byte) string {
	const limit = 512
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
