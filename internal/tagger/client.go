package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tagmark/tagmark/internal/model"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	betaHeader = "structured-outputs-2025-11-13"
	haikuModel = "claude-haiku-4-5-20251001"

	maxTags = 5
)

var (
	ErrNoAPIKey = errors.New("tagger API key not set")
)

// Client generates classification tags for page metadata via the
// Anthropic API.
type Client struct {
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new tagger client.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GenerateTags asks the model for up to five category tags describing the
// page. Tag names are rendered in the requested language; canonical names
// stay English so the same logical tag deduplicates across languages.
// Classification is best-effort: any API or parse failure yields an empty
// list, never an error.
func (c *Client) GenerateTags(ctx context.Context, meta model.Metadata, language string) []model.Tag {
	prompt := buildPrompt(meta, language)

	reqBody := apiRequest{
		Model:     haikuModel,
		MaxTokens: 512,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
		OutputFormat: &outputFormat{
			Type: "json_schema",
			Schema: jsonSchema{
				Type: "object",
				Properties: map[string]schemaProp{
					"tags": {
						Type: "array",
						Items: &schemaProp{
							Type: "object",
							Properties: map[string]schemaProp{
								"name":           {Type: "string"},
								"canonical_name": {Type: "string"},
								"confidence":     {Type: "number"},
							},
							Required:             []string{"name", "canonical_name", "confidence"},
							AdditionalProperties: false,
						},
					},
				},
				Required:             []string{"tags"},
				AdditionalProperties: false,
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("anthropic-beta", betaHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil
	}

	if len(apiResp.Content) == 0 || apiResp.Content[0].Type != "text" {
		return nil
	}

	return parseTags(apiResp.Content[0].Text)
}

// parseTags decodes the model output and normalizes it: empty names are
// dropped, canonical names default to the display name, confidence is
// clamped to [0,1], and the list is capped at maxTags.
func parseTags(content string) []model.Tag {
	var parsed struct {
		Tags []model.Tag `json:"tags"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}

	var tags []model.Tag
	for _, tag := range parsed.Tags {
		name := strings.TrimSpace(tag.Name)
		if name == "" {
			continue
		}
		canonical := strings.TrimSpace(tag.CanonicalName)
		if canonical == "" {
			canonical = name
		}
		tags = append(tags, model.Tag{
			Name:          name,
			CanonicalName: canonical,
			Confidence:    clamp01(tag.Confidence),
		})
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

func buildPrompt(meta model.Metadata, language string) string {
	context := buildContext(meta)
	languageName, languageInstruction := languageDirective(language)

	return fmt.Sprintf(`Given this webpage metadata, suggest 2-5 category tags.

- "name": The tag name in the user's language (%s)
- "canonical_name": The English version of the tag (used for deduplication across languages)
- "confidence": A number between 0 and 1

Tags should be freeform and descriptive of the content (no predefined taxonomy).%s

%s`, languageName, languageInstruction, context)
}

// buildContext assembles the metadata lines fed to the model.
func buildContext(meta model.Metadata) string {
	parts := []string{"URL: " + meta.URL}

	if title := meta.BestTitle(); title != meta.URL {
		parts = append(parts, "Title: "+title)
	}
	desc := meta.Description
	if desc == "" {
		desc = meta.OGDescription
	}
	if desc != "" {
		parts = append(parts, "Description: "+desc)
	}
	if meta.ExtractedText != "" {
		parts = append(parts, "Content: "+meta.ExtractedText)
	}

	return strings.Join(parts, "\n")
}

// languageNames maps BCP 47 codes to the names used in the prompt.
var languageNames = map[string]string{
	"zh":    "Chinese",
	"zh-CN": "Chinese (Simplified)",
	"zh-TW": "Chinese (Traditional)",
	"ja":    "Japanese",
	"ko":    "Korean",
	"fr":    "French",
	"de":    "German",
	"es":    "Spanish",
	"it":    "Italian",
	"pt":    "Portuguese",
	"pt-BR": "Portuguese (Brazilian)",
	"ru":    "Russian",
	"ar":    "Arabic",
}

// languageDirective resolves a language code to a prompt name plus an
// explicit rendering instruction. Unknown codes fall back to English with
// no extra instruction.
func languageDirective(language string) (name, instruction string) {
	if language == "" {
		return "English", ""
	}

	name = languageNames[language]
	if name == "" {
		if base, _, found := strings.Cut(language, "-"); found {
			name = languageNames[base]
		}
	}
	if name == "" {
		return "English", ""
	}
	return name, fmt.Sprintf("\n\nIMPORTANT: Generate all tag names in %s (%s).", name, language)
}
