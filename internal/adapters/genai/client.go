package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/osoko/wayfind/internal/core/domain"
)

// Client implements ports.DiscoveryClient against a Gemini-style
// generateContent API. Both operations ask the model for strict JSON and
// tolerate the markdown code fences some models insist on emitting.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// New creates a discovery client.
func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

const resolvePrompt = `Return the WGS84 coordinates of the place named %q as a JSON object
{"lat": <number>, "lng": <number>}. Respond with the JSON object only.`

const discoverPrompt = `List notable places around latitude %.5f, longitude %.5f (near %q).
Respond with a JSON object only, in this shape:
{"cityName": "<city>", "cityPopulation": "<human readable>",
 "bars": [{"name": "", "lat": 0, "lng": 0, "address": "", "category": ""}],
 "districts": [{"name": "", "lat": 0, "lng": 0, "description": "", "population": ""}]}
Include up to 10 bars and up to 5 districts.`

// ResolvePlace converts a free-text query into a coordinate.
func (c *Client) ResolvePlace(ctx context.Context, query string) (domain.Coordinate, error) {
	text, err := c.generate(ctx, fmt.Sprintf(resolvePrompt, query))
	if err != nil {
		return domain.Coordinate{}, err
	}

	var coord domain.Coordinate
	if err := json.Unmarshal([]byte(text), &coord); err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: unparseable coordinates for %q", domain.ErrResolution, query)
	}
	if !coord.Valid() || (coord.Lat == 0 && coord.Lng == 0) {
		return domain.Coordinate{}, fmt.Errorf("%w: no coordinates for %q", domain.ErrResolution, query)
	}
	return coord, nil
}

// Discover returns the structured discovery bundle for a coordinate.
// Missing fields degrade to empty collections.
func (c *Client) Discover(ctx context.Context, coord domain.Coordinate, label string) (domain.Discovery, error) {
	text, err := c.generate(ctx, fmt.Sprintf(discoverPrompt, coord.Lat, coord.Lng, label))
	if err != nil {
		return domain.Discovery{}, err
	}

	var disc domain.Discovery
	if err := json.Unmarshal([]byte(text), &disc); err != nil {
		return domain.Discovery{}, fmt.Errorf("%w: unparseable discovery payload", domain.ErrDiscovery)
	}
	return disc, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		ResponseMIMEType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate runs one prompt and returns the first candidate's text with
// code fences stripped.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	var reqBody generateRequest
	reqBody.Contents = []content{{Parts: []part{{Text: prompt}}}}
	reqBody.GenerationConfig.ResponseMIMEType = "application/json"

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("discovery provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("discovery provider read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discovery provider status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("discovery provider payload: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("discovery provider returned no candidates")
	}
	return stripFences(parsed.Candidates[0].Content.Parts[0].Text), nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
