package aiedit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouter asks an LLM for editing suggestions. Apply and Transcribe, and
// Suggest on any upstream failure, fall back to the mock.
//
// OpenRouter provides a unified API for multiple LLM providers using a single
// API key. The request format follows the OpenAI chat completions standard.
type OpenRouter struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	fallback   *Mock
	log        *logrus.Entry
}

// NewOpenRouter creates an OpenRouter suggester.
func NewOpenRouter(apiKey, model string) *OpenRouter {
	return &OpenRouter{
		apiKey:   apiKey,
		model:    model,
		endpoint: openRouterURL,
		// Go Pattern: Always configure timeouts on HTTP clients.
		// The default http.Client has NO timeout.
		httpClient: &http.Client{Timeout: 60 * time.Second},
		fallback:   NewMock(),
		log:        logger.WithComponent("aiedit"),
	}
}

// --- OpenRouter API types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// llmReport is the JSON shape the prompt asks the model for.
type llmReport struct {
	Suggestions []struct {
		Type       string  `json:"type"`
		StartTime  float64 `json:"start_time"`
		EndTime    float64 `json:"end_time"`
		Reason     string  `json:"reason"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"suggestions"`
	OverallQualityScore float64  `json:"overall_quality_score"`
	Recommendations     []string `json:"recommendations"`
}

func (o *OpenRouter) Suggest(ctx context.Context, v *models.Video) (*Report, error) {
	report, err := o.suggest(ctx, v)
	if err != nil {
		o.log.WithError(err).WithField("video_id", v.ID).Warn("⚠️  OpenRouter suggestions failed, using mock")
		return o.fallback.Suggest(ctx, v)
	}
	return report, nil
}

func (o *OpenRouter) Apply(ctx context.Context, v *models.Video, s *models.AISuggestion, action string) (*Plan, error) {
	return o.fallback.Apply(ctx, v, s, action)
}

func (o *OpenRouter) Transcribe(ctx context.Context, v *models.Video) (*models.Transcript, error) {
	return o.fallback.Transcribe(ctx, v)
}

func (o *OpenRouter) suggest(ctx context.Context, v *models.Video) (*Report, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key not configured; set OPENROUTER_API_KEY")
	}

	o.log.WithField("video_id", v.ID).Infof("🤖 Requesting editing suggestions using %s", o.model)

	content, err := o.complete(ctx, buildPrompt(v))
	if err != nil {
		return nil, err
	}

	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("model returned no JSON object")
	}
	var out llmReport
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if len(out.Suggestions) == 0 {
		return nil, fmt.Errorf("model returned no suggestions")
	}

	d := float64(v.Duration)
	report := &Report{
		OverallQuality:  clamp(round2(out.OverallQualityScore), 0, 10),
		Recommendations: out.Recommendations,
	}
	for _, s := range out.Suggestions {
		start := clamp(round2(s.StartTime), 0, d)
		end := clamp(round2(s.EndTime), start, d)
		sug := models.AISuggestion{
			Type:       s.Type,
			StartTime:  start,
			EndTime:    end,
			Reason:     s.Reason,
			Confidence: clamp(s.Confidence, 0, 1),
		}
		if s.Text != "" {
			text := s.Text
			sug.Text = &text
		}
		report.Suggestions = append(report.Suggestions, sug)
	}
	return report, nil
}

// complete sends one chat completion request and returns the reply text.
func (o *OpenRouter) complete(ctx context.Context, prompt string) (string, error) {
	jsonBody, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a video editor reviewing user-generated clips. Reply with JSON only."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "UGC Platform API")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OpenRouter request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenRouter returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("OpenRouter error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func buildPrompt(v *models.Video) string {
	return fmt.Sprintf(`Suggest edits for this %s recording.

**Title:** %s
**Description:** %s
**Duration:** %d seconds

Respond with valid JSON in this exact format. Times are seconds within the clip,
types are one of trim, enhance_audio, add_subtitle, confidence is 0-1 and the
quality score is 0-10:
{
  "suggestions": [{"type": "trim", "start_time": 1.5, "end_time": 3.0, "reason": "...", "text": "", "confidence": 0.8}],
  "overall_quality_score": 7.5,
  "recommendations": ["..."]
}`, v.RecordingType, v.Title, v.Description, v.Duration)
}

// extractJSON returns the first balanced {...} object in content. Models
// sometimes wrap JSON in markdown fences or prose.
func extractJSON(content string) string {
	start, depth := -1, 0
	for i, c := range content {
		switch c {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

func clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
