package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"planthealth/internal/model"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"
)

// DecodeStage reports how much of the provider payload survived decoding.
type DecodeStage int

const (
	// DecodeParsed means the payload was valid JSON in the expected shape.
	DecodeParsed DecodeStage = iota
	// DecodeRecovered means an embedded JSON object was salvaged from
	// surrounding text (markdown fences, prose).
	DecodeRecovered
	// DecodeDefaulted means nothing usable was found; all fields fall back
	// to documented defaults.
	DecodeDefaulted
)

// DiagnosisProvider produces structured plant-health findings from an image.
// Errors cover transport and timeout failures only; malformed payloads
// degrade to field defaults instead of failing.
type DiagnosisProvider interface {
	Diagnose(ctx context.Context, image []byte, mimeType string) (*model.DiagnosisResult, DecodeStage, error)
}

const diagnosisPrompt = `You are a plant pathologist. Examine the photo and respond with a single JSON object, no prose, using exactly these keys:
{"plant_name": string, "scientific_name": string, "status": string, "problem_judgment": string, "severity": string, "severity_value": int (0-100), "handling_suggestions": [string], "need_product": bool, "plant_introduction": string, "reminder_type": "watering reminder"|"re-examination reminder"|"none", "reminder_reason": string, "reminder_days": int}`

type openaiProvider struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewOpenAIProvider creates a DiagnosisProvider backed by an OpenAI-compatible
// vision model. An empty baseURL uses the default API endpoint.
func NewOpenAIProvider(apiKey, baseURL, chatModel string, logger zerolog.Logger) DiagnosisProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openaiProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  chatModel,
		logger: logger.With().Str("service", "DiagnosisProvider").Logger(),
	}
}

func (p *openaiProvider) Diagnose(ctx context.Context, image []byte, mimeType string) (*model.DiagnosisResult, DecodeStage, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: diagnosisPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, DecodeDefaulted, fmt.Errorf("vision model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, DecodeDefaulted, fmt.Errorf("vision model returned no choices")
	}

	result, stage := decodeDiagnosis(resp.Choices[0].Message.Content)
	if stage != DecodeParsed {
		p.logger.Warn().Int("stage", int(stage)).Msg("Provider payload only partially decoded")
	}
	return result, stage, nil
}

// decodeDiagnosis turns a raw model reply into a DiagnosisResult. It tries a
// strict decode first, then salvages the first embedded JSON object, then
// gives up and returns an empty result for the caller to fill with defaults.
// It never fails.
func decodeDiagnosis(raw string) (*model.DiagnosisResult, DecodeStage) {
	var result model.DiagnosisResult
	if err := json.Unmarshal([]byte(raw), &result); err == nil {
		return &result, DecodeParsed
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		result = model.DiagnosisResult{}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err == nil {
			return &result, DecodeRecovered
		}
	}

	return &model.DiagnosisResult{}, DecodeDefaulted
}
