package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/healthlens-ai/backend/internal/domain"
)

// OpenAIAnalyzer runs all analysis tasks against the OpenAI API.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

func NewOpenAIAnalyzer(apiKey, model string) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAIAnalyzer) AnalyzeReport(ctx context.Context, image []byte, mimeType string) (*domain.ReportAnalysis, error) {
	text, err := o.vision(ctx, reportPrompt, image, mimeType)
	if err != nil {
		return nil, err
	}
	return parseReportResponse(text)
}

func (o *OpenAIAnalyzer) AnalyzeFace(ctx context.Context, image []byte, mimeType string) ([]domain.VisualMetric, error) {
	text, err := o.vision(ctx, facePrompt, image, mimeType)
	if err != nil {
		return nil, err
	}
	return parseFaceResponse(text)
}

func (o *OpenAIAnalyzer) AssessRisk(ctx context.Context, input domain.RiskInput) (string, error) {
	return o.complete(ctx, buildRiskPrompt(input))
}

func (o *OpenAIAnalyzer) Reply(ctx context.Context, prompt string) (string, error) {
	return o.complete(ctx, prompt)
}

// vision sends a prompt plus an inline image and demands a JSON object back.
func (o *OpenAIAnalyzer) vision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: o.model,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{
							Type: openai.ChatMessagePartTypeText,
							Text: prompt,
						},
						{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL: dataURL(mimeType, image),
							},
						},
					},
				},
			},
		},
	)
	if err != nil {
		return "", wrapProviderErr("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned an empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIAnalyzer) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", wrapProviderErr("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned an empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// dataURL inlines image bytes as a base64 data URL.
func dataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
