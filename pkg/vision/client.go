// Package vision wraps the Anthropic API for reference-vs-part image
// comparison. The client performs no internal retries; the orchestrator owns
// retry policy.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/partsight/inspect-cli/internal/model"
)

// Client defines the vision operations used by the inspection flows.
type Client interface {
	AnalyzeImages(ctx context.Context, reference, part []byte, partTypeHint string) (*model.DefectReport, model.TokenUsage, error)
}

// Options configure the SDK-backed client.
type Options struct {
	Model     string
	MaxTokens int64
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
	opts   Options
}

// NewClient creates a vision client backed by the SDK.
func NewClient(apiKey string, opts Options) Client {
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-5-20250929"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	return &sdkClient{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		opts:   opts,
	}
}

const systemPrompt = `You are a manufacturing quality inspector. The first image is the reference (known-good) part; the second is the part under inspection. Compare them and report every visible defect.

Respond with strict JSON only, no prose, matching:
{"overall_quality":"pass|warning|fail","confidence_score":0.0,"summary":"...","defects":[{"type":"...","severity":"minor|major|critical","description":"...","location":"...","confidence":0.0}]}`

func (c *sdkClient) AnalyzeImages(ctx context.Context, reference, part []byte, partTypeHint string) (*model.DefectReport, model.TokenUsage, error) {
	userText := "Inspect the second image against the first."
	if partTypeHint != "" {
		userText += " Part type: " + partTypeHint + "."
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.opts.Model),
		MaxTokens: c.opts.MaxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				imageBlock(reference),
				imageBlock(part),
				sdk.NewTextBlock(userText),
			),
		},
	})
	if err != nil {
		return nil, model.TokenUsage{}, wrapAPIError(err)
	}

	usage := model.TokenUsage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}

	report, err := parseReport(textContent(msg))
	if err != nil {
		return nil, usage, err
	}

	zap.L().Debug("vision: analysis complete",
		zap.String("model", c.opts.Model),
		zap.String("overall", string(report.OverallQuality)),
		zap.Int("defects", len(report.Defects)),
		zap.Int64("input_tokens", usage.InputTokens),
		zap.Int64("output_tokens", usage.OutputTokens),
	)

	return report, usage, nil
}

// imageBlock builds a base64 image content block, sniffing the media type.
func imageBlock(data []byte) sdk.ContentBlockParamUnion {
	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/jpeg"
	}
	return sdk.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(data))
}

func textContent(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// wrapAPIError converts SDK errors into the RemoteAnalysisError taxonomy so
// the orchestrator's transient classification applies.
func wrapAPIError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return &model.RemoteAnalysisError{
			StatusCode: apiErr.StatusCode,
			Reason:     apiErr.Error(),
			Err:        err,
		}
	}
	return &model.RemoteAnalysisError{Reason: err.Error(), Err: err}
}
