package scoring

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/attestix/compliance-cli/internal/config"
	"github.com/attestix/compliance-cli/internal/model"
	"github.com/attestix/compliance-cli/internal/resilience"
	"github.com/attestix/compliance-cli/pkg/anthropic"
)

// AnthropicEngine scores controls with the Anthropic Messages API.
type AnthropicEngine struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewAnthropicEngine builds an engine from scoring config.
func NewAnthropicEngine(cfg config.ScoringConfig) *AnthropicEngine {
	return NewAnthropicEngineWithClient(anthropic.NewClient(cfg.Key), cfg)
}

// NewAnthropicEngineWithClient injects a client, used by tests.
func NewAnthropicEngineWithClient(client anthropic.Client, cfg config.ScoringConfig) *AnthropicEngine {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	return &AnthropicEngine{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		retry:     resilience.DefaultRetryConfig(),
	}
}

// ScanControl evaluates every requirement of the control against the
// assembled evidence in a single model call.
func (e *AnthropicEngine) ScanControl(ctx context.Context, control model.Control, requirements []model.Requirement, evidence []model.EvidenceFragment) (*Result, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "scoring: rate limit wait")
	}

	req := anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    SystemPrompt(control),
		Messages: []anthropic.Message{
			{Role: "user", Content: BuildUserMessage(requirements, evidence)},
		},
	}

	retry := e.retry
	retry.OnRetry = resilience.RetryLogger("anthropic", "scan_control")
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: control %s", control.ID)
	}

	resp.Usage.LogCost(e.model, "scan_control")
	zap.L().Debug("scoring response",
		zap.String("control_id", control.ID),
		zap.String("stop_reason", resp.StopReason),
	)

	result, err := parseResult(resp.Text())
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: control %s", control.ID)
	}

	return result, nil
}
