// Package interpret turns an aggregate fleet health score into a short
// natural-language reading produced by a hosted generative model.
package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/essboard/essboard/pkg/common"
	"github.com/essboard/essboard/pkg/log"
	"github.com/essboard/essboard/pkg/types"
	"google.golang.org/genai"
)

var (
	// ErrBackend covers transport failures, non-success responses,
	// deadline expiry and cancellation.
	ErrBackend = errors.New("interpretation backend failed")
	// ErrEmptyResponse means the backend answered without any text.
	ErrEmptyResponse = errors.New("interpretation response was empty")
	// ErrParseFailure means the response text was not a JSON object.
	ErrParseFailure = errors.New("interpretation response could not be parsed")
)

var fallback = types.HealthInterpretation{
	Summary:         "系统正处于常规运行监控中，健康度波动在合理区间。",
	Causes:          []string{"外部环境温度波动", "个别电芯内阻增大"},
	Recommendations: []string{"加强定期巡检", "优化PCS控制参数"},
}

// Fallback returns the fixed interpretation shown whenever the backend
// can't produce one. Each call returns a new value.
func Fallback() types.HealthInterpretation {
	return fallback.Clone()
}

// Client requests interpretations. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	backend backend
	timeout time.Duration
}

// New builds a Client from cfg. A missing API key does not fail construction.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{timeout: cfg.Timeout}
	if cfg.APIKey == "" {
		log.Ctx(ctx).WarnContext(ctx, "no genai api key configured, interpretations will use the fallback")
		c.backend = failingBackend{err: ErrMissingAPIKey}
		return c, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: common.HTTPClient(0, nil),
	}
	if cfg.Endpoint != "" {
		base := cfg.Endpoint
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		cc.HTTPOptions.BaseURL = base
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.backend = &genaiBackend{client: gc, model: cfg.Model}
	return c, nil
}

// BuildPrompt renders the instruction sent to the model. The score uses its
// shortest decimal form and sites keep their order.
func BuildPrompt(avgScore float64, sites []string) string {
	return fmt.Sprintf(
		"分析储能电站运维数据：平均健康度 %s，涉及局点包括 %s。请提供：1. 健康度简要解读；2. 可能的风险诱因；3. 针对性运维建议措施。请用中文回答。",
		strconv.FormatFloat(avgScore, 'f', -1, 64),
		strings.Join(sites, ", "),
	)
}

// ResponseSchema constrains the model output to a HealthInterpretation.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {
				Type:        genai.TypeString,
				Description: "A brief summary of the health interpretation.",
			},
			"causes": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "A list of possible risk causes.",
			},
			"recommendations": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "A list of specific maintenance recommendations.",
			},
		},
		Required:         []string{"summary", "causes", "recommendations"},
		PropertyOrdering: []string{"summary", "causes", "recommendations"},
	}
}

// Request makes exactly one backend call. Errors wrap one of ErrBackend,
// ErrEmptyResponse or ErrParseFailure. A successful record is returned as
// parsed.
func (c *Client) Request(ctx context.Context, avgScore float64, sites []string) (types.HealthInterpretation, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.backend.generateJSON(ctx, BuildPrompt(avgScore, sites), ResponseSchema())
	if err != nil {
		if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
			return types.HealthInterpretation{}, fmt.Errorf("%w: %w: %w", ErrBackend, cerr, err)
		}
		return types.HealthInterpretation{}, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return types.HealthInterpretation{}, ErrEmptyResponse
	}

	var parsed *types.HealthInterpretation
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return types.HealthInterpretation{}, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}
	if parsed == nil {
		return types.HealthInterpretation{}, fmt.Errorf("%w: response was null", ErrParseFailure)
	}
	return *parsed, nil
}

// Interpret is Request that never fails: any error is logged once and the
// fallback is returned instead.
func (c *Client) Interpret(ctx context.Context, avgScore float64, sites []string) types.HealthInterpretation {
	h, err := c.Request(ctx, avgScore, sites)
	if err != nil {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"health interpretation failed",
			slog.String("kind", errorKind(err)),
			slog.Any("error", err),
		)
		return Fallback()
	}
	return h
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrParseFailure):
		return "parse_failure"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "backend"
	}
}
