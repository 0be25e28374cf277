package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// Client is the production Invoker backed by the Anthropic API.
type Client struct {
	inner          anthropic.Client
	defaultTimeout time.Duration
	maxTokens      int64
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock instead of the API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// DefaultTimeout bounds calls that carry no per-request timeout.
	DefaultTimeout time.Duration
	// MaxTokens caps response length for requests that don't set one.
	MaxTokens int
}

// NewClient creates an Anthropic-backed Invoker.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrAgentUnavailable)
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	timeout := cfg.DefaultTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &Client{
		inner:          anthropic.NewClient(opts...),
		defaultTimeout: timeout,
		maxTokens:      maxTokens,
	}, nil
}

// Invoke performs one message call against the configured backend.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	userText := req.Prompt
	if req.Context != "" {
		userText = req.Context + "\n\nTask: " + req.Prompt
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userText)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	resp, err := c.inner.Messages.New(ctx, params)
	latency := time.Since(start)

	if err != nil {
		return nil, classify(req.Model, err)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	if text == "" {
		return nil, &CallError{
			Kind:  FailureInvalidResponse,
			Model: req.Model,
			Err:   fmt.Errorf("response had no text content"),
		}
	}

	return &Response{
		Text:    text,
		Tokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		Latency: latency,
	}, nil
}

// classify maps an SDK error onto the failure taxonomy.
func classify(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Kind: FailureTimeout, Model: model, Err: err}
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			return &CallError{Kind: FailureRateLimited, Model: model, Err: err}
		case apierr.StatusCode >= 500:
			return &CallError{Kind: FailureProvider, Model: model, Err: err}
		default:
			return &CallError{Kind: FailureInvalidResponse, Model: model, Err: err}
		}
	}

	return &CallError{Kind: FailureProvider, Model: model, Err: err}
}
