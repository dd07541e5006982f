package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/abdul-hamid-achik/aish/internal/config"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/logging"
)

// Client wraps the Anthropic SDK
type Client struct {
	client  *anthropic.Client
	config  *config.Config
	model   string
	timeout time.Duration
	log     *logging.Logger
}

// NewClient creates a new LLM client. Retries are left to the wrappers
// in this package.
func NewClient(cfg *config.Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		client:  &client,
		config:  cfg,
		model:   cfg.GetDefaultModel(),
		timeout: cfg.Agent.Timeout,
		log:     logging.Global().WithPrefix("llm"),
	}
}

// SetModel changes the current model
func (c *Client) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model
func (c *Client) GetModel() string {
	return c.model
}

// Chat sends the transcript and returns the response
func (c *Client) Chat(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := c.buildParams(turns, tools, systemPrompt)
	exchange := c.log.BeginExchange()
	start := time.Now()

	c.log.Debug("sending request", logging.Exchange(exchange), logging.Model(c.model), logging.Count(len(params.Messages)), logging.F("tools", len(tools)))
	c.log.Event(logging.EventLLMRequest, logging.Exchange(exchange), logging.Model(c.model), logging.Count(len(turns)))
	if c.log.PayloadsEnabled() {
		c.log.Payload(exchange, "request", map[string]any{"params": params})
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.log.Error("API error", logging.Exchange(exchange), logging.Error(err))
		c.log.Event(logging.EventLLMError, logging.Exchange(exchange), logging.Error(err))
		logging.Global().Metrics().RecordLLMRequest(0, 0, err)
		return nil, classify(ctx, err)
	}

	resp := c.parseResponse(msg)
	c.log.Debug("received response",
		logging.Exchange(exchange),
		logging.F("stop_reason", resp.StopReason),
		logging.InputTokens(resp.Usage.InputTokens),
		logging.OutputTokens(resp.Usage.OutputTokens),
		logging.DurationSince(start))
	c.log.Event(logging.EventLLMResponse,
		logging.Exchange(exchange),
		logging.InputTokens(resp.Usage.InputTokens),
		logging.OutputTokens(resp.Usage.OutputTokens),
		logging.F("tool_calls", len(resp.ToolCalls)),
		logging.DurationSince(start))
	if c.log.PayloadsEnabled() {
		c.log.Payload(exchange, "response", map[string]any{"message": msg})
	}
	logging.Global().Metrics().RecordLLMRequest(resp.Usage.InputTokens, resp.Usage.OutputTokens, nil)
	return resp, nil
}

func (c *Client) buildParams(turns []Turn, tools []ToolDefinition, systemPrompt string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages:  buildMessages(turns),
	}

	// Add system prompt
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		}
	}

	// Add tools
	if len(tools) > 0 {
		var apiTools []anthropic.ToolUnionParam
		for _, tool := range tools {
			schema := buildInputSchema(tool.InputSchema)
			toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
			toolParam.OfTool.Description = anthropic.String(tool.Description)
			apiTools = append(apiTools, toolParam)
		}
		params.Tools = apiTools
	}

	return params
}

// buildMessages maps the transcript onto alternating messages. Answer and
// tool turns of one exchange become one assistant message (text and
// tool_use blocks) followed by one user message of tool_result blocks.
// Adjacent messages of the same role are merged.
func buildMessages(turns []Turn) []anthropic.MessageParam {
	var msgs []anthropic.MessageParam
	add := func(role anthropic.MessageParamRole, blocks []anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
			return
		}
		if role == anthropic.MessageParamRoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(blocks...))
		}
	}

	for i := 0; i < len(turns); {
		t := turns[i]
		if t.Kind == TurnUser {
			add(anthropic.MessageParamRoleUser, []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(t.Text)})
			i++
			continue
		}

		var assistant, results []anthropic.ContentBlockParamUnion
		exchange := t.Exchange
		for ; i < len(turns) && turns[i].Kind != TurnUser && turns[i].Exchange == exchange; i++ {
			switch u := turns[i]; u.Kind {
			case TurnAnswer:
				if u.Text != "" {
					assistant = append(assistant, anthropic.NewTextBlock(u.Text))
				}
			case TurnTool:
				input := u.Call.Input
				if input == nil {
					input = map[string]any{}
				}
				assistant = append(assistant, anthropic.NewToolUseBlock(u.Call.ID, input, u.Call.Name))
				results = append(results, anthropic.NewToolResultBlock(u.Call.ID, u.Result, u.IsError))
			}
		}
		add(anthropic.MessageParamRoleAssistant, assistant)
		add(anthropic.MessageParamRoleUser, results)
	}
	return msgs
}

func (c *Client) parseResponse(msg *anthropic.Message) *Response {
	resp := &Response{
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += b.Text
		case anthropic.ToolUseBlock:
			var input map[string]any
			if err := json.Unmarshal(b.Input, &input); err != nil {
				c.log.Warn("failed to parse tool input", logging.ToolName(b.Name), logging.Error(err))
				input = make(map[string]any)
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: input,
			})
		}
	}

	return resp
}

// classify wraps an SDK error. Rate limits, overload and server errors
// are retryable; client errors and cancellation are not.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &aerr.AishError{
			Category: aerr.CategoryLLM,
			Code:     "llm_request_failed",
			Message:  "LLM request cancelled or timed out",
			Cause:    err,
		}
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return aerr.LLMRequestFailed(err)
		}
		e := aerr.LLMRequestFailed(err)
		e.Retryable = false
		return e
	}
	return aerr.LLMRequestFailed(err)
}

// buildInputSchema converts a tool's schema map to the SDK's ToolInputSchemaParam
func buildInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	result := anthropic.ToolInputSchemaParam{}

	if props, ok := schema["properties"].(map[string]any); ok {
		result.Properties = props
	}

	// Required fields travel via ExtraFields
	if req, ok := schema["required"]; ok {
		result.ExtraFields = map[string]interface{}{
			"required": req,
		}
	}

	return result
}
