package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const instructions = `You summarize how a chat conversation developed for a reviewer.
You receive a JSON brief: per-segment summaries (time range, dominant speaker,
strongest intent dimension, keywords, boundary trigger, resolved/escalated
flags) and critical moments with their reasons. You never see message text.

Write a neutral summary of three to six sentences that follows the segments in
order, mentions the critical moments that matter and ends with the overall
direction and health. Do not invent quotes, names or events absent from the
brief. Return up to five short theme labels.`

var draftSchema = generateSchema[Draft]()

// OpenAI is a Generator backed by the Responses API with structured output
type OpenAI struct {
	client    *openai.Client
	model     string
	maxOutput int64

	rateLimitWaits   []time.Duration
	serverErrorWaits []time.Duration
	wait             func(ctx context.Context, d time.Duration) error
}

// OpenAIOption configures the OpenAI generator
type OpenAIOption func(*OpenAI)

// WithBackoff replaces the retry waits; the number of entries sets the
// attempt count
func WithBackoff(rateLimit, serverError []time.Duration) OpenAIOption {
	return func(o *OpenAI) {
		o.rateLimitWaits, o.serverErrorWaits = rateLimit, serverError
	}
}

// NewOpenAI builds a generator. SDK-level retries are disabled so the
// backoff schedule here is the only one in effect
func NewOpenAI(apiKey, model string, reqOpts []option.RequestOption, opts ...OpenAIOption) *OpenAI {
	ro := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, reqOpts...)
	client := openai.NewClient(ro...)
	if model == "" {
		model = "gpt-4.1-mini"
	}
	o := &OpenAI{
		client:           &client,
		model:            model,
		maxOutput:        1200,
		rateLimitWaits:   []time.Duration{20 * time.Second, 40 * time.Second, 60 * time.Second},
		serverErrorWaits: []time.Duration{2 * time.Second, 10 * time.Second, 30 * time.Second},
		wait:             sleep,
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

// Model is the configured model name
func (o *OpenAI) Model() string { return o.model }

// Generate asks the model for a draft
func (o *OpenAI) Generate(ctx context.Context, b Brief) (Draft, error) {
	input, err := json.Marshal(b)
	if err != nil {
		return Draft{}, fmt.Errorf("narrative: marshal brief: %w", err)
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(o.maxOutput),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(string(input), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "ConversationNarrative",
					Schema:      draftSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Conversation narrative JSON"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := o.callWithRetry(ctx, params)
	if err != nil {
		return Draft{}, err
	}
	var d Draft
	if err := decodeModelJSON(resp.OutputText(), &d); err != nil {
		return Draft{}, fmt.Errorf("narrative: unparseable model output: %w", err)
	}
	return d, nil
}

func (o *OpenAI) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	attempts := max(len(o.rateLimitWaits), len(o.serverErrorWaits), 1)
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := o.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		var waits []time.Duration
		switch {
		case isRateLimitError(err):
			waits = o.rateLimitWaits
		case isServerError(err):
			waits = o.serverErrorWaits
		default:
			return nil, err
		}
		if attempt >= len(waits)-1 {
			return nil, err
		}
		if werr := o.wait(ctx, waits[attempt]); werr != nil {
			return nil, werr
		}
	}
	return nil, fmt.Errorf("narrative: failed after %d attempts", attempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func statusOf(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isRateLimitError(err error) bool {
	if statusOf(err) == 429 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "rate limit") || strings.Contains(s, "too many requests")
}

func isServerError(err error) bool {
	if code := statusOf(err); code >= 500 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "internal server error") || strings.Contains(s, "server_error")
}

func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	// models occasionally wrap the object in prose or fences
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object in model output (len=%d)", len(s))
	}
	return json.Unmarshal([]byte(s[start:end+1]), v)
}

func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	strictObject(m)
	return m
}

// strictObject marks every object closed with all properties required, as
// strict structured output demands
func strictObject(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			req := make([]string, 0, len(props))
			for name := range props {
				req = append(req, name)
			}
			if len(req) > 0 {
				schema["required"] = req
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				strictObject(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		strictObject(items)
	}
}
