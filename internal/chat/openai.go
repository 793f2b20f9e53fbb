package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/pkg/version"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// DefaultMaxOutputTokens bounds reply length.
const DefaultMaxOutputTokens = 800

// OpenAIConfig configures an OpenAIGenerator.
type OpenAIConfig struct {
	APIKey          string
	Model           string
	MaxOutputTokens int64

	// BaseURL overrides the API endpoint.
	BaseURL string
}

// reply is the structured answer the model must return.
type reply struct {
	Answer string `json:"answer" jsonschema:"required,description=Answer to the question grounded on the numbered survey responses"`
}

// OpenAIGenerator calls the OpenAI Responses API with a JSON-schema
// constrained reply. SDK retries are disabled.
type OpenAIGenerator struct {
	client    openai.Client
	model     string
	maxOutput int64
	format    responses.ResponseFormatTextConfigUnionParam
}

// NewOpenAIGenerator creates a generator. An empty API key yields
// ErrCredentialMissing.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, surveyerrors.New(surveyerrors.ErrCodeCredentialMissing, "OpenAI API key is not set", nil)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHeader("User-Agent", version.UserAgent()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIGenerator{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxOutput: cfg.MaxOutputTokens,
		format: responses.ResponseFormatTextConfigUnionParam{
			OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
				Name:        "SurveyAnswer",
				Schema:      GenerateSchema[reply](),
				Strict:      openai.Bool(true),
				Description: openai.String("Grounded answer JSON"),
				Type:        "json_schema",
			},
		},
	}, nil
}

// Model returns the configured model name.
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Generate sends the prompt and returns the model's answer.
func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(p.History)+1)
	for _, t := range p.History {
		role := responses.EasyInputMessageRoleUser
		if t.Role == RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(t.Content, role))
	}
	items = append(items, responses.ResponseInputItemParamOfMessage(userInput(p), responses.EasyInputMessageRoleUser))

	params := responses.ResponseNewParams{
		Model:           g.model,
		MaxOutputTokens: openai.Int(g.maxOutput),
		Instructions:    openai.String(p.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
		Text: responses.ResponseTextConfigParam{
			Format: g.format,
		},
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	out := resp.OutputText()
	var r reply
	if err := decodeModelJSON(out, &r); err != nil {
		// Models occasionally ignore the format; plain text is still an answer.
		if text := strings.TrimSpace(out); text != "" {
			return text, nil
		}
		return "", surveyerrors.UpstreamError("chat provider returned an empty reply", err)
	}

	answer := strings.TrimSpace(r.Answer)
	if answer == "" {
		return "", surveyerrors.UpstreamError("chat provider returned an empty answer", nil)
	}
	return answer, nil
}

func userInput(p Prompt) string {
	return fmt.Sprintf("Survey responses:\n\n%s\n\nQuestion: %s", p.Context, p.Message)
}

// classify maps SDK errors onto upstream error codes.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return surveyerrors.New(surveyerrors.ErrCodeUpstreamTimeout, "chat provider timed out", err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return surveyerrors.New(surveyerrors.ErrCodeUpstreamRateLimited, "chat provider rate limit reached", err)
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return surveyerrors.New(surveyerrors.ErrCodeUpstreamUnavailable, "chat provider is unavailable", err)
		}
	}
	return surveyerrors.UpstreamError("chat provider request failed", err)
}

// GenerateSchema reflects T into a strict JSON schema accepted by the
// Responses API.
func GenerateSchema[T any]() map[string]any {
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
	var schema map[string]any
	if err := json.Unmarshal(b, &schema); err != nil {
		panic(err)
	}
	ensureStrict(schema)
	return schema
}

// ensureStrict marks every object closed and every property required.
func ensureStrict(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if m, ok := p.(map[string]any); ok {
				ensureStrict(m)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		ensureStrict(items)
	}
}

// decodeModelJSON unmarshals a model reply, tolerating surrounding text.
func decodeModelJSON(output string, v any) error {
	s := strings.TrimSpace(output)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object in model output (len=%d)", len(s))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON: %w", err)
	}
	return nil
}
