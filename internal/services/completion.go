package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"

	"github.com/jdphotomoments/chatwidget/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// Completion streams replies from a hosted OpenAI-compatible chat-completion endpoint. The body of the response
// is decoded with StreamDecoder rather than an SSE client, because the endpoint's stream is consumed line by line
// and a single malformed line must not spoil its neighbours.
type Completion struct {
	apiKey       string
	endpoint     string
	model        string
	systemPrompt string

	client *http.Client

	logger *slog.Logger
}

// CompletionConfig configures a Completion. Empty Endpoint and Model fall back to the Groq defaults, and a nil
// HTTPClient to a client without a timeout, so the transport's own defaults bound the request.
type CompletionConfig struct {
	APIKey       string
	Endpoint     string
	Model        string
	SystemPrompt string
	HTTPClient   *http.Client
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

const (
	// DefaultCompletionEndpoint is the hosted chat-completion endpoint used when none is configured.
	DefaultCompletionEndpoint = "https://api.groq.com/openai/v1/chat/completions"
	// DefaultCompletionModel is the model requested when none is configured.
	DefaultCompletionModel = "llama-3.3-70b-versatile"

	errLoggerKey = "err"

	readChunkSize   = 4096
	maxErrorBodyLen = 512
)

// ErrNoStream is returned when a successful response carries no readable body.
var ErrNoStream = errors.New("response has no readable stream")

// NewCompletion creates a Completion from cfg.
func NewCompletion(cfg CompletionConfig, logger *slog.Logger) Completion {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultCompletionEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = DefaultCompletionModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return Completion{
		apiKey:       cfg.APIKey,
		endpoint:     endpoint,
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		client:       client,
		logger:       logger.With(slog.String("module", "completion")),
	}
}

// Chat sends the conversation, which must end with the new user message, and returns an iterator over the
// reply's content deltas. Transport failures are yielded once as an error and end the iteration. Breaking out
// of the loop closes the response body.
func (c Completion) Chat(ctx context.Context, messages []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.doRequest(ctx, messages)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		dec := NewStreamDecoder(c.logger)
		buf := make([]byte, readChunkSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				for _, delta := range dec.Feed(buf[:n]) {
					if !yield(delta, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield("", fmt.Errorf("error reading response: %w", err))
				return
			}
		}

		if rest := dec.Remainder(); len(rest) > 0 {
			c.logger.Debug("Discarding unterminated stream line", slog.String("line", string(rest)))
		}
		c.logger.Debug("Stream ended", slog.Bool("done", dec.Done()))
	}
}

func (c Completion) requestBody(messages []models.Message) goopenai.ChatCompletionRequest {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(messages)+1)
	msgs = append(msgs, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleSystem,
		Content: c.systemPrompt,
	})
	for _, msg := range messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    msg.Role.WireRole(),
			Content: msg.Content,
		})
	}

	return goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   true,
	}
}

func (c Completion) doRequest(ctx context.Context, messages []models.Message) (*http.Response, error) {
	jsonBody, err := json.Marshal(c.requestBody(messages))
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	c.logger.Debug("Request Body", slog.String("body", string(jsonBody)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	// A 204 carries no body at all, unlike a 200 whose stream happens to be empty.
	if resp.Body == nil || resp.StatusCode == http.StatusNoContent {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, ErrNoStream
	}

	return resp, nil
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, e.Body)
}
