// Package gemini talks to the Generative Language REST API. The transport is
// the openai-go SDK's generic request path pointed at the Gemini base URL;
// payloads are the Gemini wire format.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"learnemg/internal/models"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Store persists the credential and the preferred model.
type Store interface {
	APIKey() (string, error)
	SetAPIKey(key string) error
	PreferredModel() (string, error)
	SetPreferredModel(id string) error
}

type Options struct {
	BaseURL           string
	Model             string
	APIKey            string // overrides the stored key when set
	PinModel          bool   // Model wins over the stored preference
	RequestTimeout    time.Duration
	RequestsPerMinute int // 0 disables pacing
}

// Request is one generation call.
type Request struct {
	Query        string
	SystemPrompt string
	History      []models.ConversationMessage
	Model        string // overrides the client's model for this call only
	Image        *models.Attachment
}

// Client is safe for use from concurrent tea.Cmd goroutines.
type Client struct {
	api     openai.Client
	store   Store
	limiter *rate.Limiter
	log     *slog.Logger

	mu    sync.RWMutex
	key   string
	model string
}

var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// New builds a client, reading the stored key and model. A stored model
// takes precedence over opts.Model unless PinModel is set.
func New(opts Options, store Store, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	c := &Client{
		store: store,
		log:   log.With("component", "gemini"),
		model: opts.Model,
		key:   opts.APIKey,
	}

	if c.key == "" {
		key, err := store.APIKey()
		if err != nil {
			return nil, fmt.Errorf("read api key: %w", err)
		}
		c.key = key
	}
	stored, err := store.PreferredModel()
	if err != nil {
		return nil, fmt.Errorf("read preferred model: %w", err)
	}
	if stored != "" && !(opts.PinModel && opts.Model != "") {
		c.model = stored
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}
	c.limiter = rate.NewLimiter(limit, 1)

	clientOpts := []option.RequestOption{
		option.WithBaseURL(base),
		option.WithMaxRetries(0),
		option.WithMiddleware(statusMiddleware),
	}
	if opts.RequestTimeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.RequestTimeout))
	}
	c.api = openai.NewClient(clientOpts...)

	return c, nil
}

// statusMiddleware turns non-2xx replies into *APIError with the server's
// message before the SDK parses them as OpenAI errors.
func statusMiddleware(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	res, err := next(req)
	if err != nil || res.StatusCode/100 == 2 {
		return res, err
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	res.Body.Close()
	return nil, apiErrorFromBody(res.StatusCode, body)
}

func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel switches the model and persists it.
func (c *Client) SetModel(id string) error {
	c.mu.Lock()
	c.model = id
	c.mu.Unlock()
	if err := c.store.SetPreferredModel(id); err != nil {
		return fmt.Errorf("save preferred model: %w", err)
	}
	c.log.Info("model updated", "model", id)
	return nil
}

func (c *Client) HasCredential() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key != ""
}

// SetAPIKey stores a new credential.
func (c *Client) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if err := c.store.SetAPIKey(key); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
	return nil
}

func (c *Client) credentials() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key, c.model
}

func (c *Client) requestOptions(key string) []option.RequestOption {
	return []option.RequestOption{
		option.WithHeaderDel("authorization"),
		option.WithQuery("key", key),
	}
}

// Generate sends one generation request and returns the reply text.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	key, model := c.credentials()
	if key == "" {
		return "", ErrMissingCredential
	}
	if req.Model != "" {
		model = req.Model
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	payload := generateRequest{
		Contents:       buildContents(req),
		SafetySettings: make([]safetySetting, 0, len(safetyCategories)),
	}
	for _, cat := range safetyCategories {
		payload.SafetySettings = append(payload.SafetySettings, safetySetting{Category: cat, Threshold: "BLOCK_NONE"})
	}

	start := time.Now()
	var body []byte
	err := c.api.Post(ctx, "models/"+model+":generateContent", payload, &body, c.requestOptions(key)...)
	if err != nil {
		c.log.Warn("generate failed", "model", model, "error", err, "elapsed", time.Since(start))
		return "", normalizeError(err)
	}
	c.log.Debug("generate ok", "model", model, "turns", len(payload.Contents), "elapsed", time.Since(start))

	return parseGeneration(body)
}

// normalizeError unwraps SDK errors that slipped past the middleware.
func normalizeError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		msg := sdkErr.Message
		if msg == "" {
			msg = http.StatusText(sdkErr.StatusCode)
		}
		return &APIError{Status: sdkErr.StatusCode, Message: msg}
	}
	return err
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents       []content       `json:"contents"`
	SafetySettings []safetySetting `json:"safetySettings"`
}

// MarshalJSON makes the SDK send the body through encoding/json.
func (r generateRequest) MarshalJSON() ([]byte, error) {
	type plain generateRequest
	return json.Marshal(plain(r))
}

func wireRole(r models.Role) string {
	if r == models.RoleAssistant {
		return "model"
	}
	return "user"
}

// buildContents copies history into wire turns, attaches the image and
// embeds the system prompt ahead of the first user text.
func buildContents(req Request) []content {
	var contents []content
	if len(req.History) == 0 {
		contents = []content{{Role: "user", Parts: []part{{Text: req.Query}}}}
	} else {
		contents = make([]content, 0, len(req.History)+1)
		for _, m := range req.History {
			text := m.ContextText
			if text == "" {
				text = m.DisplayText
			}
			contents = append(contents, content{Role: wireRole(m.Role), Parts: []part{{Text: text}}})
		}
	}

	if req.Image != nil && len(req.Image.Data) > 0 {
		for i := len(contents) - 1; i >= 0; i-- {
			if contents[i].Role == "user" {
				contents[i].Parts = append(contents[i].Parts, part{InlineData: &inlineData{
					MIMEType: req.Image.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
				}})
				break
			}
		}
	}

	if req.SystemPrompt == "" {
		return contents
	}
	if contents[0].Role != "user" {
		lead := content{Role: "user", Parts: []part{{Text: req.SystemPrompt}}}
		return append([]content{lead}, contents...)
	}
	first := &contents[0]
	for i := range first.Parts {
		if first.Parts[i].InlineData == nil {
			first.Parts[i].Text = req.SystemPrompt + "\n\n" + first.Parts[i].Text
			return contents
		}
	}
	first.Parts = append([]part{{Text: req.SystemPrompt}}, first.Parts...)
	return contents
}

func parseGeneration(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("decode generate response: invalid JSON")
	}
	res := gjson.ParseBytes(body)
	cand := res.Get("candidates.0")

	if text := cand.Get("content.parts.0.text").String(); text != "" {
		return text, nil
	}
	if reason := cand.Get("finishReason").String(); reason != "" {
		if reason == "STOP" {
			return EmptyCompletionNotice, nil
		}
		return "", &FinishError{Reason: reason}
	}
	if reason := res.Get("promptFeedback.blockReason").String(); reason != "" {
		return "", &SafetyError{Reason: reason}
	}
	return "", ErrEmptyResponse
}
