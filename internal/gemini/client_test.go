package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"learnemg/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu    sync.Mutex
	key   string
	model string
	saves int
}

func (s *memStore) APIKey() (string, error) { return s.key, nil }
func (s *memStore) SetAPIKey(k string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = k
	return nil
}
func (s *memStore) PreferredModel() (string, error) { return s.model, nil }
func (s *memStore) SetPreferredModel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = id
	s.saves++
	return nil
}

type wireRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MIMEType string `json:"mime_type"`
				Data     string `json:"data"`
			} `json:"inline_data"`
		} `json:"parts"`
	} `json:"contents"`
	SafetySettings []struct {
		Category  string `json:"category"`
		Threshold string `json:"threshold"`
	} `json:"safetySettings"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc, store *memStore) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	if store == nil {
		store = &memStore{key: "test-key"}
	}
	c, err := New(Options{
		BaseURL:        srv.URL + "/v1beta",
		Model:          "gemini-2.0-flash",
		RequestTimeout: 5 * time.Second,
	}, store, nil)
	require.NoError(t, err)
	return c
}

func reply(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestGenerateBuildsPayload(t *testing.T) {
	var got wireRequest
	var path, key, auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.URL.Query().Get("key")
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"A motor unit is..."}]},"finishReason":"STOP"}]}`)
	}, nil)

	history := []models.ConversationMessage{
		{Role: models.RoleUser, DisplayText: "what is a MUP", ContextText: "what is a MUP"},
		{Role: models.RoleAssistant, DisplayText: "A potential.", ContextText: "A potential."},
		{Role: models.RoleUser, DisplayText: "more", ContextText: "more please"},
	}
	out, err := c.Generate(context.Background(), Request{
		Query:        "more",
		SystemPrompt: "You are Dr. Lumen.",
		History:      history,
		Image:        &models.Attachment{MIMEType: "image/png", Data: []byte{1, 2, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A motor unit is...", out)

	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", path)
	assert.Equal(t, "test-key", key)
	assert.Empty(t, auth)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "You are Dr. Lumen.\n\nwhat is a MUP", got.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "more please", got.Contents[2].Parts[0].Text)
	require.Len(t, got.Contents[2].Parts, 2)
	require.NotNil(t, got.Contents[2].Parts[1].InlineData)
	assert.Equal(t, "image/png", got.Contents[2].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "AQID", got.Contents[2].Parts[1].InlineData.Data)

	require.Len(t, got.SafetySettings, 4)
	for _, s := range got.SafetySettings {
		assert.Equal(t, "BLOCK_NONE", s.Threshold, s.Category)
	}

	assert.Equal(t, "what is a MUP", history[0].ContextText, "history must not be mutated")
}

func TestGenerateEmptyHistoryUsesQuery(t *testing.T) {
	var got wireRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}, nil)

	_, err := c.Generate(context.Background(), Request{Query: "define latency", SystemPrompt: "P"})
	require.NoError(t, err)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "P\n\ndefine latency", got.Contents[0].Parts[0].Text)
}

func TestGenerateLeadingModelTurnGetsSyntheticPrompt(t *testing.T) {
	contents := buildContents(Request{
		SystemPrompt: "P",
		History: []models.ConversationMessage{
			{Role: models.RoleAssistant, ContextText: "hello"},
			{Role: models.RoleUser, ContextText: "hi"},
		},
	})
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "P", contents[0].Parts[0].Text)
	assert.Equal(t, "hi", contents[2].Parts[0].Text)
}

func TestGenerateResponseOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "stop without text",
			status: http.StatusOK,
			body:   `{"candidates":[{"finishReason":"STOP"}]}`,
			want:   EmptyCompletionNotice,
		},
		{
			name:   "safety finish",
			status: http.StatusOK,
			body:   `{"candidates":[{"finishReason":"SAFETY"}]}`,
			check: func(t *testing.T, err error) {
				var fe *FinishError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, "SAFETY", fe.Reason)
				assert.True(t, fe.Safety())
			},
		},
		{
			name:   "max tokens finish",
			status: http.StatusOK,
			body:   `{"candidates":[{"finishReason":"MAX_TOKENS"}]}`,
			check: func(t *testing.T, err error) {
				var fe *FinishError
				require.ErrorAs(t, err, &fe)
				assert.False(t, fe.Safety())
			},
		},
		{
			name:   "prompt blocked",
			status: http.StatusOK,
			body:   `{"promptFeedback":{"blockReason":"OTHER"}}`,
			check: func(t *testing.T, err error) {
				var se *SafetyError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, "OTHER", se.Reason)
			},
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyResponse)
			},
		},
		{
			name:   "server message",
			status: http.StatusNotFound,
			body:   `{"error":{"code":404,"message":"models/gemini-x is not found for API version v1beta","status":"NOT_FOUND"}}`,
			check: func(t *testing.T, err error) {
				var ae *APIError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, 404, ae.Status)
				assert.Contains(t, ae.Message, "is not found")
				assert.Contains(t, err.Error(), "404")
			},
		},
		{
			name:   "status text fallback",
			status: http.StatusServiceUnavailable,
			body:   `upstream sad`,
			check: func(t *testing.T, err error) {
				var ae *APIError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, "Service Unavailable", ae.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				reply(w, tt.status, tt.body)
			}, nil)
			out, err := c.Generate(context.Background(), Request{Query: "q"})
			if tt.check == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, out)
				return
			}
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGenerateWithoutKeySkipsNetwork(t *testing.T) {
	hits := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
	}, &memStore{})

	assert.False(t, c.HasCredential())
	_, err := c.Generate(context.Background(), Request{Query: "q"})
	assert.True(t, errors.Is(err, ErrMissingCredential))
	assert.Zero(t, hits)

	require.NoError(t, c.SetAPIKey("  new-key "))
	assert.True(t, c.HasCredential())
}

func TestModelOverrideAndStoredPreference(t *testing.T) {
	var path string
	store := &memStore{key: "k", model: "gemini-1.5-flash"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		reply(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"x"}]}}]}`)
	}, store)

	assert.Equal(t, "gemini-1.5-flash", c.Model())

	_, err := c.Generate(context.Background(), Request{Query: "q", Model: "gemini-pro"})
	require.NoError(t, err)
	assert.Equal(t, "/v1beta/models/gemini-pro:generateContent", path)
	assert.Equal(t, "gemini-1.5-flash", c.Model(), "override is per call")
}

func TestPinnedModelBeatsStoredPreference(t *testing.T) {
	store := &memStore{key: "k", model: "gemini-1.5-flash"}
	c, err := New(Options{BaseURL: "http://127.0.0.1:1/v1beta", Model: "gemini-2.5-pro", PinModel: true}, store, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", c.Model())
	assert.Zero(t, store.saves)
}

func TestDiscoverWorkingModel(t *testing.T) {
	store := &memStore{key: "k"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		reply(w, http.StatusOK, `{"models":[
			{"name":"models/embedding-001","supportedGenerationMethods":["embedContent"]},
			{"name":"models/gemini-1.5-pro","supportedGenerationMethods":["generateContent"]},
			{"name":"models/gemini-1.5-flash","displayName":"Gemini 1.5 Flash","supportedGenerationMethods":["generateContent","countTokens"]},
			{"name":"models/gemini-2.0-flash-exp","supportedGenerationMethods":["generateContent"]}
		]}`)
	}, store)

	listed, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "Gemini 1.5 Flash", listed[1].Name)

	id, err := c.DiscoverWorkingModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", id)

	require.NoError(t, c.SetModel(id))
	assert.Equal(t, "gemini-1.5-flash", store.model)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, id, c.Model())
}

func TestRankModels(t *testing.T) {
	tests := []struct {
		ids  []string
		want string
	}{
		{[]string{"gemini-pro", "gemini-1.5-pro", "gemini-2.0-flash"}, "gemini-2.0-flash"},
		{[]string{"gemini-pro", "gemini-1.5-flash-latest", "gemini-1.5-flash"}, "gemini-1.5-flash-latest"},
		{[]string{"gemini-1.5-pro-latest", "gemini-1.5-pro"}, "gemini-1.5-pro-latest"},
		{[]string{"gemini-exp-1206", "gemini-2.5-flash-preview"}, "gemini-2.5-flash-preview"},
		{[]string{"aqa", "gemini-exp-1206"}, "gemini-exp-1206"},
		{[]string{"aqa", "text-bison"}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RankModels(tt.ids), "%v", tt.ids)
	}
}
