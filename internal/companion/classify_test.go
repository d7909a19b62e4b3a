package companion

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"learnemg/internal/gemini"
	"learnemg/internal/models"
	"learnemg/internal/persona"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"missing key", fmt.Errorf("generate: %w", gemini.ErrMissingCredential), KindMissingCredential},
		{"api 404", &gemini.APIError{Status: 404, Message: "gone"}, KindModelNotFound},
		{"not found text", errors.New("models/gemini-pro is not found for API version v1beta"), KindModelNotFound},
		{"url error", &url.Error{Op: "Post", URL: "https://example.invalid", Err: errors.New("dial tcp: lookup failed")}, KindNetworkFailure},
		{"failed to fetch", errors.New("TypeError: Failed to fetch"), KindNetworkFailure},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), KindNetworkFailure},
		{"overloaded", errors.New("The model is overloaded. Please try again later."), KindServiceOverloaded},
		{"api 503", &gemini.APIError{Status: 503, Message: "Service Unavailable"}, KindServiceOverloaded},
		{"quota text", errors.New("Quota exceeded for metric"), KindQuotaExceeded},
		{"api 429", &gemini.APIError{Status: 429, Message: "Resource has been exhausted"}, KindQuotaExceeded},
		{"safety finish", &gemini.FinishError{Reason: "PROHIBITED_CONTENT"}, KindSafetyBlocked},
		{"prompt blocked", &gemini.SafetyError{Reason: "OTHER"}, KindSafetyBlocked},
		{"length finish", &gemini.FinishError{Reason: "MAX_TOKENS"}, KindUnknown},
		{"anything else", errors.New("API key not valid"), KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestOnlyModelNotFoundRetries(t *testing.T) {
	for k := KindUnknown; k <= KindSafetyBlocked; k++ {
		assert.Equal(t, k == KindModelNotFound, k.Retryable(), k.String())
	}
}

func TestMessageIsPersonaVoiced(t *testing.T) {
	mentor, grump := persona.Registry[0], persona.Registry[1]

	assert.NotEqual(t, Message(KindNetworkFailure, mentor, nil), Message(KindNetworkFailure, grump, nil))
	assert.Contains(t, Message(KindUnknown, mentor, errors.New("API key not valid")), "API key not valid")
	assert.Contains(t, Message(KindUnknown, models.Persona{ID: "stranger"}, errors.New("boom")), "boom")
}
