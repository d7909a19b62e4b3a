package gemini

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// EmptyCompletionNotice stands in for a reply that finished normally but
// carried no text.
const EmptyCompletionNotice = "(The model finished without saying anything. Try rephrasing the question.)"

var (
	ErrMissingCredential = errors.New("no API key configured")
	ErrEmptyResponse     = errors.New("response contained no candidates")
)

// APIError is a non-2xx reply from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// FinishError reports a candidate that ended without content for a reason
// other than STOP.
type FinishError struct {
	Reason string
}

func (e *FinishError) Error() string {
	return "generation stopped: " + e.Reason
}

// Safety reports whether the finish reason is a content-policy block.
func (e *FinishError) Safety() bool {
	switch e.Reason {
	case "SAFETY", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return true
	}
	return false
}

// SafetyError reports a prompt rejected before generation.
type SafetyError struct {
	Reason string
}

func (e *SafetyError) Error() string {
	return "prompt blocked: " + e.Reason
}

// apiErrorFromBody builds an APIError from a failed response, preferring the
// server's own message.
func apiErrorFromBody(status int, body []byte) *APIError {
	msg := ""
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		msg = parsed.Get("error.message").String()
		if msg == "" {
			msg = parsed.Get("message").String()
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "unexpected status"
	}
	return &APIError{Status: status, Message: msg}
}
