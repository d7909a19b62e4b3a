package companion

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"learnemg/internal/gemini"
	"learnemg/internal/models"
	"learnemg/internal/persona"
)

// Kind is the recovery class of a failed query.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingCredential
	KindModelNotFound
	KindNetworkFailure
	KindServiceOverloaded
	KindQuotaExceeded
	KindSafetyBlocked
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindModelNotFound:
		return "model_not_found"
	case KindNetworkFailure:
		return "network_failure"
	case KindServiceOverloaded:
		return "service_overloaded"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindSafetyBlocked:
		return "safety_blocked"
	default:
		return "unknown"
	}
}

// Retryable reports whether the engine recovers from k on its own.
func (k Kind) Retryable() bool { return k == KindModelNotFound }

// Classify maps err to a Kind. Typed errors are checked first, then the
// message text.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, gemini.ErrMissingCredential) {
		return KindMissingCredential
	}

	var fe *gemini.FinishError
	if errors.As(err, &fe) && fe.Safety() {
		return KindSafetyBlocked
	}
	var se *gemini.SafetyError
	if errors.As(err, &se) {
		return KindSafetyBlocked
	}

	var ae *gemini.APIError
	if errors.As(err, &ae) {
		switch ae.Status {
		case 404:
			return KindModelNotFound
		case 429:
			return KindQuotaExceeded
		case 503:
			return KindServiceOverloaded
		}
	}

	msg := err.Error()
	low := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "404") || strings.Contains(low, "not found"):
		return KindModelNotFound
	case isNetwork(err) || strings.Contains(msg, "Failed to fetch") ||
		strings.Contains(msg, "NetworkError") || strings.Contains(low, "connection refused"):
		return KindNetworkFailure
	case strings.Contains(msg, "503") || strings.Contains(low, "overloaded"):
		return KindServiceOverloaded
	case strings.Contains(msg, "Quota") || strings.Contains(low, "quota") || strings.Contains(msg, "429"):
		return KindQuotaExceeded
	}
	return KindUnknown
}

func isNetwork(err error) bool {
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

var failureLines = map[Kind]map[string]string{
	KindMissingCredential: {
		persona.MentorID: "I need a Gemini API key before I can answer. I've opened the setup steps for you.",
		persona.GrumpID:  "No key, no consult. The setup steps are on your screen. Read them.",
	},
	KindModelNotFound: {
		persona.MentorID: "I couldn't find a model that works with your key. Try /model to pick one by hand.",
		persona.GrumpID:  "Your key can't reach any model I'd be caught dead using. Pick one with /model.",
	},
	KindNetworkFailure: {
		persona.MentorID: "I can't reach the server right now. Check your connection and ask me again.",
		persona.GrumpID:  "The network is down. Unlike me, it has an excuse. Try again when you're back online.",
	},
	KindServiceOverloaded: {
		persona.MentorID: "The service is overloaded at the moment. Give it a few seconds and ask again.",
		persona.GrumpID:  "The servers are overloaded. Everyone wants my opinion. Wait a few seconds.",
	},
	KindQuotaExceeded: {
		persona.MentorID: "We've hit the request quota. Let's pause for a minute or two before the next question.",
		persona.GrumpID:  "Quota exhausted. Go read the module for a few minutes, it won't hurt.",
	},
	KindSafetyBlocked: {
		persona.MentorID: "That response was blocked by the content filter. Try rephrasing the question.",
		persona.GrumpID:  "The content filter ate my answer. Rephrase it like a professional.",
	},
}

var unknownPrefix = map[string]string{
	persona.MentorID: "Something went wrong: ",
	persona.GrumpID:  "Something broke, and for once it wasn't you: ",
}

// Message returns the persona-voiced chat line for a failure of kind k.
func Message(k Kind, p models.Persona, err error) string {
	if lines, ok := failureLines[k]; ok {
		if line, ok := lines[p.ID]; ok {
			return line
		}
	}
	raw := "unknown error"
	if err != nil {
		raw = err.Error()
	}
	prefix, ok := unknownPrefix[p.ID]
	if !ok {
		prefix = unknownPrefix[persona.MentorID]
	}
	return prefix + raw
}
