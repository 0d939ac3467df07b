package scanservice

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GenericScanMessage replaces known-noisy backend messages before they
// reach the user.
const GenericScanMessage = "Security scan failed. Please try again."

// noisyMessages are backend error strings that carry no actionable detail.
var noisyMessages = map[string]struct{}{
	"improperly formed request.":   {},
	"improperly formed request":    {},
	"invalid request provided.":    {},
	"an unknown error occurred.":   {},
	"internal failure. try again.": {},
}

// ServiceError is a non-2xx response from the scan service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("scan service error (HTTP %d): %s", e.StatusCode, e.Message)
}

func newServiceError(status int, payload []byte) *ServiceError {
	msg := strings.TrimSpace(string(payload))
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && strings.TrimSpace(body.Message) != "" {
		msg = strings.TrimSpace(body.Message)
	}
	return &ServiceError{StatusCode: status, Message: SanitizeMessage(msg)}
}

// SanitizeMessage swaps known-noisy backend messages for the generic
// feature-branded one. Everything else passes through verbatim.
func SanitizeMessage(msg string) string {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		return GenericScanMessage
	}
	if _, noisy := noisyMessages[strings.ToLower(trimmed)]; noisy {
		return GenericScanMessage
	}
	return trimmed
}
