package sequence

import (
	"errors"
	"fmt"
)

// Error codes returned by the ledger in the "code" field of an error body.
const (
	CodeInternal          = "SEQ000"
	CodeInvalidBody       = "SEQ003"
	CodeDuplicateID       = "SEQ050"
	CodeNotFound          = "SEQ051"
	CodeMalformedFilter   = "SEQ602"
	CodeInsufficientFunds = "SEQ701"
	CodeBadSignature      = "SEQ702"
	CodeRejected          = "SEQ735"
	CodeRateLimited       = "SEQ800"
	CodeUnauthorized      = "SEQ900"
)

// ErrCursorStalled is returned by iteration when the server reports more
// results but hands back the cursor it was given.
var ErrCursorStalled = errors.New("pagination cursor did not advance")

// APIError is a structured failure reported by the ledger.
type APIError struct {
	Status    int            `json:"-"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Detail    string         `json:"detail,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Retriable bool           `json:"retriable,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.RequestID != "" {
		msg += " [request " + e.RequestID + "]"
	}
	return msg
}

// ConstructionError reports an action that could not be added to a
// TransactionBuilder. A transaction carrying one is never sent.
type ConstructionError struct {
	Index  int        // position the action would have taken
	Type   ActionType // action kind being added
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("action %d (%s): %s", e.Index, e.Type, e.Reason)
}

// IsCode reports whether err carries an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
