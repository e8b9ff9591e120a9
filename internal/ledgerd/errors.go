package ledgerd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// Error is a ledger failure that maps onto the JSON error envelope.
type Error struct {
	Status    int
	Code      string
	Message   string
	Detail    string
	Data      map[string]any
	Retriable bool
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return e.Code + ": " + e.Message
}

func errInvalidBody(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Code: sequence.CodeInvalidBody,
		Message: "Invalid request body", Detail: fmt.Sprintf(format, args...)}
}

func errDuplicate(kind, id string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: sequence.CodeDuplicateID,
		Message: "Duplicate " + kind + " ID", Detail: fmt.Sprintf("%s %q already exists", kind, id)}
}

func errNotFound(kind, id string) *Error {
	return &Error{Status: http.StatusNotFound, Code: sequence.CodeNotFound,
		Message: "Not found", Detail: fmt.Sprintf("%s %q does not exist", kind, id)}
}

func errFilter(err error) *Error {
	return &Error{Status: http.StatusBadRequest, Code: sequence.CodeMalformedFilter,
		Message: "Malformed filter", Detail: err.Error()}
}

func errRejected(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Code: sequence.CodeRejected,
		Message: "Transaction rejected", Detail: fmt.Sprintf(format, args...)}
}

func errSignature(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Code: sequence.CodeBadSignature,
		Message: "Invalid transaction signature", Detail: fmt.Sprintf(format, args...)}
}

func errInsufficientFunds(account, flavor string, have, want uint64) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    sequence.CodeInsufficientFunds,
		Message: "Insufficient funds",
		Detail:  fmt.Sprintf("account %q holds %d of %q, needs %d", account, have, flavor, want),
		Data: map[string]any{
			"account_id": account,
			"flavor_id":  flavor,
			"available":  have,
			"requested":  want,
		},
	}
}

// writeError aborts the request with the JSON envelope for err. Anything
// that is not an *Error is logged and reported as an internal failure.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var le *Error
	if !errors.As(err, &le) {
		logger.Error("internal error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		le = &Error{Status: http.StatusInternalServerError, Code: sequence.CodeInternal,
			Message: "Internal server error", Retriable: true}
	}
	c.AbortWithStatusJSON(le.Status, sequence.APIError{
		Code:      le.Code,
		Message:   le.Message,
		Detail:    le.Detail,
		Data:      le.Data,
		Retriable: le.Retriable,
		RequestID: requestID(c),
	})
}

// requestID echoes the client's Id header, or makes one up.
func requestID(c *gin.Context) string {
	if id := c.GetHeader("Id"); id != "" {
		return id
	}
	return uuid.New().String()
}
