package response

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"dataset-publisher/internal/utils"
)

// Outcome is the result of one publisher operation
type Outcome struct {
	Operation     string     `json:"operation"`
	State         string     `json:"state"`
	Success       bool       `json:"success"`
	StatusCode    int        `json:"statusCode,omitempty"`
	Body          string     `json:"body,omitempty"`
	Batches       int        `json:"batches,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlationId,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`

	err error
}

// ErrorInfo represents error information in outcomes
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Retryable  bool   `json:"retryable"`
}

// SuccessOutcome creates a successful outcome carrying the raw response text
func SuccessOutcome(operation, state string, statusCode int, body, correlationID string) *Outcome {
	return &Outcome{
		Operation:     operation,
		State:         state,
		Success:       true,
		StatusCode:    statusCode,
		Body:          body,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
}

// ErrorOutcome creates a failed outcome from any error
func ErrorOutcome(operation, state string, err error, correlationID string) *Outcome {
	outcome := &Outcome{
		Operation:     operation,
		State:         state,
		Success:       false,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
		err:           err,
	}

	if appErr, ok := utils.AsAppError(err); ok {
		outcome.StatusCode = appErr.StatusCode
		outcome.Error = &ErrorInfo{
			Code:       appErr.Code,
			Message:    appErr.Message,
			Details:    appErr.Details,
			StatusCode: appErr.StatusCode,
			Retryable:  appErr.Retryable,
		}
		return outcome
	}

	outcome.Error = &ErrorInfo{
		Code:    "UNKNOWN",
		Message: err.Error(),
	}
	return outcome
}

// Err returns the error behind a failed outcome
func (o *Outcome) Err() error {
	return o.err
}

// Message is the console text: the raw response body on success, the error message otherwise
func (o *Outcome) Message() string {
	if o.Success {
		return o.Body
	}
	if o.err != nil {
		return o.err.Error()
	}
	if o.Error != nil {
		return o.Error.Message
	}
	return ""
}

// WriteText prints the outcome message on a single line
func WriteText(w io.Writer, outcome *Outcome) error {
	_, err := fmt.Fprintln(w, outcome.Message())
	return err
}

// WriteJSON prints the whole outcome as one JSON document
func WriteJSON(w io.Writer, outcome *Outcome) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(outcome)
}
