// Package respond writes JSON responses and the uniform error envelope used by every route.
package respond

import (
	"encoding/json"
	"net/http"

	"user-account-service/internal/apperr"
)

// ErrorBody is the payload under the "error" key of a failed response.
type ErrorBody struct {
	Message    string   `json:"message"`
	StatusCode int      `json:"statusCode"`
	Info       []string `json:"info,omitempty"`
	Cause      string   `json:"cause,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSON writes v with status. Encoding errors are ignored; the header is already sent.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Body builds the envelope body for err. Untyped errors become a 500 with a generic message.
// When exposeCause is set the internal cause text is included.
func Body(err error, exposeCause bool) ErrorBody {
	e, ok := apperr.As(err)
	if !ok {
		b := ErrorBody{Message: "Internal Server Error", StatusCode: http.StatusInternalServerError}
		if exposeCause && err != nil {
			b.Cause = err.Error()
		}
		return b
	}
	b := ErrorBody{Message: e.Message, StatusCode: e.Status(), Info: e.Details}
	if exposeCause && e.Err != nil {
		b.Cause = e.Err.Error()
	}
	return b
}

// Error writes the error envelope for err.
func Error(w http.ResponseWriter, err error, exposeCause bool) {
	b := Body(err, exposeCause)
	JSON(w, b.StatusCode, errorEnvelope{Error: b})
}
