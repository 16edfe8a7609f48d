package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/briefing-cli/internal/apperr"
)

const codeRateLimited = "RATE_LIMITED"

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

var statusByCode = map[string]int{
	apperr.CodeInsufficientData:   http.StatusUnprocessableEntity,
	apperr.CodeEstimation:         http.StatusUnprocessableEntity,
	apperr.CodeConfiguration:      http.StatusUnprocessableEntity,
	apperr.CodeComputationTimeout: http.StatusGatewayTimeout,
	apperr.CodeNotFound:           http.StatusNotFound,
	apperr.CodeInvalidTransition:  http.StatusConflict,
	apperr.CodeInvalidInput:       http.StatusBadRequest,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError maps coded errors onto their HTTP status. Anything else is an
// internal error whose message is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	coded, ok := apperr.AsCoded(err)
	if !ok {
		zap.L().Error("api: internal error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    apperr.CodeInternal,
			Message: "internal error",
		})
		return
	}

	status, known := statusByCode[coded.Code()]
	if !known {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorBody{
		Code:    coded.Code(),
		Message: coded.Error(),
		Details: coded.Details(),
	})
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &apperr.InvalidInputError{Reason: "request body is empty"}
		}
		return &apperr.InvalidInputError{Reason: err.Error()}
	}
	return nil
}
