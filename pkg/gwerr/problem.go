package gwerr

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 "problem details" response body.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes err as an RFC 7807 problem response, using its Code's
// HTTPStatus and String as the status and title. A non-*Error is written as
// an Internal error without leaking its message.
func WriteProblem(w http.ResponseWriter, err error) {
	gwErr, ok := err.(*Error)
	if !ok {
		gwErr = NewInternal("unexpected error")
	}

	problem := &Problem{
		Type:   "about:blank",
		Title:  gwErr.Code.String(),
		Status: gwErr.Code.HTTPStatus(),
		Detail: gwErr.Message,
	}

	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
