package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a failed backend call. Status is 0 when the request never got a
// response.
type Error struct {
	Status  int
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.UserMessage("")
	if msg == "" {
		if e.Err != nil {
			return fmt.Sprintf("api: %v", e.Err)
		}
		return fmt.Sprintf("api: status %d", e.Status)
	}
	if e.Status == 0 {
		return "api: " + msg
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the user: message, then detail, then
// fallback.
func (e *Error) UserMessage(fallback string) string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Detail != "":
		return e.Detail
	default:
		return fallback
	}
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func errorFromResponse(status int, body []byte) *Error {
	e := &Error{Status: status}
	var payload struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		e.Detail = strings.TrimSpace(string(body))
		if len(e.Detail) > 300 {
			e.Detail = e.Detail[:300]
		}
		return e
	}
	e.Message = payload.Message
	switch d := payload.Detail.(type) {
	case string:
		e.Detail = d
	case nil:
		e.Detail = payload.Error
	default:
		if b, err := json.Marshal(d); err == nil {
			e.Detail = string(b)
		}
	}
	return e
}
