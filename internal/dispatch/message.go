package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// invalidFormatMessage is the fixed reply for requests missing a field.
const invalidFormatMessage = "Invalid message format"

// Request asks the host to wait for Filename and move it to
// FullDestinationPath.
type Request struct {
	Filename            string `json:"filename"`
	FullDestinationPath string `json:"fullDestinationPath"`
}

// Response is the single reply sent for each request.
type Response struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	MovedFrom string `json:"movedFrom,omitempty"`
	MovedTo   string `json:"movedTo,omitempty"`
}

func successResponse(from, to string) Response {
	return Response{Status: StatusSuccess, MovedFrom: from, MovedTo: to}
}

func errorResponse(message string) Response {
	return Response{Status: StatusError, Message: message}
}

func internalErrorResponse(err error) Response {
	return errorResponse("Daemon internal error: " + err.Error())
}

// decodeRequest checks that raw is an object whose filename and
// fullDestinationPath are non-empty strings. Other fields are ignored.
func decodeRequest(raw json.RawMessage) (Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Request{}, fmt.Errorf("request is not a JSON object: %w", err)
	}
	if fields == nil {
		return Request{}, fmt.Errorf("request is null")
	}
	filename, err := requiredString(fields, "filename")
	if err != nil {
		return Request{}, err
	}
	destination, err := requiredString(fields, "fullDestinationPath")
	if err != nil {
		return Request{}, err
	}
	return Request{Filename: filename, FullDestinationPath: destination}, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	value, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return "", fmt.Errorf("%s is missing", key)
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", fmt.Errorf("%s is not a string", key)
	}
	if s == "" {
		return "", fmt.Errorf("%s is empty", key)
	}
	return s, nil
}
