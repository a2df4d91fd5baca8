package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is a lobby/store control frame tagged by action.
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Response is the reply to a Request.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func NewRequest(action string, data any) (*Request, error) {
	req := &Request{Action: action}

	if data == nil {
		return req, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	req.Data = raw

	return req, nil
}

// Bind decodes the request data into v. Missing data leaves v untouched.
func (that *Request) Bind(v any) error {
	if len(that.Data) == 0 {
		return nil
	}

	return Decode(that.Data, v)
}

func Success(message string, data any) *Response {
	resp := &Response{Status: StatusSuccess, Message: message}

	if data == nil {
		return resp
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Failure(fmt.Sprintf("failed to marshal response: %v", err))
	}

	resp.Data = raw

	return resp
}

func Failure(message string) *Response {
	return &Response{Status: StatusError, Message: message}
}

func (that *Response) IsSuccess() bool {
	return that.Status == StatusSuccess
}

// HasData reports whether the response carries a non-null payload.
func (that *Response) HasData() bool {
	return len(that.Data) > 0 && string(that.Data) != "null"
}

func (that *Response) Bind(v any) error {
	if !that.HasData() {
		return nil
	}

	return Decode(that.Data, v)
}
