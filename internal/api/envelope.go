package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is the "v" field of every response body.
const envelopeVersion = 1

// Envelope is the JSON shape of every API response.
type Envelope struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps response bodies in an Envelope. Error bodies carry
// the message twice: "error" for simple clients and "code"/"message"/"details"
// for clients that branch on the code.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if _, ok := v.(*Envelope); ok {
		return v, nil
	}

	if strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5") {
		env := &Envelope{V: envelopeVersion, Success: false}
		switch e := v.(type) {
		case *APIError:
			env.Error = e.Message
			env.Code = e.Code
			env.Message = e.Message
			env.Details = e.Details
		case error:
			env.Error = e.Error()
		default:
			env.Error = "request failed"
		}
		return env, nil
	}

	return &Envelope{V: envelopeVersion, Success: true, Data: v}, nil
}
