package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TestRequest is the payload of POST /test. It decodes tolerantly: a field
// carrying an unexpected JSON type is treated as missing instead of failing
// the whole request.
type TestRequest struct {
	URL     *string         `json:"url"`    // nil when absent or not a string
	Method  string          `json:"method"` // "GET" when absent, "null" when null
	Params  KeyValues       `json:"params"`
	Headers KeyValues       `json:"headers"`
	Body    json.RawMessage `json:"body,omitempty"` // nil when absent
	Auth    AuthSpec        `json:"auth"`
}

func (r *TestRequest) UnmarshalJSON(data []byte) error {
	*r = TestRequest{Method: "GET"}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// Not an object: every field counts as missing.
		return nil
	}

	if raw, ok := fields["url"]; ok && !isNull(raw) {
		var url string
		if err := json.Unmarshal(raw, &url); err == nil {
			r.URL = &url
		}
	}
	if raw, ok := fields["method"]; ok {
		// Only an absent method defaults to GET; null is rejected later.
		if isNull(raw) {
			r.Method = "null"
		} else {
			r.Method, _ = scalarString(raw)
		}
	}
	if raw, ok := fields["params"]; ok {
		_ = r.Params.UnmarshalJSON(raw)
	}
	if raw, ok := fields["headers"]; ok {
		_ = r.Headers.UnmarshalJSON(raw)
	}
	if raw, ok := fields["body"]; ok {
		r.Body = append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
	}
	if raw, ok := fields["auth"]; ok {
		_ = r.Auth.UnmarshalJSON(raw)
	}
	return nil
}

// HasBody reports whether the caller supplied a body, whatever its value.
func (r *TestRequest) HasBody() bool {
	return r.Body != nil
}

// AuthSpec describes the credentials to attach to the outbound request.
type AuthSpec struct {
	Type        string `json:"type"`
	BearerToken string `json:"bearerToken"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthBasic  = "basic"
)

func (a *AuthSpec) UnmarshalJSON(data []byte) error {
	*a = AuthSpec{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	a.Type = stringField(fields, "type")
	a.BearerToken = stringField(fields, "bearerToken")
	a.Username = stringField(fields, "username")
	a.Password = stringField(fields, "password")
	return nil
}

// Normalize lower-cases the type and falls back to "none" when it is empty.
// Unrecognized types are kept as-is and attach no credentials.
func (a AuthSpec) Normalize() AuthSpec {
	a.Type = strings.ToLower(strings.TrimSpace(a.Type))
	if a.Type == "" {
		a.Type = AuthNone
	}
	return a
}

// TestResult is the envelope returned by POST /test for every outcome.
type TestResult struct {
	Status          *int           `json:"status"`
	ResponseTimeMs  float64        `json:"responseTimeMs"`
	ResponseHeaders map[string]any `json:"responseHeaders"`
	Error           *string        `json:"error"`
	Data            any            `json:"data"`
	Debug           *DebugInfo     `json:"debug,omitempty"`
}

// DebugInfo carries low-level diagnostics for failures where no upstream
// response was received.
type DebugInfo struct {
	Code    *string `json:"code"`
	Syscall *string `json:"syscall"`
	Errno   *int    `json:"errno"`
	Address *string `json:"address"`
	Port    *int    `json:"port"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
