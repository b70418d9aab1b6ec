package relay

import (
	"encoding/json"
	"net/http"
	"strings"

	"api-relay/internal/models"
	"api-relay/internal/validator"
)

// OutboundRequest is a TestRequest resolved into exactly what goes on the wire.
type OutboundRequest struct {
	URL         string
	Method      string
	Params      map[string]string
	Headers     map[string]string
	Body        []byte
	HasBody     bool
	BearerToken string
	BasicAuth   *BasicCredentials
}

type BasicCredentials struct {
	Username string
	Password string
}

// NewOutboundRequest folds params and headers, decides whether the body is
// sent and attaches credentials. target must come from
// validator.ValidateTestRequest.
func NewOutboundRequest(target *validator.Target, req *models.TestRequest) *OutboundRequest {
	out := &OutboundRequest{
		URL:     target.URL,
		Method:  target.Method,
		Params:  req.Params.Fold(),
		Headers: req.Headers.Fold(),
	}

	// Presence, not truthiness: 0, false and "" are all sent.
	if out.Method != http.MethodGet && req.HasBody() {
		out.HasBody = true
		body, isJSON := encodeBody(req.Body)
		out.Body = body
		if isJSON && !hasHeader(out.Headers, "Content-Type") {
			out.Headers["Content-Type"] = "application/json"
		}
	}

	auth := req.Auth.Normalize()
	switch auth.Type {
	case models.AuthBearer:
		if auth.BearerToken != "" {
			out.BearerToken = auth.BearerToken
		}
	case models.AuthBasic:
		out.BasicAuth = &BasicCredentials{Username: auth.Username, Password: auth.Password}
	}

	return out
}

// encodeBody turns the client's JSON body into the outbound payload. Strings
// go out verbatim; other values are sent as JSON. null carries no payload.
func encodeBody(raw json.RawMessage) ([]byte, bool) {
	if string(raw) == "null" {
		return nil, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s), false
	}
	return []byte(raw), true
}

func hasHeader(headers map[string]string, name string) bool {
	for key := range headers {
		if strings.EqualFold(strings.TrimSpace(key), name) {
			return true
		}
	}
	return false
}
