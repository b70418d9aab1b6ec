package validator

import (
	"fmt"
	"regexp"
	"strings"

	"api-relay/internal/models"
)

var SupportedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// ValidationError is returned for input that must be rejected before any
// network activity. Its message is shown to the client verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Target is a validated TestRequest target.
type Target struct {
	URL    string
	Method string
}

// ValidateTestRequest checks the URL and method of a test request in the
// order clients expect: presence of the URL, its scheme (when strictScheme is
// set), then the method.
func ValidateTestRequest(req *models.TestRequest, strictScheme bool) (*Target, error) {
	if req == nil || req.URL == nil || *req.URL == "" {
		return nil, &ValidationError{Message: "Please provide a valid URL."}
	}

	url := strings.TrimSpace(*req.URL)
	if strictScheme && !schemePattern.MatchString(url) {
		return nil, &ValidationError{Message: "URL must start with http:// or https://"}
	}

	method := strings.ToUpper(req.Method)
	if !isSupportedMethod(method) {
		return nil, &ValidationError{Message: fmt.Sprintf(`Unsupported method "%s".`, method)}
	}

	return &Target{URL: url, Method: method}, nil
}

func isSupportedMethod(method string) bool {
	for _, m := range SupportedMethods {
		if m == method {
			return true
		}
	}
	return false
}
