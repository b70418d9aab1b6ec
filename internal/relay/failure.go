package relay

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"api-relay/internal/models"
	"api-relay/internal/validator"

	"github.com/go-resty/resty/v2"
)

const genericFailureMessage = "Request failed."

// Failure is an unsuccessful dispatch outcome: either *UpstreamError or
// *TransportError.
type Failure interface {
	error
	// RelayStatus is the status the relay answers its own caller with.
	RelayStatus() int
	// Result shapes the failure into the response envelope.
	Result(elapsed time.Duration) models.TestResult

	failure()
}

// UpstreamError means the upstream answered, with a non-2xx status.
type UpstreamError struct {
	Response *Response
}

func (e *UpstreamError) failure() {}

func (e *UpstreamError) Error() string {
	if e.Response == nil {
		return genericFailureMessage
	}
	return fmt.Sprintf("Request failed with status code %d", e.Response.StatusCode)
}

// RelayStatus mirrors the upstream status unless it is invalid or cannot carry
// the JSON envelope (1xx, 304), in which case it is 502.
func (e *UpstreamError) RelayStatus() int {
	if e.Response == nil {
		return http.StatusBadGateway
	}
	switch code := e.Response.StatusCode; {
	case code < 200 || code > 599, code == http.StatusNotModified:
		return http.StatusBadGateway
	default:
		return code
	}
}

func (e *UpstreamError) Result(elapsed time.Duration) models.TestResult {
	msg := e.Error()
	result := models.TestResult{
		ResponseTimeMs: roundMs(elapsed),
		Error:          &msg,
	}
	if e.Response != nil {
		status := e.Response.StatusCode
		result.Status = &status
		result.ResponseHeaders = shapeHeaders(e.Response.Header)
		if len(e.Response.Body) > 0 {
			result.Data = shapeData(e.Response.Body)
		}
	}
	return result
}

// TransportError means no response was obtained: DNS, connect, TLS, timeout,
// redirect limit, blocked address or an unreadable body.
type TransportError struct {
	Err     error
	Timeout time.Duration
}

func (e *TransportError) failure() {}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return genericFailureMessage
	}
	if isTimeout(e.Err) && e.Timeout > 0 {
		return fmt.Sprintf("timeout of %dms exceeded", e.Timeout.Milliseconds())
	}

	err := e.Err
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}

	if code := errorCode(e.Err); code != "" {
		return fmt.Sprintf("Request failed (%s).", code)
	}
	return genericFailureMessage
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) RelayStatus() int {
	return http.StatusBadGateway
}

func (e *TransportError) Result(elapsed time.Duration) models.TestResult {
	msg := e.Error()
	return models.TestResult{
		ResponseTimeMs: roundMs(elapsed),
		Error:          &msg,
		Debug:          diagnose(e.Err),
	}
}

// classify maps a dispatch outcome to a Failure, or nil on success.
func classify(resp *Response, err error, timeout time.Duration) Failure {
	if err != nil {
		return &TransportError{Err: err, Timeout: timeout}
	}
	if resp == nil {
		return &TransportError{Timeout: timeout}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Response: resp}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var errnoCodes = map[syscall.Errno]string{
	syscall.ECONNREFUSED:  "ECONNREFUSED",
	syscall.ECONNRESET:    "ECONNRESET",
	syscall.ECONNABORTED:  "ECONNABORTED",
	syscall.EHOSTUNREACH:  "EHOSTUNREACH",
	syscall.ENETUNREACH:   "ENETUNREACH",
	syscall.ETIMEDOUT:     "ETIMEDOUT",
	syscall.EPIPE:         "EPIPE",
	syscall.EADDRNOTAVAIL: "EADDRNOTAVAIL",
}

// errorCode names the failure the way HTTP tooling usually reports it.
// It returns "" when nothing specific is known.
func errorCode(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, validator.ErrAddressBlocked):
		return "ERR_ADDRESS_BLOCKED"
	case errors.Is(err, ErrTooManyRedirects):
		return "ERR_FR_TOO_MANY_REDIRECTS"
	case errors.Is(err, resty.ErrResponseBodyTooLarge):
		return "ERR_RESPONSE_TOO_LARGE"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return "ENOTFOUND"
		case dnsErr.IsTimeout, dnsErr.IsTemporary:
			return "EAI_AGAIN"
		default:
			return "EAI_FAIL"
		}
	}

	if isTimeout(err) {
		return "ECONNABORTED"
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if code, ok := errnoCodes[errno]; ok {
			return code
		}
		return "E" + strings.ToUpper(strings.ReplaceAll(errno.Error(), " ", "_"))
	}

	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	var recordHeader tls.RecordHeaderError
	switch {
	case errors.As(err, &unknownAuthority):
		return "UNABLE_TO_VERIFY_LEAF_SIGNATURE"
	case errors.As(err, &hostname):
		return "ERR_TLS_CERT_ALTNAME_INVALID"
	case errors.As(err, &invalid):
		if invalid.Reason == x509.Expired {
			return "CERT_HAS_EXPIRED"
		}
		return "ERR_TLS_CERT_INVALID"
	case errors.As(err, &recordHeader):
		return "EPROTO"
	}

	return ""
}

// diagnose collects the low-level fields of a transport error.
func diagnose(err error) *models.DebugInfo {
	debug := &models.DebugInfo{}
	if err == nil {
		return debug
	}

	if code := errorCode(err); code != "" {
		debug.Code = &code
	}

	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		debug.Syscall = &sysErr.Syscall
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		n := int(errno)
		debug.Errno = &n
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		getaddrinfo := "getaddrinfo"
		debug.Syscall = &getaddrinfo
		if dnsErr.Name != "" {
			debug.Address = &dnsErr.Name
		}
		return debug
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Addr != nil {
		host, port, splitErr := net.SplitHostPort(opErr.Addr.String())
		if splitErr != nil {
			host = opErr.Addr.String()
		}
		debug.Address = &host
		if p, convErr := strconv.Atoi(port); convErr == nil {
			debug.Port = &p
		}
	}

	return debug
}
