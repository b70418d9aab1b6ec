package relay

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"api-relay/internal/models"
	"api-relay/internal/validator"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMs(t *testing.T) {
	assert.Equal(t, 0.0, roundMs(0))
	assert.Equal(t, 0.0, roundMs(-time.Second))
	assert.Equal(t, 1.23, roundMs(1234567*time.Nanosecond))
	assert.Equal(t, 1.24, roundMs(1235001*time.Nanosecond))
	assert.Equal(t, 30000.0, roundMs(30*time.Second))
}

func TestShapeData(t *testing.T) {
	assert.Equal(t, "", shapeData(nil))
	assert.Equal(t, "not json", shapeData([]byte("not json")))
	assert.Equal(t, "{broken", shapeData([]byte("{broken")))

	for _, body := range []string{`{"a":[1,2]}`, `[]`, `42`, `"quoted"`, `true`} {
		data, err := json.Marshal(shapeData([]byte(body)))
		require.NoError(t, err)
		assert.JSONEq(t, body, string(data))
	}
}

func TestShapeHeaders(t *testing.T) {
	shaped := shapeHeaders(http.Header{
		"Content-Type": {"application/json"},
		"Set-Cookie":   {"a=1"},
		"Vary":         {"Origin", "Accept"},
	})

	assert.Equal(t, map[string]any{
		"content-type": "application/json",
		"set-cookie":   []string{"a=1"},
		"vary":         "Origin, Accept",
	}, shaped)
	assert.Empty(t, shapeHeaders(nil))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(&Response{StatusCode: 200}, nil, time.Second))
	assert.Nil(t, classify(&Response{StatusCode: 204}, nil, time.Second))

	var upstream *UpstreamError
	require.True(t, errors.As(classify(&Response{StatusCode: 302}, nil, time.Second), &upstream))
	assert.Equal(t, 302, upstream.RelayStatus())

	require.True(t, errors.As(classify(&Response{StatusCode: 500}, nil, time.Second), &upstream))
	assert.Equal(t, 500, upstream.RelayStatus())

	var transport *TransportError
	require.True(t, errors.As(classify(nil, errors.New("boom"), time.Second), &transport))
	assert.Equal(t, http.StatusBadGateway, transport.RelayStatus())

	require.True(t, errors.As(classify(nil, nil, time.Second), &transport))
	assert.Equal(t, genericFailureMessage, transport.Error())
}

func TestUpstreamError_Result(t *testing.T) {
	failure := &UpstreamError{Response: &Response{
		StatusCode: http.StatusTeapot,
		Header:     http.Header{"X-Reason": {"tea"}},
		Body:       []byte(`short and stout`),
	}}

	result := failure.Result(1500 * time.Microsecond)

	assert.Equal(t, http.StatusTeapot, failure.RelayStatus())
	assert.Equal(t, http.StatusTeapot, *result.Status)
	assert.Equal(t, 1.5, result.ResponseTimeMs)
	assert.Equal(t, "Request failed with status code 418", *result.Error)
	assert.Equal(t, "tea", result.ResponseHeaders["x-reason"])
	assert.Equal(t, "short and stout", result.Data)
	assert.Nil(t, result.Debug)

	odd := &UpstreamError{Response: &Response{StatusCode: 999}}
	assert.Equal(t, http.StatusBadGateway, odd.RelayStatus())

	for _, code := range []int{http.StatusSwitchingProtocols, http.StatusNotModified} {
		bodiless := &UpstreamError{Response: &Response{StatusCode: code}}
		assert.Equal(t, http.StatusBadGateway, bodiless.RelayStatus(), code)
		assert.Equal(t, code, *bodiless.Result(0).Status, code)
	}

	empty := &UpstreamError{}
	assert.Equal(t, http.StatusBadGateway, empty.RelayStatus())
	assert.Equal(t, genericFailureMessage, *empty.Result(0).Error)
}

func TestTransportError_Message(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		timeout time.Duration
		want    string
	}{
		{
			name: "url error is unwrapped",
			err:  &url.Error{Op: "Get", URL: "http://x", Err: errors.New("dial tcp: boom")},
			want: "dial tcp: boom",
		},
		{
			name:    "timeout",
			err:     &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded},
			timeout: 30 * time.Second,
			want:    "timeout of 30000ms exceeded",
		},
		{
			name: "nil error",
			err:  nil,
			want: genericFailureMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure := &TransportError{Err: tt.err, Timeout: tt.timeout}
			assert.Equal(t, tt.want, failure.Error())
		})
	}
}

func TestTransportError_CodeFallbackMessage(t *testing.T) {
	err := &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNRESET}}
	failure := &TransportError{Err: silent{err}}

	assert.Equal(t, "Request failed (ECONNRESET).", failure.Error())
}

// silent hides the message of the error it wraps.
type silent struct{ err error }

func (s silent) Error() string { return "" }
func (s silent) Unwrap() error { return s.err }

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"blocked", fmt.Errorf("dial: %w", validator.ErrAddressBlocked), "ERR_ADDRESS_BLOCKED"},
		{"redirects", &url.Error{Err: fmt.Errorf("%w (5)", ErrTooManyRedirects)}, "ERR_FR_TOO_MANY_REDIRECTS"},
		{"too large", resty.ErrResponseBodyTooLarge, "ERR_RESPONSE_TOO_LARGE"},
		{"not found", &net.OpError{Err: &net.DNSError{Name: "x.invalid", IsNotFound: true}}, "ENOTFOUND"},
		{"dns temporary", &net.DNSError{Name: "x", IsTemporary: true}, "EAI_AGAIN"},
		{"dns other", &net.DNSError{Name: "x"}, "EAI_FAIL"},
		{"deadline", context.DeadlineExceeded, "ECONNABORTED"},
		{"refused", &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}, "ECONNREFUSED"},
		{"unknown authority", &url.Error{Err: x509.UnknownAuthorityError{}}, "UNABLE_TO_VERIFY_LEAF_SIGNATURE"},
		{"hostname", x509.HostnameError{Host: "x"}, "ERR_TLS_CERT_ALTNAME_INVALID"},
		{"expired", x509.CertificateInvalidError{Reason: x509.Expired}, "CERT_HAS_EXPIRED"},
		{"invalid cert", x509.CertificateInvalidError{Reason: x509.NotAuthorizedToSign}, "ERR_TLS_CERT_INVALID"},
		{"opaque", errors.New("something"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCode(tt.err))
		})
	}
}

func TestDiagnose(t *testing.T) {
	t.Run("connect failure", func(t *testing.T) {
		err := &url.Error{Op: "Post", URL: "http://10.0.0.1:8080", Err: &net.OpError{
			Op:   "dial",
			Net:  "tcp",
			Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 8080},
			Err:  &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
		}}

		debug := diagnose(err)

		assert.Equal(t, "ECONNREFUSED", *debug.Code)
		assert.Equal(t, "connect", *debug.Syscall)
		assert.Equal(t, int(syscall.ECONNREFUSED), *debug.Errno)
		assert.Equal(t, "10.0.0.1", *debug.Address)
		assert.Equal(t, 8080, *debug.Port)
	})

	t.Run("dns failure", func(t *testing.T) {
		err := &url.Error{Op: "Get", URL: "http://nope.invalid", Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true},
		}}

		debug := diagnose(err)

		assert.Equal(t, "ENOTFOUND", *debug.Code)
		assert.Equal(t, "getaddrinfo", *debug.Syscall)
		assert.Equal(t, "nope.invalid", *debug.Address)
		assert.Nil(t, debug.Port)
		assert.Nil(t, debug.Errno)
	})

	t.Run("nothing known", func(t *testing.T) {
		debug := diagnose(errors.New("weird"))
		assert.Equal(t, &models.DebugInfo{}, debug)
	})
}
