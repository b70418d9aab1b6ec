package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"api-relay/internal/config"
	"api-relay/internal/models"
	"api-relay/internal/validator"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Dispatcher performs an outbound request. *Client is the production
// implementation.
type Dispatcher interface {
	Do(ctx context.Context, out *OutboundRequest) (*Response, error)
	Timeout() time.Duration
}

// Relay turns TestRequests into TestResults. It keeps no per-call state and
// is safe for concurrent use.
type Relay struct {
	client       Dispatcher
	strictScheme bool
	log          *zap.SugaredLogger
}

func New(cfg *config.Config, log *zap.SugaredLogger) *Relay {
	return NewWithDispatcher(NewClient(cfg, log), cfg.StrictURLScheme, log)
}

func NewWithDispatcher(client Dispatcher, strictScheme bool, log *zap.SugaredLogger) *Relay {
	return &Relay{
		client:       client,
		strictScheme: strictScheme,
		log:          log,
	}
}

// Test validates, dispatches and shapes one test request. The returned int is
// the relay's own HTTP status. Test never panics; every outcome, including
// invalid input, is reported through the envelope.
func (r *Relay) Test(ctx context.Context, req *models.TestRequest) (status int, result models.TestResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorw("relay panic", "panic", rec)
			failure := &TransportError{Err: fmt.Errorf("%v", rec)}
			status, result = failure.RelayStatus(), failure.Result(0)
		}
	}()

	target, err := validator.ValidateTestRequest(req, r.strictScheme)
	if err != nil {
		return validationResult(err)
	}

	out := NewOutboundRequest(target, req)

	// The caller going away does not cancel a dispatch already in flight.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	resp, err := r.client.Do(ctx, out)
	elapsed := time.Since(start)

	if failure := classify(resp, err, r.client.Timeout()); failure != nil {
		var transportErr *TransportError
		if errors.As(failure, &transportErr) {
			r.log.Warnw("request failed", "method", out.Method, "url", out.URL, "error", transportErr.Err, "elapsed", elapsed)
		} else {
			r.log.Debugw("upstream error", "method", out.Method, "url", out.URL, "status", resp.StatusCode, "elapsed", elapsed)
		}
		return failure.RelayStatus(), failure.Result(elapsed)
	}

	r.log.Debugw("request completed", "method", out.Method, "url", out.URL, "status", resp.StatusCode, "elapsed", elapsed)

	upstreamStatus := resp.StatusCode
	return http.StatusOK, models.TestResult{
		Status:          &upstreamStatus,
		ResponseTimeMs:  roundMs(elapsed),
		ResponseHeaders: shapeHeaders(resp.Header),
		Data:            shapeData(resp.Body),
	}
}

func validationResult(err error) (int, models.TestResult) {
	msg := genericFailureMessage
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		msg = verr.Message
	}
	return http.StatusBadRequest, models.TestResult{Error: &msg}
}

// roundMs converts a duration to milliseconds with two decimals.
func roundMs(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

// shapeHeaders lower-cases header names. Set-Cookie stays a list; other
// repeated headers are joined with ", ".
func shapeHeaders(header http.Header) map[string]any {
	shaped := make(map[string]any, len(header))
	for name, values := range header {
		key := strings.ToLower(name)
		if key == "set-cookie" {
			shaped[key] = append([]string(nil), values...)
			continue
		}
		shaped[key] = strings.Join(values, ", ")
	}
	return shaped
}

// shapeData embeds JSON bodies as JSON and anything else as a string.
func shapeData(body []byte) any {
	if len(body) > 0 && gjson.ValidBytes(body) {
		return json.RawMessage(append([]byte(nil), body...))
	}
	return string(body)
}
