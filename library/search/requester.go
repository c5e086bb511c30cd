package search

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	appLog "github.com/vihaankava/nonprofit/library/log"
)

const (
	DefaultTimeout       = 5 * time.Second
	DefaultRetryAttempts = 1
	DefaultRetryBackoff  = time.Second
	DefaultMaxResults    = 10

	// logBodyLimit caps the number of response bytes logged for debugging.
	logBodyLimit = 4096
	// errorBodyLimit caps the response excerpt kept inside returned errors.
	errorBodyLimit = 256
	maxBodyBytes   = 8 << 20
)

// RequesterOption customises a Requester.
type RequesterOption func(*Requester)

// WithHTTPClient overrides the HTTP client, primarily for testing.
func WithHTTPClient(client *http.Client) RequesterOption {
	return func(r *Requester) {
		if client != nil {
			r.client = client
		}
	}
}

// WithTimeout sets the per-attempt network timeout.
func WithTimeout(timeout time.Duration) RequesterOption {
	return func(r *Requester) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithRetry sets how many retries follow the first attempt and the initial backoff delay,
// which doubles on each further retry.
func WithRetry(attempts int, initialBackoff time.Duration) RequesterOption {
	return func(r *Requester) {
		if attempts >= 0 {
			r.retryAttempts = attempts
		}
		if initialBackoff > 0 {
			r.retryBackoff = initialBackoff
		}
	}
}

// WithRateLimit throttles outgoing requests to rps requests per second.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) RequesterOption {
	return func(r *Requester) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRequesterLogger overrides the fallback logger.
func WithRequesterLogger(logger logSDK.Logger) RequesterOption {
	return func(r *Requester) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Requester performs provider HTTP calls with a timeout, typed error classification
// and a bounded exponential-backoff retry for transient failures.
type Requester struct {
	name          string
	client        *http.Client
	timeout       time.Duration
	retryAttempts int
	retryBackoff  time.Duration
	limiter       *rate.Limiter
	logger        logSDK.Logger
}

// NewRequester constructs a Requester for the provider called name.
func NewRequester(name string, opts ...RequesterOption) (*Requester, error) {
	r := &Requester{
		name:          name,
		timeout:       DefaultTimeout,
		retryAttempts: DefaultRetryAttempts,
		retryBackoff:  DefaultRetryBackoff,
		logger:        appLog.Logger.Named(name),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.client == nil {
		client, err := gutils.NewHTTPClient(gutils.WithHTTPClientTimeout(r.timeout))
		if err != nil {
			return nil, errors.Wrap(err, "new http client")
		}
		r.client = client
	}

	return r, nil
}

// Timeout returns the per-attempt timeout.
func (r *Requester) Timeout() time.Duration {
	return r.timeout
}

// Do executes the request produced by build and returns the response body.
// build is invoked once per attempt so that request bodies can be replayed.
// Errors are always *Error values.
func (r *Requester) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	logger := r.loggerFor(ctx)
	return r.Run(ctx, func(ctx context.Context) ([]byte, error) {
		return r.roundTrip(ctx, logger, build)
	})
}

// Run calls attempt with the retry, throttling and per-attempt timeout policy of Do.
// It serves providers that talk to their API through a client library.
// attempt should return *Error values; anything else is classified as a transport failure.
func (r *Requester) Run(ctx context.Context, attempt func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	logger := r.loggerFor(ctx)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.retryBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	policy.Reset()

	var (
		body     []byte
		attempts int
	)
	operation := func() error {
		attempts++
		out, err := r.once(ctx, attempt)
		if err == nil {
			body = out
			return nil
		}

		if err.Retryable() {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("search attempt failed, retrying",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", r.retryAttempts+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.retryAttempts)), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		var se *Error
		if !errors.As(err, &se) {
			se = ClassifyTransportError(err, r.timeout)
		}
		if attempts > 1 {
			logger.Error("search failed after retries",
				zap.Int("attempts", attempts),
				zap.String("error_type", string(se.Kind)),
			)
		}
		return nil, se
	}

	return body, nil
}

// once runs a single throttled attempt under the per-attempt timeout.
func (r *Requester) once(ctx context.Context, attempt func(ctx context.Context) ([]byte, error)) ([]byte, *Error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, ClassifyTransportError(err, r.timeout)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := attempt(attemptCtx)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, ClassifyTransportError(err, r.timeout)
	}
	return body, nil
}

func (r *Requester) roundTrip(ctx context.Context, logger logSDK.Logger,
	build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	req, err := build(ctx)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, NewError(KindConfiguration, "build search request", err)
	}

	logger.Debug("outgoing http request",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
	)

	startAt := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, ClassifyTransportError(err, r.timeout)
	}
	defer resp.Body.Close() // nolint: errcheck

	body, err := readBody(resp)
	if err != nil {
		return nil, ClassifyTransportError(err, r.timeout)
	}

	truncatedBody, truncated := truncateForLog(body, logBodyLimit)
	logger.Debug("incoming http response",
		zap.Int("status", resp.StatusCode),
		zap.String("body", truncatedBody),
		zap.Bool("body_truncated", truncated),
		zap.Duration("cost", time.Since(startAt)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		excerpt, _ := truncateForLog(body, errorBodyLimit)
		return nil, ClassifyStatus(resp.StatusCode, excerpt)
	}

	return body, nil
}

func (r *Requester) loggerFor(ctx context.Context) logSDK.Logger {
	// gmw falls back to its own logger outside a request, so only take it from gin contexts
	if _, ok := gmw.GetGinCtxFromStdCtx(ctx); ok {
		return gmw.GetLogger(ctx).Named(r.name)
	}
	return r.logger
}

// readBody reads the response, decoding gzip when the transport left it compressed.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if !resp.Uncompressed && strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "new gzip reader")
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	return body, nil
}

// truncateForLog limits the payload logged for debugging and reports whether truncation occurred.
func truncateForLog(body []byte, limit int) (string, bool) {
	if len(body) <= limit {
		return string(body), false
	}
	return string(body[:limit]), true
}
