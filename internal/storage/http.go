package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"
)

// HTTPConfig configures a remote key-value endpoint.
type HTTPConfig struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
}

// HTTPStorage stores values on a remote service exposing GET and PUT {base}/kv/{key}.
// A 404 response means the key is absent.
type HTTPStorage struct {
	httpClient    *resty.Client
	retryAttempts uint
	retryDelay    time.Duration
}

// NewHTTPStorage creates an HTTPStorage. Callers must Close it.
func NewHTTPStorage(cfg HTTPConfig) *HTTPStorage {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	if cfg.Token != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.Token)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}
	return &HTTPStorage{
		httpClient:    client,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    retryDelay,
	}
}

// Close releases the underlying HTTP client.
func (s *HTTPStorage) Close() error {
	return s.httpClient.Close()
}

type statusError struct {
	method string
	key    string
	code   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s kv/%s: response error %d", e.method, e.key, e.code)
}

func isRetryableError(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.code >= http.StatusInternalServerError || statusErr.code == http.StatusTooManyRequests
	}
	// transport errors such as connection refused and timeouts
	return err != nil
}

func (s *HTTPStorage) do(ctx context.Context, fn func() error) error {
	return retry.Do(
		func() error {
			if err := fn(); err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.retryAttempts+1),
		retry.Delay(s.retryDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

func (s *HTTPStorage) Load(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, fmt.Errorf("load %q: %w", key, err)
	}

	var value string
	var found bool
	err := s.do(ctx, func() error {
		res, err := s.httpClient.R().
			SetContext(ctx).
			SetPathParam("key", key).
			Get("/kv/{key}")
		if err != nil {
			return fmt.Errorf("client.R().Get(kv/%s) > %w", key, err)
		}
		switch res.StatusCode() {
		case http.StatusOK:
			value, found = res.String(), true
			return nil
		case http.StatusNotFound:
			value, found = "", false
			return nil
		default:
			return &statusError{method: http.MethodGet, key: key, code: res.StatusCode()}
		}
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

func (s *HTTPStorage) Save(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}

	return s.do(ctx, func() error {
		res, err := s.httpClient.R().
			SetContext(ctx).
			SetPathParam("key", key).
			SetHeader("Content-Type", "application/json").
			SetBody(value).
			Put("/kv/{key}")
		if err != nil {
			return fmt.Errorf("client.R().Put(kv/%s) > %w", key, err)
		}
		if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusNoContent {
			return &statusError{method: http.MethodPut, key: key, code: res.StatusCode()}
		}
		return nil
	})
}

func (s *HTTPStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	return s.do(ctx, func() error {
		res, err := s.httpClient.R().
			SetContext(ctx).
			SetPathParam("key", key).
			Delete("/kv/{key}")
		if err != nil {
			return fmt.Errorf("client.R().Delete(kv/%s) > %w", key, err)
		}
		switch res.StatusCode() {
		case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
			return nil
		default:
			return &statusError{method: http.MethodDelete, key: key, code: res.StatusCode()}
		}
	})
}
