package callable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storefront-labs/storefront-backend/pkg/config"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

// Client invokes named remote callables over JSON POST. The pricer,
// checkout validator, review translation and verification-code issuance
// all ride this transport.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

var errBaseURLRequired = errors.New("callable base url is required")

// NewClient validates the config and builds the callable transport.
func NewClient(cfg config.CallableConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing callable base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		logger:  logg,
	}, nil
}

type requestEnvelope struct {
	Data any `json:"data"`
}

type responseEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *callableError  `json:"error"`
}

type callableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Call invokes the named callable and decodes the result payload into out.
// Provider error statuses are mapped onto the repo error taxonomy so callers
// can branch on codes instead of transport details.
func (c *Client) Call(ctx context.Context, name string, payload any, out any) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callable name is required")
	}

	body, err := json.Marshal(requestEnvelope{Data: payload})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode callable payload")
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build callable request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, fmt.Sprintf("callable %s timed out", name))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("callable %s unreachable", name))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("read callable %s response", name))
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode callable %s response", name))
	}

	if envelope.Error != nil {
		return c.mapCallableError(name, envelope.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("callable %s returned status %d", name, resp.StatusCode))
	}

	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode callable %s result", name))
	}
	return nil
}

func (c *Client) mapCallableError(name string, ce *callableError) error {
	message := strings.TrimSpace(ce.Message)
	if message == "" {
		message = fmt.Sprintf("callable %s failed", name)
	}
	return pkgerrors.New(codeForStatus(ce.Status), message)
}

// codeForStatus translates provider status strings. Resource exhaustion is
// the one status the pricing retry loop keys on.
func codeForStatus(status string) pkgerrors.Code {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(status), "-", "_"))
	switch normalized {
	case "RESOURCE_EXHAUSTED":
		return pkgerrors.CodeRateLimit
	case "INVALID_ARGUMENT", "OUT_OF_RANGE":
		return pkgerrors.CodeValidation
	case "NOT_FOUND":
		return pkgerrors.CodeNotFound
	case "ALREADY_EXISTS", "ABORTED":
		return pkgerrors.CodeConflict
	case "FAILED_PRECONDITION":
		return pkgerrors.CodeStateConflict
	case "UNAUTHENTICATED":
		return pkgerrors.CodeUnauthorized
	case "PERMISSION_DENIED":
		return pkgerrors.CodeForbidden
	case "DEADLINE_EXCEEDED":
		return pkgerrors.CodeTimeout
	case "CANCELLED":
		return pkgerrors.CodeCancelled
	case "INTERNAL":
		return pkgerrors.CodeInternal
	default:
		return pkgerrors.CodeDependency
	}
}
