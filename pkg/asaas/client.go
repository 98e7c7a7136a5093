package asaas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/caiomonteiro/imovia-backend/pkg/errors"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	dateLayout = "2006-01-02"

	responseBodyReadLimit int64 = 1 << 20
)

var (
	errAPIKeyRequired  = errors.New("asaas api key is required")
	errInvalidAsaasEnv = fmt.Errorf("asaas environment must be %q or %q", sandboxEnv, productionEnv)
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://sandbox.asaas.com/api/v3",
	productionEnv: "https://api.asaas.com/v3",
}

// Client wraps the Asaas billing REST API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	environment string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the environment-derived base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Asaas client and validates the credentials.
func NewClient(apiKey, environment string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}
	env, err := normalizeEnv(environment)
	if err != nil {
		return nil, err
	}

	client := &Client{
		apiKey:      trimmedKey,
		environment: env,
		baseURL:     baseURLs[env],
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

func normalizeEnv(environment string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(environment))
	if env == "" {
		return sandboxEnv, nil
	}
	if env != sandboxEnv && env != productionEnv {
		return "", errInvalidAsaasEnv
	}
	return env, nil
}

// Environment reports the normalized Asaas environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Payment is the gateway's payment resource, limited to the fields the
// reconciliation pipeline consumes.
type Payment struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	Value             float64 `json:"value"`
	NetValue          float64 `json:"netValue"`
	Status            string  `json:"status"`
	BillingType       string  `json:"billingType"`
	DueDate           string  `json:"dueDate"`
	PaymentDate       *string `json:"paymentDate"`
	ClientPaymentDate *string `json:"clientPaymentDate"`
	InvoiceURL        string  `json:"invoiceUrl"`
	Description       string  `json:"description"`
	ExternalReference string  `json:"externalReference"`
}

// DueDateTime parses the gateway's date-only due date.
func (p Payment) DueDateTime() (time.Time, bool) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(p.DueDate))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// PaidAtTime returns the payment date, preferring the settlement date over
// the client-side payment date.
func (p Payment) PaidAtTime() (time.Time, bool) {
	for _, candidate := range []*string{p.PaymentDate, p.ClientPaymentDate} {
		if candidate == nil {
			continue
		}
		if t, err := time.Parse(dateLayout, strings.TrimSpace(*candidate)); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type paymentListResponse struct {
	Object     string    `json:"object"`
	HasMore    bool      `json:"hasMore"`
	TotalCount int       `json:"totalCount"`
	Data       []Payment `json:"data"`
}

// ListPayments fetches up to limit most-recent payments for a gateway customer.
func (c *Client) ListPayments(ctx context.Context, customerID string, limit int) ([]Payment, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if limit <= 0 {
		limit = 20
	}

	query := url.Values{}
	query.Set("customer", customerID)
	query.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/payments?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payments request")
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call asaas payments")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read asaas response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "asaas payments request failed").
			WithDetails(map[string]any{"status": resp.StatusCode, "body": truncate(string(body), 512)})
	}

	var list paymentListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode asaas response")
	}
	return list.Data, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
