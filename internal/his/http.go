package his

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// HTTPClient talks to a real HIS over its REST API. Requests are rate
// limited and routed through a circuit breaker so a failing HIS cannot
// stall order submission indefinitely.
type HTTPClient struct {
	logger     *logrus.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPClient creates an HIS client from configuration.
func NewHTTPClient(cfg domain.HISConfig, logger *logrus.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 10
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "HIS",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("HIS circuit breaker state change")
		},
	})

	return &HTTPClient{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		breaker:    breaker,
	}
}

// GetPatient fetches a patient record. A 404 maps to (nil, nil).
func (c *HTTPClient) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	var patient domain.Patient
	found, err := c.getJSON(ctx, fmt.Sprintf("/api/v1/patients/%s", patientID), &patient)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &patient, nil
}

// CreateOrder submits a new order to the HIS.
func (c *HTTPClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	var resp OrderResponse
	if err := c.postJSON(ctx, "/api/v1/orders", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DiscontinueOrder stops an order in the HIS.
func (c *HTTPClient) DiscontinueOrder(ctx context.Context, orderID, reason string) (*OrderResponse, error) {
	body := map[string]string{"reason": reason}
	var resp OrderResponse
	if err := c.postJSON(ctx, fmt.Sprintf("/api/v1/orders/%s/discontinue", orderID), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOrder fetches an order. A 404 maps to (nil, nil).
func (c *HTTPClient) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	found, err := c.getJSON(ctx, fmt.Sprintf("/api/v1/orders/%s", orderID), &order)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &order, nil
}

// GetPatientActiveOrders fetches the patient's active orders.
func (c *HTTPClient) GetPatientActiveOrders(ctx context.Context, patientID string) ([]domain.Order, error) {
	var orders []domain.Order
	found, err := c.getJSON(ctx, fmt.Sprintf("/api/v1/patients/%s/orders?status=active", patientID), &orders)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return orders, nil
}

// getJSON performs a GET and decodes the body into out. Returns found=false
// on a 404 without error.
func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) (bool, error) {
	body, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if status != http.StatusOK {
		return false, domain.NewPharmacyError(domain.ErrCodeUpstreamFailure,
			fmt.Sprintf("HIS returned status %d", status), path)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("decoding HIS response: %w", err)
	}
	return true, nil
}

// postJSON performs a POST with a JSON body and decodes the reply into out.
func (c *HTTPClient) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding HIS request: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return domain.NewPharmacyError(domain.ErrCodeUpstreamFailure,
			fmt.Sprintf("HIS returned status %d", status), path)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding HIS response: %w", err)
	}
	return nil
}

type httpResult struct {
	body   []byte
	status int
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		// 5xx trips the breaker; 4xx is a normal reply for the caller.
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("HIS server error: status %d", resp.StatusCode)
		}

		return httpResult{body: body, status: resp.StatusCode}, nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, 0, domain.NewPharmacyError(domain.ErrCodeUpstreamFailure,
				"HIS unavailable (circuit breaker open)", path)
		}
		return nil, 0, fmt.Errorf("HIS request failed: %w", err)
	}

	res := result.(httpResult)
	return res.body, res.status, nil
}
