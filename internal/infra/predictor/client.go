package predictor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
)

const (
	defaultBaseURL  = "https://power-predictor-api-148902248893.us-east1.run.app"
	defaultTimeout  = 10 * time.Second
	predictPath     = "/predict"
	maxResponseBody = 1 << 20
)

var (
	errMissingPrediction = errors.New("response is missing predicted_power_consumption_zone2")
	errMalformedFailure  = errors.New("failure response is not a JSON object")
)

// Client calls the remote power-consumption model.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client. A non-positive timeout falls back to the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(url, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict posts payload to /predict and returns the zone 2 forecast.
// Failure statuses with a JSON body are reported as *prediction.RemoteError;
// any other failure body is a transport error.
func (c *Client) Predict(ctx context.Context, payload prediction.Payload) (float64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("predict request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, fmt.Errorf("read predict response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, err := parseDetail(data)
		if err != nil {
			// an HTML error page from a proxy never reached the model
			return 0, fmt.Errorf("predictor status %d: %w", resp.StatusCode, err)
		}
		return 0, &prediction.RemoteError{
			StatusCode: resp.StatusCode,
			Detail:     detail,
		}
	}

	var parsed predictResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("decode predict response: %w", err)
	}
	if parsed.Prediction == nil {
		return 0, errMissingPrediction
	}
	return *parsed.Prediction, nil
}

type predictResponse struct {
	Prediction *float64 `json:"predicted_power_consumption_zone2"`
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// parseDetail extracts a message from a failure body. FastAPI sends a plain string for
// HTTPException and a list of {loc,msg,type} objects for request validation failures.
// A body that is not a JSON object is an error; an object without a usable detail is "".
func parseDetail(data []byte) (string, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil || body == nil {
		return "", errMalformedFailure
	}
	raw, ok := body["detail"]
	if !ok || len(raw) == 0 {
		return "", nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text), nil
	}

	var issues []validationIssue
	if err := json.Unmarshal(raw, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if msg := strings.TrimSpace(issue.Msg); msg != "" {
				msgs = append(msgs, msg)
			}
		}
		return strings.Join(msgs, "; "), nil
	}
	return "", nil
}

var _ prediction.PredictClient = (*Client)(nil)
