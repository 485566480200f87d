package calc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// error codes returned by a remote calculator service
const (
	codeUnsupportedState = "unsupported_state"
	codeZeroEarnings     = "zero_earnings"
	codeNegative         = "negative_earnings"
)

type remoteRequest struct {
	Quarters [4]float64 `json:"quarters"`
	State    string     `json:"state"`
}

type remoteResponse struct {
	WBA   float64 `json:"wba"`
	Error string  `json:"error,omitempty"`
}

// Remote is a Calculator backed by an HTTP service.  Each call POSTs
//
//	{"quarters": [q1, q2, q3, q4], "state": "NY"}
//
// and expects {"wba": 123} or {"error": "unsupported_state"}.
type Remote struct {
	url    string
	client *http.Client
}

func NewRemote(url string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Remote{url: url, client: &http.Client{Timeout: timeout}}
}

func (r *Remote) WeeklyBenefit(ctx context.Context, q Earnings, state string) (float64, error) {
	if e := q.Validate(); e != nil {
		return 0, e
	}

	body, e := json.Marshal(remoteRequest{Quarters: q, State: state})
	if e != nil {
		return 0, e
	}

	req, e := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if e != nil {
		return 0, e
	}
	req.Header.Set("Content-Type", "application/json")

	resp, e := r.client.Do(req)
	if e != nil {
		return 0, fmt.Errorf("calculator request: %w", e)
	}
	defer func() { _ = resp.Body.Close() }()

	var out remoteResponse
	if e = json.NewDecoder(resp.Body).Decode(&out); e != nil {
		return 0, fmt.Errorf("calculator response (%s): %w", resp.Status, e)
	}

	switch out.Error {
	case "":
	case codeUnsupportedState:
		return 0, fmt.Errorf("%s: %w", state, ErrUnsupportedState)
	case codeZeroEarnings:
		return 0, ErrZeroEarnings
	case codeNegative:
		return 0, ErrNegativeEarnings
	default:
		return 0, fmt.Errorf("calculator: %s", out.Error)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("calculator: %s", resp.Status)
	}

	if out.WBA < 0 {
		return 0, fmt.Errorf("calculator returned negative benefit %v", out.WBA)
	}

	return out.WBA, nil
}
