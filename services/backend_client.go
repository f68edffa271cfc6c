// services/backend_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spinwin/utils"
)

// Backend is the REST backend the widget talks to.
type Backend interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	VerifyToken(ctx context.Context, token string) (*VerifyTokenResponse, error)
	SendOTP(ctx context.Context, number string) error
	VerifyOTP(ctx context.Context, number, otp string) error
	ClaimReward(ctx context.Context, bearer string, payload RewardClaimPayload) error
	UserDashboard(ctx context.Context, bearer, uid string) (*DashboardResponse, error)
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Number   string `json:"number"`
}

type SignupResponse struct {
	UID     string `json:"uid,omitempty"`
	Message string `json:"message,omitempty"`
}

type LoginResponse struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Number       string `json:"number,omitempty"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type VerifyTokenResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	UID    string `json:"uid,omitempty"`
}

// RewardClaimPayload is the body of POST /api/rewards/. Redeemed is always
// false: redemption is decided by the server.
type RewardClaimPayload struct {
	ID             int        `json:"id"`
	UID            string     `json:"uid"`
	RestaurantID   string     `json:"restaurant_id"`
	RewardName     string     `json:"reward_name"`
	ThresholdID    int        `json:"threshold_id"`
	WhatsappNumber string     `json:"whatsapp_number"`
	UserName       string     `json:"user_name"`
	ClaimedAt      time.Time  `json:"claimed_at"`
	Redeemed       bool       `json:"redeemed"`
	RedeemedAt     *time.Time `json:"redeemed_at"`
	CouponCode     string     `json:"coupon_code"`
}

type RemoteReward struct {
	RestaurantID string     `json:"restaurant_id"`
	RewardName   string     `json:"reward_name"`
	CouponCode   string     `json:"coupon_code"`
	ClaimedAt    time.Time  `json:"claimed_at"`
	Redeemed     bool       `json:"redeemed"`
	RedeemedAt   *time.Time `json:"redeemed_at"`
}

type RemoteSpinProgress struct {
	CurrentSpinPoints int `json:"current_spin_points"`
	NumberOfSpins     int `json:"number_of_spins"`
}

// RemoteRestaurantDashboard is the pre-grouped dashboard shape some backend
// versions return.
type RemoteRestaurantDashboard struct {
	RestaurantID   string             `json:"restaurant_id"`
	RestaurantName string             `json:"restaurant_name"`
	SpinProgress   RemoteSpinProgress `json:"spin_progress"`
	ClaimedRewards []RemoteReward     `json:"claimed_rewards"`
}

type DashboardResponse struct {
	ClaimedRewards []RemoteReward              `json:"claimed_rewards"`
	Dashboard      []RemoteRestaurantDashboard `json:"dashboard,omitempty"`
}

// BackendClient calls the backend over HTTP.
type BackendClient struct {
	BaseURL string
	Client  *http.Client
}

func NewBackendClient(baseURL string, client *http.Client) *BackendClient {
	if client == nil {
		client = utils.NewHTTPClient(0)
	}
	return &BackendClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

func (c *BackendClient) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	var out SignupResponse
	if err := c.do(ctx, "signup", http.MethodPost, "/api/auth/signup", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginResponse
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) VerifyToken(ctx context.Context, token string) (*VerifyTokenResponse, error) {
	body := map[string]string{"token": token}
	var out VerifyTokenResponse
	if err := c.do(ctx, "verify-token", http.MethodPost, "/api/auth/verify-token", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BackendClient) SendOTP(ctx context.Context, number string) error {
	body := map[string]string{"number": number}
	return c.do(ctx, "otp-send", http.MethodPost, "/api/otp/send", "", body, nil)
}

func (c *BackendClient) VerifyOTP(ctx context.Context, number, otp string) error {
	body := map[string]string{"number": number, "otp": otp}
	return c.do(ctx, "otp-verify", http.MethodPost, "/api/otp/verify", "", body, nil)
}

func (c *BackendClient) ClaimReward(ctx context.Context, bearer string, payload RewardClaimPayload) error {
	return c.do(ctx, "reward-claim", http.MethodPost, "/api/rewards/", bearer, payload, nil)
}

func (c *BackendClient) UserDashboard(ctx context.Context, bearer, uid string) (*DashboardResponse, error) {
	q := url.Values{}
	q.Set("uid", uid)
	var out DashboardResponse
	if err := c.do(ctx, "dashboard", http.MethodGet, "/api/userdashboard/?"+q.Encode(), bearer, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one JSON request. Transport failures come back as *NetworkError,
// non-2xx responses as *APIError.
func (c *BackendClient) do(ctx context.Context, op, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		log.Printf("[BACKEND] ❌ %s %s failed: %v", method, path, err)
		return &NetworkError{Op: op, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	log.Printf("[BACKEND] %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Op: op, Status: resp.StatusCode, Detail: errorDetail(resp.StatusCode, errBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

// errorDetail extracts a readable message: a "detail" string or list, an
// "error" string, the raw text body, or a status-based fallback.
func errorDetail(status int, body []byte) string {
	fallback := fmt.Sprintf("API request failed with status %d", status)

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		text := strings.TrimSpace(string(body))
		if text == "" {
			return fallback
		}
		return text
	}

	switch detail := parsed["detail"].(type) {
	case string:
		if detail != "" {
			return detail
		}
	case []any:
		parts := make([]string, 0, len(detail))
		for _, item := range detail {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
				continue
			}
			encoded, _ := json.Marshal(item)
			parts = append(parts, string(encoded))
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	if msg, ok := parsed["error"].(string); ok && msg != "" {
		return msg
	}
	return fallback
}
