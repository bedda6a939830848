package mqttbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// tokenSkew renews the access token this long before it expires.
const tokenSkew = 30 * time.Second

// ErrRejected means the intake API answered with a non-2xx status.
var ErrRejected = errors.New("intake rejected qr payload")

// Forwarder posts QR payloads to the intake API with a cached access token.
type Forwarder struct {
	baseURL    string
	username   string
	password   string
	companyID  int64
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewForwarder constructs a Forwarder from the listener config.
func NewForwarder(cfg Config, httpClient *http.Client) *Forwarder {
	if httpClient == nil {
		timeout := cfg.RequestLimit
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Forwarder{
		baseURL:    strings.TrimRight(cfg.APIBase, "/"),
		username:   cfg.APIUsername,
		password:   cfg.APIPassword,
		companyID:  cfg.CompanyID,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// IntakeResult is the subset of the intake response the listener logs.
type IntakeResult struct {
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	Created    bool   `json:"created"`
	Received   int64  `json:"received"`
	Available  int64  `json:"available_quantity"`
	StockState string `json:"status"`
}

// Forward sends one scanned payload. An expired token is refreshed once.
func (f *Forwarder) Forward(ctx context.Context, qrText string) (IntakeResult, error) {
	token, err := f.accessToken(ctx)
	if err != nil {
		return IntakeResult{}, err
	}
	res, status, err := f.post(ctx, token, qrText)
	if status == http.StatusUnauthorized {
		f.resetToken()
		if token, err = f.accessToken(ctx); err != nil {
			return IntakeResult{}, err
		}
		res, _, err = f.post(ctx, token, qrText)
	}
	return res, err
}

func (f *Forwarder) post(ctx context.Context, token, qrText string) (IntakeResult, int, error) {
	body, err := json.Marshal(map[string]any{"qr_text": qrText, "company_id": f.companyID})
	if err != nil {
		return IntakeResult{}, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/intake/qr", bytes.NewReader(body))
	if err != nil {
		return IntakeResult{}, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return IntakeResult{}, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return IntakeResult{}, resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	var res IntakeResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return IntakeResult{}, resp.StatusCode, fmt.Errorf("decode intake response: %w", err)
	}
	return res, resp.StatusCode, nil
}

func (f *Forwarder) accessToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token != "" && f.now().Before(f.expires.Add(-tokenSkew)) {
		return f.token, nil
	}
	token, expires, err := f.login(ctx)
	if err != nil {
		return "", err
	}
	f.token, f.expires = token, expires
	return token, nil
}

func (f *Forwarder) resetToken() {
	f.mu.Lock()
	f.token = ""
	f.mu.Unlock()
}

func (f *Forwarder) login(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{"username": f.username, "password": f.password})
	if err != nil {
		return "", time.Time{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("login: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	var pair struct {
		Access          string    `json:"access"`
		AccessExpiresAt time.Time `json:"access_expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return "", time.Time{}, fmt.Errorf("decode login response: %w", err)
	}
	if pair.Access == "" {
		return "", time.Time{}, errors.New("login response without access token")
	}
	return pair.Access, pair.AccessExpiresAt, nil
}
