package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"lunara/internal/models"
)

const csrfHeader = "X-CSRF-Token"

// Item is a schedule item as returned by the API
type Item struct {
	ID     int64  `json:"id"`
	KidID  int64  `json:"kidId"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// Done reports whether the item is completed
func (i Item) Done() bool {
	return i.Status == models.StatusCompleted
}

// DayView is a kid's schedule for one day
type DayView struct {
	KidID     int64  `json:"kidId"`
	Date      string `json:"date"`
	Holiday   bool   `json:"holiday"`
	Items     []Item `json:"items"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// BonusResult is the outcome of a daily bonus claim
type BonusResult struct {
	KidID      int64  `json:"kidId"`
	Date       string `json:"date"`
	Awarded    bool   `json:"awarded"`
	Amount     int    `json:"amount"`
	TotalStars int    `json:"totalStars"`
}

// APIError is a failed API call
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// APIClient talks to the JSON API as a browser would, keeping session
// cookies in a jar
type APIClient struct {
	baseURL   string
	http      *http.Client
	csrfToken string
}

// NewAPIClient creates a client for baseURL. A nil httpClient gets a fresh
// cookie jar and a 10 second timeout.
func NewAPIClient(baseURL string, httpClient *http.Client) (*APIClient, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar, Timeout: 10 * time.Second}
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

// KidLogin signs in as a kid
func (c *APIClient) KidLogin(ctx context.Context, kidID int64, pin string, remember bool) error {
	body := map[string]any{"kidId": kidID, "pin": pin, "remember": remember}
	return c.do(ctx, http.MethodPost, "/api/kid/login", body, nil)
}

// Login signs in as a parent and keeps the CSRF token for later mutations
func (c *APIClient) Login(ctx context.Context, email, password string) error {
	var session struct {
		CSRFToken string `json:"csrfToken"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &session); err != nil {
		return err
	}
	c.csrfToken = session.CSRFToken
	return nil
}

// Day fetches a kid's items for date. An empty date means today.
func (c *APIClient) Day(ctx context.Context, kidID int64, date string) (*DayView, error) {
	path := fmt.Sprintf("/api/kids/%d/items", kidID)
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var day DayView
	if err := c.do(ctx, http.MethodGet, path, nil, &day); err != nil {
		return nil, err
	}
	return &day, nil
}

// SetItemDone implements Persister
func (c *APIClient) SetItemDone(ctx context.Context, itemID int64, done bool) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/items/%d/done", itemID), map[string]bool{"done": done}, nil)
}

// ClaimDailyBonus implements BonusClaimer
func (c *APIClient) ClaimDailyBonus(ctx context.Context, kidID int64, date string) (*BonusResult, error) {
	var result BonusResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/kids/%d/bonus", kidID), map[string]string{"date": date}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrfToken != "" {
		req.Header.Set(csrfHeader, c.csrfToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
