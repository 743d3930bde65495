package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hackterm/internal/telemetry"

	"github.com/google/uuid"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the current bearer token. It returns "" when the
// session is unauthenticated.
type TokenSource func() string

// Client talks to the HackLidoLearn backend. All methods take a context;
// every request carries a bounded timeout, the bearer token when one exists,
// and an X-Request-ID for correlation with server logs.
type Client struct {
	baseURL        string
	hc             *http.Client
	token          TokenSource
	onUnauthorized func()
	logger         *telemetry.JSONLogger
	clientID       string
}

type Options struct {
	// BaseURL is the backend origin, e.g. "https://learn.example.com".
	// The "/api" prefix is appended by the client.
	BaseURL string
	Timeout time.Duration
	Token   TokenSource
	// OnUnauthorized fires once per 401 response, after the request
	// returns. The auth store uses it to clear the session centrally.
	OnUnauthorized func()
	Logger         *telemetry.JSONLogger
	// Transport overrides the default transport. Tests and demo mode
	// inject canned responders here.
	Transport http.RoundTripper
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := &http.Client{Timeout: timeout}
	if opts.Transport != nil {
		hc.Transport = opts.Transport
	}
	token := opts.Token
	if token == nil {
		token = func() string { return "" }
	}
	logger := opts.Logger
	if logger == nil {
		logger, _ = telemetry.NewJSONLogger("")
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/") + "/api",
		hc:             hc,
		token:          token,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logger,
		clientID:       uuid.NewString(),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", c.clientID+"-"+uuid.NewString())
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.logger.Error("api.transport_failed", map[string]any{"method": method, "path": path, "error": err.Error()})
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: decodeDetail(resp.Body)}
		c.logger.Warn("api.request_rejected", map[string]any{"method": method, "path": path, "status": resp.StatusCode})
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeDetail extracts the backend's error message. The service reports
// failures as {"detail": "..."}.
func decodeDetail(r io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}
	return payload.Detail
}

// --- auth ---

func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, reg Registration) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, reg, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}

// --- content ---

func (c *Client) Roadmaps(ctx context.Context) ([]Roadmap, error) {
	var out []Roadmap
	err := c.do(ctx, http.MethodGet, "/roadmaps", nil, nil, &out)
	return out, err
}

func (c *Client) Rooms(ctx context.Context, filter RoomFilter) ([]Room, error) {
	query := url.Values{}
	if filter.RoadmapID != "" {
		query.Set("roadmap_id", filter.RoadmapID)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	var out []Room
	err := c.do(ctx, http.MethodGet, "/rooms", query, nil, &out)
	return out, err
}

func (c *Client) Room(ctx context.Context, roomID string) (Room, error) {
	var out Room
	err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID), nil, nil, &out)
	return out, err
}

func (c *Client) CreateRoom(ctx context.Context, room Room) (Room, error) {
	var out Room
	err := c.do(ctx, http.MethodPost, "/rooms", nil, room, &out)
	return out, err
}

func (c *Client) UpdateRoom(ctx context.Context, roomID string, room Room) (Room, error) {
	var out Room
	err := c.do(ctx, http.MethodPut, "/rooms/"+url.PathEscape(roomID), nil, room, &out)
	return out, err
}

func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(roomID), nil, nil, nil)
}

// --- labs ---

func (c *Client) StartLab(ctx context.Context, roomID string) (LabSession, error) {
	var out LabSession
	err := c.do(ctx, http.MethodPost, "/labs/start", nil, map[string]string{"room_id": roomID}, &out)
	return out, err
}

func (c *Client) ExecuteCommand(ctx context.Context, sessionID, command string) (ExecResult, error) {
	var out ExecResult
	err := c.do(ctx, http.MethodPost, "/labs/"+url.PathEscape(sessionID)+"/execute", nil,
		map[string]string{"command": command}, &out)
	return out, err
}

func (c *Client) StopLab(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/labs/"+url.PathEscape(sessionID)+"/stop", nil, nil, nil)
}

// --- challenges ---

func (c *Client) Challenges(ctx context.Context, language string) ([]Challenge, error) {
	query := url.Values{}
	if language != "" {
		query.Set("language", language)
	}
	var out []Challenge
	err := c.do(ctx, http.MethodGet, "/challenges", query, nil, &out)
	return out, err
}

func (c *Client) ExecuteCode(ctx context.Context, language, code string) (CodeRunResult, error) {
	var out CodeRunResult
	err := c.do(ctx, http.MethodPost, "/challenges/execute", nil,
		map[string]string{"language": language, "code": code}, &out)
	return out, err
}

// --- flags & progress ---

func (c *Client) SubmitFlag(ctx context.Context, roomID, flag string) (FlagResult, error) {
	var out FlagResult
	err := c.do(ctx, http.MethodPost, "/flags/submit", nil,
		map[string]string{"room_id": roomID, "flag": flag}, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out []LeaderboardEntry
	err := c.do(ctx, http.MethodGet, "/leaderboard", query, nil, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, userID string) (Profile, error) {
	var out Profile
	err := c.do(ctx, http.MethodGet, "/profile/"+url.PathEscape(userID), nil, nil, &out)
	return out, err
}

func (c *Client) Progress(ctx context.Context) ([]Progress, error) {
	var out []Progress
	err := c.do(ctx, http.MethodGet, "/progress", nil, nil, &out)
	return out, err
}

// --- questions ---

func (c *Client) AskQuestion(ctx context.Context, roomID, question string) (Question, error) {
	query := url.Values{}
	query.Set("room_id", roomID)
	var out Question
	err := c.do(ctx, http.MethodPost, "/questions/ask", query,
		map[string]string{"question": question}, &out)
	return out, err
}

func (c *Client) Questions(ctx context.Context, roomID string) ([]Question, error) {
	var out []Question
	err := c.do(ctx, http.MethodGet, "/questions/"+url.PathEscape(roomID), nil, nil, &out)
	return out, err
}

// --- admin ---

func (c *Client) AdminUsers(ctx context.Context) ([]User, error) {
	var out []User
	err := c.do(ctx, http.MethodGet, "/admin/users", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateUserRole(ctx context.Context, userID, role string) error {
	return c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(userID)+"/role", nil,
		map[string]string{"role": role}, nil)
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(userID), nil, nil, nil)
}

func (c *Client) AdminStats(ctx context.Context) (AdminStats, error) {
	var out AdminStats
	err := c.do(ctx, http.MethodGet, "/admin/stats", nil, nil, &out)
	return out, err
}
