package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuki-yano/vde-monitor/internal/protocol"
)

// Client talks to the external capture/command API. Every response is read
// as an envelope `{ <payload>, error?, errorCause? }`; non-success statuses
// are translated into *protocol.APIError.
type Client struct {
	baseURL    string
	token      func() string
	httpClient *http.Client
	logger     *slog.Logger
}

type Options struct {
	BaseURL    string
	Token      func() string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	token := opts.Token
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

type envelope struct {
	Error      *protocol.ErrorPayload `json:"error"`
	ErrorCause string                 `json:"errorCause"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return protocol.InternalError("encode request: " + err.Error())
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return protocol.InternalError("build request: " + err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return protocol.InternalError(err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.InternalError("read response: " + err.Error())
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code, message := "", ""
		if env.Error != nil {
			code, message = env.Error.Code, env.Error.Message
		}
		return protocol.NewHTTPError(resp.StatusCode, code, message, env.ErrorCause)
	}
	if env.Error != nil {
		return &protocol.APIError{Code: env.Error.Code, Message: env.Error.Message, Status: resp.StatusCode, Cause: env.ErrorCause}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return protocol.InternalError("decode response: " + err.Error())
		}
	}
	return nil
}

func panePath(paneID, suffix string) string {
	return "/sessions/" + protocol.EncodePaneID(paneID) + suffix
}

// SessionsPayload is the registry snapshot response.
type SessionsPayload struct {
	Sessions     []protocol.SessionSummary `json:"sessions"`
	ClientConfig map[string]any            `json:"clientConfig,omitempty"`
}

func (c *Client) FetchSessions(ctx context.Context) (SessionsPayload, error) {
	var out SessionsPayload
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &out); err != nil {
		return SessionsPayload{}, err
	}
	return out, nil
}

func (c *Client) RequestScreen(ctx context.Context, req protocol.ScreenRequest) (protocol.ScreenResponse, error) {
	var out struct {
		Screen protocol.ScreenResponse `json:"screen"`
	}
	if err := c.do(ctx, http.MethodPost, panePath(req.PaneID, "/screen"), req, &out); err != nil {
		return protocol.ScreenResponse{}, err
	}
	return out.Screen, nil
}

func (c *Client) SendText(ctx context.Context, paneID, text string, enter bool, requestID string) error {
	body := map[string]any{"text": text, "enter": enter}
	if requestID != "" {
		body["requestId"] = requestID
	}
	return c.do(ctx, http.MethodPost, panePath(paneID, "/send/text"), body, nil)
}

func (c *Client) SendKeys(ctx context.Context, paneID string, keys []string) error {
	return c.do(ctx, http.MethodPost, panePath(paneID, "/send/keys"), map[string]any{"keys": keys}, nil)
}

// RawItem is one element of a raw send batch.
type RawItem struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (c *Client) SendRaw(ctx context.Context, paneID string, items []RawItem, unsafe bool) error {
	return c.do(ctx, http.MethodPost, panePath(paneID, "/send/raw"), map[string]any{"items": items, "unsafe": unsafe}, nil)
}

func (c *Client) Touch(ctx context.Context, paneID string) error {
	return c.do(ctx, http.MethodPost, panePath(paneID, "/touch"), nil, nil)
}

func (c *Client) Focus(ctx context.Context, paneID string) error {
	return c.do(ctx, http.MethodPost, panePath(paneID, "/focus"), nil, nil)
}

func (c *Client) KillPane(ctx context.Context, paneID string) error {
	return c.do(ctx, http.MethodPost, panePath(paneID, "/kill/pane"), nil, nil)
}

func (c *Client) KillWindow(ctx context.Context, paneID string) error {
	return c.do(ctx, http.MethodPost, panePath(paneID, "/kill/window"), nil, nil)
}

// SetTitle updates the custom title; nil clears it.
func (c *Client) SetTitle(ctx context.Context, paneID string, title *string) error {
	return c.do(ctx, http.MethodPut, panePath(paneID, "/title"), map[string]any{"title": title}, nil)
}

func (c *Client) Launch(ctx context.Context, req protocol.LaunchRequest) error {
	if err := req.Validate(); err != nil {
		return &protocol.APIError{Code: protocol.CodeInvalidPayload, Message: err.Error()}
	}
	return c.do(ctx, http.MethodPost, "/sessions/launch", req, nil)
}
