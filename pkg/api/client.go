package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultChatName is the name sent with every creation request. The backend
// keys chats by id, the name is display-only.
const DefaultChatName = "New Chat"

// Client talks to the KupleTalk backend REST API.
type Client struct {
	baseURL string
	hc      *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api client: empty base URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "api client: parse base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("api client: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

type chatListResponse struct {
	Chats []Chat `json:"chats"`
}

// ListChats returns all sessions, newest first.
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var out chatListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chats/", nil, &out); err != nil {
		return nil, errors.Wrap(err, "list chats")
	}
	chats := out.Chats
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

// CreateChat asks the backend to provision a new session. The returned chat
// carries the backend-assigned id.
func (c *Client) CreateChat(ctx context.Context, name string) (Chat, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultChatName
	}
	body := map[string]string{"name": name}
	var out Chat
	if err := c.doJSON(ctx, http.MethodPost, "/chats/", body, &out); err != nil {
		return Chat{}, errors.Wrap(err, "create chat")
	}
	if out.ID == "" {
		return Chat{}, errors.New("create chat: backend returned no id")
	}
	return out, nil
}

// DeleteChat removes a session and its history on the backend.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return errors.New("delete chat: empty chat id")
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/chats/"+url.PathEscape(chatID)+"/", nil, nil); err != nil {
		return errors.Wrap(err, "delete chat")
	}
	return nil
}

// FetchMessages returns the full ordered history for one chat.
func (c *Client) FetchMessages(ctx context.Context, chatID string) ([]Message, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, errors.New("fetch messages: empty chat id")
	}
	var out []Message
	if err := c.doJSON(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID)+"/messages/", nil, &out); err != nil {
		return nil, errors.Wrap(err, "fetch messages")
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().
			Str("component", "api").
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("backend request failed")
		return errors.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
