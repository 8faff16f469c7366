// Package identity provides a client for the identity provider: password
// sign-in, sign-out, and auth-state change subscriptions.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrAuth marks sign-in and sign-out failures. The session is otherwise
// unaffected; the caller surfaces the message and stays on its stage.
var ErrAuth = eris.New("identity: authentication failed")

// User is the signed-in principal.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client defines the identity provider operations. Subscribe fires its
// callback on every auth-state change with the current user, or nil after
// sign-out; the returned function unsubscribes.
type Client interface {
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error
	CurrentUser() *User
	Subscribe(fn func(*User)) func()
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client

	mu          sync.Mutex
	user        *User
	token       string
	subscribers map[int]func(*User)
	nextSubID   int
}

// NewClient creates an identity client for the given API key.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:      apiKey,
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 15 * time.Second},
		subscribers: make(map[int]func(*User)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken string `json:"idToken"`
	Email   string `json:"email"`
	LocalID string `json:"localId"`
}

type authError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn implements Client.
func (c *httpClient) SignIn(ctx context.Context, email, password string) (*User, error) {
	payload, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, eris.Wrap(err, "identity: marshal request")
	}

	url := c.baseURL + "/v1/accounts:signInWithPassword?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "identity: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(ErrAuth, "sign-in request: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(ErrAuth, "sign-in read body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ae authError
		if jsonErr := json.Unmarshal(body, &ae); jsonErr == nil && ae.Error.Message != "" {
			return nil, eris.Wrapf(ErrAuth, "sign-in: %s", ae.Error.Message)
		}
		return nil, eris.Wrapf(ErrAuth, "sign-in: status %d", resp.StatusCode)
	}

	var parsed signInResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrapf(ErrAuth, "sign-in parse response: %v", err)
	}

	user := &User{ID: parsed.LocalID, Email: parsed.Email}

	c.mu.Lock()
	c.user = user
	c.token = parsed.IDToken
	subs := snapshotSubscribers(c.subscribers)
	c.mu.Unlock()

	notify(subs, user)
	return user, nil
}

// SignOut implements Client. The provider holds no server-side session for
// password sign-in, so sign-out drops the token locally and notifies
// subscribers.
func (c *httpClient) SignOut(_ context.Context) error {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return eris.Wrap(ErrAuth, "sign-out: no active session")
	}
	c.user = nil
	c.token = ""
	subs := snapshotSubscribers(c.subscribers)
	c.mu.Unlock()

	notify(subs, nil)
	return nil
}

// CurrentUser implements Client.
func (c *httpClient) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Subscribe implements Client.
func (c *httpClient) Subscribe(fn func(*User)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func snapshotSubscribers(subs map[int]func(*User)) []func(*User) {
	out := make([]func(*User), 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(*User), user *User) {
	for _, fn := range subs {
		fn(user)
	}
}
