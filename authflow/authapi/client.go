// Package authapi is the HTTP client for the remote authentication
// backend. Successful verify-otp calls for the LOGIN purpose answer a
// `{"data":{"token":...,"user":{...}}}` envelope; every other reply is a
// bare `{"message":...}`.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miu-servicedesk/portal/session"
	"github.com/miu-servicedesk/portal/users"
	"github.com/pkg/errors"
)

const (
	routeSignup    = "/auth/signup"
	routeLogin     = "/auth/login"
	routeVerifyOTP = "/auth/verify-otp"
	routeResendOTP = "/auth/resend-otp"

	// defaultTimeout bounds every backend call. The browser original had
	// no client-side timeout and a hung request left the form disabled
	// forever; here a hang surfaces as a NetworkError instead.
	defaultTimeout = 15 * time.Second
)

// Client is the auth backend surface the login flow depends on.
type Client interface {
	Signup(ctx context.Context, req SignupRequest) (string, error)
	Login(ctx context.Context, email, password string) (*LoginReply, error)
	VerifyOTP(ctx context.Context, email, otp string, purpose session.Purpose) (*VerifyReply, error)
	ResendOTP(ctx context.Context, email string, purpose session.Purpose) error
}

// SignupRequest is the signup payload forwarded to the backend. The
// password travels verbatim; hashing is the backend's job.
type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// LoginReply is the backend's answer to a credential check. Requires is
// the structured successor of the old message-sniffing contract: when
// present it names the OTP purpose the backend expects next.
type LoginReply struct {
	Message  string `json:"message"`
	Requires string `json:"requires,omitempty"`
}

// NeedsVerification reports whether the account must finish email
// verification before a login OTP is issued. The explicit Requires field
// wins; absent that, the historical substring match on the message text
// is kept so older backend deployments keep working.
func (r *LoginReply) NeedsVerification() bool {
	if r.Requires != "" {
		return strings.EqualFold(r.Requires, string(session.PurposeVerification))
	}
	return strings.Contains(strings.ToLower(r.Message), "verification")
}

// VerifyReply is the answer to an OTP check. Token and User are set only
// for the LOGIN purpose.
type VerifyReply struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    *users.User `json:"user"`
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// HTTPClient talks to the auth backend over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// New creates a client for the auth backend at baseURL.
func New(baseURL string, options ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// Signup registers a new account and returns the backend's message.
func (c *HTTPClient) Signup(ctx context.Context, req SignupRequest) (string, error) {
	env, err := c.post(ctx, routeSignup, req)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// Login checks credentials. A successful reply never carries a token;
// it tells the client which OTP purpose comes next.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginReply, error) {
	env, err := c.post(ctx, routeLogin, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	reply := LoginReply{Message: env.Message}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &reply); err != nil {
			return nil, errors.Wrap(err, "[HTTPClient.Login] decode data")
		}
		if reply.Message == "" {
			reply.Message = env.Message
		}
	}
	return &reply, nil
}

// VerifyOTP submits a 6-digit code for the given purpose.
func (c *HTTPClient) VerifyOTP(ctx context.Context, email, otp string, purpose session.Purpose) (*VerifyReply, error) {
	env, err := c.post(ctx, routeVerifyOTP, map[string]string{
		"email":   email,
		"otp":     otp,
		"purpose": string(purpose),
	})
	if err != nil {
		return nil, err
	}

	reply := VerifyReply{Message: env.Message}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &reply); err != nil {
			return nil, errors.Wrap(err, "[HTTPClient.VerifyOTP] decode data")
		}
		if reply.Message == "" {
			reply.Message = env.Message
		}
	}
	return &reply, nil
}

// ResendOTP asks the backend to email a fresh code.
func (c *HTTPClient) ResendOTP(ctx context.Context, email string, purpose session.Purpose) error {
	_, err := c.post(ctx, routeResendOTP, map[string]string{
		"email":   email,
		"purpose": string(purpose),
	})
	return err
}

func (c *HTTPClient) post(ctx context.Context, route string, payload any) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "[HTTPClient.post] encode %s", route)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "[HTTPClient.post] build %s", route)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	var env envelope
	if len(raw) > 0 {
		// A malformed body on an error status must not mask the status.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}
