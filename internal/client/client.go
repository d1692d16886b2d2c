// Package client is a typed client for the Prono HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/gosuda/prono/internal/domain"
)

// Sentinel errors for the client package.
var (
	ErrConnection         = errors.New("client: connection error")
	ErrInvalidCredentials = errors.New("client: invalid credentials")
	ErrRejected           = errors.New("client: request rejected")
)

// StatusError is returned for any non-2xx response. It unwraps to
// ErrInvalidCredentials for login and ErrRejected for everything else.
type StatusError struct {
	Op     string
	Status int
	Detail string
	kind   error
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error { return e.kind }

// TokenPair is the credential pair issued by /token/pair.
type TokenPair struct {
	Access  string `json:"access"`  //nolint:gosec // G117: auth response DTO
	Refresh string `json:"refresh"` //nolint:gosec // G117: auth response DTO
}

// Client talks to the Prono HTTP API rooted at baseURL
// (e.g. "http://localhost:8000/api").
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// New creates a Client. A zero timeout means no per-request deadline.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Login exchanges a username and password for a credential pair.
func (c *Client) Login(ctx context.Context, username, password string) (TokenPair, error) {
	body := map[string]string{"username": username, "password": password}

	var pair TokenPair
	if err := c.do(ctx, c.httpClient, "client.Login", http.MethodPost, "/token/pair", body, &pair, ErrInvalidCredentials); err != nil {
		return TokenPair{}, err
	}
	if pair.Access == "" {
		return TokenPair{}, fmt.Errorf("client.Login: empty access token: %w", ErrInvalidCredentials)
	}

	return pair, nil
}

// ListProjects returns all projects in server order.
func (c *Client) ListProjects(ctx context.Context, credential string) ([]domain.Project, error) {
	var projects []domain.Project
	if err := c.do(ctx, c.bearer(ctx, credential), "client.ListProjects", http.MethodGet, "/projects/", nil, &projects, ErrRejected); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project owned by the credential's user.
func (c *Client) CreateProject(ctx context.Context, credential, name string) (domain.Project, error) {
	var p domain.Project
	body := map[string]string{"name": name}
	if err := c.do(ctx, c.bearer(ctx, credential), "client.CreateProject", http.MethodPost, "/projects/", body, &p, ErrRejected); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// GetProject returns a project and its tasks.
func (c *Client) GetProject(ctx context.Context, credential string, projectID int64) (domain.ProjectDetail, error) {
	var d domain.ProjectDetail
	path := fmt.Sprintf("/projects/%d", projectID)
	if err := c.do(ctx, c.bearer(ctx, credential), "client.GetProject", http.MethodGet, path, nil, &d, ErrRejected); err != nil {
		return domain.ProjectDetail{}, err
	}
	return d, nil
}

// CreateTask adds a task to a project.
func (c *Client) CreateTask(ctx context.Context, credential string, projectID int64, title string) (domain.Task, error) {
	var task domain.Task
	path := fmt.Sprintf("/projects/%d/tasks", projectID)
	body := map[string]string{"title": title}
	if err := c.do(ctx, c.bearer(ctx, credential), "client.CreateTask", http.MethodPost, path, body, &task, ErrRejected); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// CompleteTask marks a task completed. Permission and not-found failures are
// both reported as ErrRejected.
func (c *Client) CompleteTask(ctx context.Context, credential string, taskID int64) (domain.Task, error) {
	var task domain.Task
	path := fmt.Sprintf("/projects/tasks/%d/complete", taskID)
	if err := c.do(ctx, c.bearer(ctx, credential), "client.CompleteTask", http.MethodPost, path, nil, &task, ErrRejected); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// bearer returns an HTTP client that attaches the credential as a bearer token.
func (c *Client) bearer(ctx context.Context, credential string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: credential,
		TokenType:   "Bearer",
	}))
}

func (c *Client) do(ctx context.Context, hc *http.Client, op, method, path string, in, out any, rejectKind error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Op:     op,
			Status: resp.StatusCode,
			Detail: problemDetail(resp.Body),
			kind:   rejectKind,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w: %w", op, ErrConnection, err)
	}

	return nil
}

// problemDetail extracts a human-readable message from an error body.
// Both RFC 9457 problem documents and {"message": ...} bodies are understood.
func problemDetail(r io.Reader) string {
	var p struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&p); err != nil {
		return ""
	}
	if p.Detail != "" {
		return p.Detail
	}
	return p.Message
}
