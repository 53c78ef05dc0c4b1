// Package apiclient talks to the admin REST API. It implements the
// workspace collaborators on top of net/http.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
	"github.com/stemsi/abroad-backend/internal/workspace"
)

// ErrUnsupportedResource is returned for query keys with no endpoint.
var ErrUnsupportedResource = errors.New("no endpoint for resource")

// StatusError is a non-2xx response to a read.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client is an authenticated API client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a client for the API at baseURL using a bearer token.
func New(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

var _ workspace.Backend = (*Client)(nil)

// envelope mirrors the server's response body.
type envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Error   *workspace.ActionError `json:"error"`
	Meta    *model.PageMeta        `json:"meta"`
}

// Login exchanges credentials for a token and returns a client using it.
func Login(ctx context.Context, baseURL, email, password string, timeout time.Duration, log zerolog.Logger) (*Client, *model.LoginResponse, error) {
	c := New(baseURL, "", timeout, log)
	var env envelope
	status, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Email: email, Password: password}, &env)
	if err != nil {
		return nil, nil, err
	}
	if !env.Success {
		return nil, nil, statusError(status, &env)
	}
	var lr model.LoginResponse
	if err := json.Unmarshal(env.Data, &lr); err != nil {
		return nil, nil, fmt.Errorf("decode login response: %w", err)
	}
	c.token = lr.Token
	return c, &lr, nil
}

// Fetch implements workspace.Fetcher.
func (c *Client) Fetch(ctx context.Context, key querycache.Key) (*workspace.Page, error) {
	path, err := pathFor(key)
	if err != nil {
		return nil, err
	}
	if q := key.Query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var env envelope
	status, err := c.do(ctx, http.MethodGet, path, nil, &env)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, statusError(status, &env)
	}
	return &workspace.Page{Data: env.Data, Meta: env.Meta}, nil
}

// Mutate implements workspace.Mutator. Responses the server produced are
// returned as an ActionResponse whatever their status code.
func (c *Client) Mutate(ctx context.Context, m workspace.Mutation) (*workspace.ActionResponse, error) {
	var env envelope
	if _, err := c.do(ctx, m.Method, m.Path, m.Body, &env); err != nil {
		return nil, err
	}
	return &workspace.ActionResponse{Success: env.Success, Data: env.Data, Error: env.Error}, nil
}

// Upload implements workspace.Uploader.
func (c *Client) Upload(ctx context.Context, files []workspace.UploadFile) ([]model.StoredFile, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/media/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var env envelope
	status, err := c.send(req, &env)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, statusError(status, &env)
	}
	var stored []model.StoredFile
	if err := json.Unmarshal(env.Data, &stored); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return stored, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, dst *envelope) (int, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, dst)
}

func (c *Client) send(req *http.Request, dst *envelope) (int, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("API call")

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s (status %d): %w", req.Method, req.URL.Path, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

func statusError(status int, env *envelope) error {
	se := &StatusError{StatusCode: status}
	if env.Error != nil {
		se.Code = env.Error.Code
		se.Message = env.Error.Message
	}
	return se
}

// pathFor maps a query key onto its REST endpoint.
func pathFor(key querycache.Key) (string, error) {
	id := url.PathEscape(key.ID)
	switch key.Resource {
	case querycache.Students:
		if key.ID != "" {
			return "/api/v1/students/" + id, nil
		}
		return "/api/v1/students", nil
	case querycache.Applications:
		if key.ID != "" {
			return "/api/v1/applications/" + id, nil
		}
		return "/api/v1/applications", nil
	case querycache.Activities:
		if key.ID == "" {
			break
		}
		return "/api/v1/applications/" + id + "/activities", nil
	case querycache.Messages:
		if key.ID == "" {
			break
		}
		return "/api/v1/conversations/" + id + "/messages", nil
	case querycache.Universities:
		return "/api/v1/universities", nil
	case querycache.Courses:
		return "/api/v1/courses", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedResource, key)
}
