// Package workspace is the client-side engine of the admin console. It keeps
// a read-through cache of server data, applies optimistic changes with LIFO
// rollback, and reconciles list and detail views after every mutation. The
// server is reached only through the collaborator interfaces declared here.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
)

// Page is one fetched query result. Meta is set for paginated lists.
type Page struct {
	Data json.RawMessage
	Meta *model.PageMeta
}

// Fetcher reads the server state a query key describes.
type Fetcher interface {
	Fetch(ctx context.Context, key querycache.Key) (*Page, error)
}

// Mutation is a single write request.
type Mutation struct {
	Method string
	Path   string
	Body   any
}

// ActionError is the error half of an ActionResponse.
type ActionError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ActionResponse is the outcome of a mutation the server processed. A
// transport failure is returned as an error instead.
type ActionResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ActionError    `json:"error"`
}

// Mutator performs writes.
type Mutator interface {
	Mutate(ctx context.Context, m Mutation) (*ActionResponse, error)
}

// UploadFile is a local file to send to storage.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// Uploader stores files and returns what the server kept of them.
type Uploader interface {
	Upload(ctx context.Context, files []UploadFile) ([]model.StoredFile, error)
}

// Backend is everything the workspace needs from the server.
type Backend interface {
	Fetcher
	Mutator
	Uploader
}

// MutationError is a mutation the server rejected.
type MutationError struct {
	Code    string
	Message string
}

func (e *MutationError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// mutate runs m and decodes the response data into dst when dst is non-nil.
func mutate(ctx context.Context, mut Mutator, m Mutation, dst any) error {
	resp, err := mut.Mutate(ctx, m)
	if err != nil {
		return fmt.Errorf("%s %s: %w", m.Method, m.Path, err)
	}
	if !resp.Success {
		me := &MutationError{Message: "request failed"}
		if resp.Error != nil {
			me.Code = resp.Error.Code
			me.Message = resp.Error.Message
		}
		return me
	}
	if dst == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, dst); err != nil {
		return fmt.Errorf("decode %s %s response: %w", m.Method, m.Path, err)
	}
	return nil
}

// ErrNotFound is returned when the server answers a single-record read
// with no data.
var ErrNotFound = errors.New("record not found")

// fetchRecord is fetchInto for one record. An empty answer is ErrNotFound.
func fetchRecord[T any](ctx context.Context, f Fetcher, key querycache.Key) (*T, error) {
	v, err := fetchInto[*T](ctx, f, key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("fetch %s: %w", key, ErrNotFound)
	}
	return v, nil
}

// fetchInto loads key through f and decodes the page data as T.
func fetchInto[T any](ctx context.Context, f Fetcher, key querycache.Key) (T, error) {
	var v T
	page, err := f.Fetch(ctx, key)
	if err != nil {
		return v, fmt.Errorf("fetch %s: %w", key, err)
	}
	if err := json.Unmarshal(page.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}
