package workspace

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
)

// ErrApplicationsLocked is returned when creating an application for a
// student whose profile is not complete.
var ErrApplicationsLocked = errors.New("student profile is incomplete, applications are locked")

// ErrStudentMismatch is returned when a create request names another student.
var ErrStudentMismatch = errors.New("application belongs to a different student")

// Board is the application list and detail pane of one student.
type Board struct {
	ws        *Workspace
	studentID string

	mu         sync.Mutex
	selectedID string
}

// Snapshot is a consistent view of the board's local state.
type Snapshot struct {
	SelectedID string
	ListCached bool
	ListStale  bool
}

// StudentID returns the student the board belongs to.
func (b *Board) StudentID() string { return b.studentID }

// ListKey is the query key of the displayed list.
func (b *Board) ListKey() querycache.Key { return ApplicationListKey(b.studentID) }

// Applications returns the student's applications, from cache when fresh.
func (b *Board) Applications(ctx context.Context) ([]model.Application, error) {
	key := b.ListKey()
	return querycache.FetchAs(ctx, b.ws.cache, key, func(ctx context.Context) ([]model.Application, error) {
		return fetchInto[[]model.Application](ctx, b.ws.backend, key)
	})
}

// Select opens an application in the detail pane.
func (b *Board) Select(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selectedID = id
}

// Selected returns the id of the open application, or "".
func (b *Board) Selected() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selectedID
}

// Snapshot reads the selection and list cache state in one step.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.ws.cache.Peek(b.ListKey())
	return Snapshot{SelectedID: b.selectedID, ListCached: ok, ListStale: ok && e.Stale}
}

// Detail returns one application, from cache when fresh.
func (b *Board) Detail(ctx context.Context, id string) (*model.Application, error) {
	key := applicationKey(id)
	app, err := querycache.FetchAs(ctx, b.ws.cache, key, func(ctx context.Context) (*model.Application, error) {
		return fetchRecord[model.Application](ctx, b.ws.backend, key)
	})
	if err != nil {
		return nil, err
	}
	return app.Clone(), nil
}

// Controls returns the controls the actor should see on an application.
func (b *Board) Controls(ctx context.Context, id string) (lifecycle.Controls, error) {
	app, err := b.Detail(ctx, id)
	if err != nil {
		return lifecycle.Controls{}, err
	}
	return lifecycle.Affordances(b.ws.actor, app), nil
}

// Create opens a new application and reconciles the list it appears in.
func (b *Board) Create(ctx context.Context, req model.CreateApplicationRequest) (*model.Application, error) {
	if !b.ws.actor.Can(model.PermissionApplicationsCreate) {
		return nil, lifecycle.ErrForbidden
	}
	if req.StudentID != b.studentID {
		return nil, ErrStudentMismatch
	}
	profile, err := b.ws.Profiles().Get(ctx, b.studentID)
	if err != nil {
		return nil, err
	}
	if !profile.Tabs.ApplicationsEnabled {
		return nil, ErrApplicationsLocked
	}

	var created model.Application
	err = mutate(ctx, b.ws.backend, Mutation{
		Method: http.MethodPost,
		Path:   "/api/v1/applications",
		Body:   req,
	}, &created)
	if err != nil {
		return nil, err
	}

	b.ws.cache.Invalidate(querycache.Tag(querycache.Applications), b.ListKey())
	b.ws.cache.Set(applicationKey(created.ID), created.Clone())

	b.ws.log.Info().
		Str("student_id", b.studentID).
		Str("application_id", created.ID).
		Msg("Application created")
	return &created, nil
}

// Withdraw deletes an application. If it was open in the detail pane the
// selection is cleared in the same step that invalidates the list, so no
// reader sees a selection pointing at a row that is gone.
func (b *Board) Withdraw(ctx context.Context, id string) error {
	if !b.ws.actor.Can(model.PermissionApplicationsWithdraw) {
		return lifecycle.ErrForbidden
	}

	err := mutate(ctx, b.ws.backend, Mutation{
		Method: http.MethodDelete,
		Path:   "/api/v1/applications/" + id,
	}, nil)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.selectedID == id {
		b.selectedID = ""
	}
	b.ws.cache.Invalidate(querycache.Tag(querycache.Applications), b.ListKey())
	b.ws.cache.Remove(applicationKey(id))
	b.mu.Unlock()

	b.ws.log.Info().
		Str("student_id", b.studentID).
		Str("application_id", id).
		Msg("Application withdrawn")
	return nil
}

// SetStatus moves an application to another status.
func (b *Board) SetStatus(ctx context.Context, id string, status model.ApplicationStatus) (*model.Application, error) {
	return b.transition(ctx, id, func(app *model.Application) error {
		_, err := b.ws.machine.SetStatus(b.ws.actor, app, status)
		return err
	}, Mutation{
		Method: http.MethodPatch,
		Path:   "/api/v1/applications/" + id + "/status",
		Body:   model.UpdateStatusRequest{Status: status},
	})
}

// SetPriority sets an application's priority.
func (b *Board) SetPriority(ctx context.Context, id string, priority model.Priority) (*model.Application, error) {
	return b.transition(ctx, id, func(app *model.Application) error {
		_, err := b.ws.machine.SetPriority(b.ws.actor, app, priority)
		return err
	}, Mutation{
		Method: http.MethodPatch,
		Path:   "/api/v1/applications/" + id + "/priority",
		Body:   model.UpdatePriorityRequest{Priority: priority},
	})
}

// UploadPayment stores a payment proof and attaches it to the application.
// Nothing is uploaded when the application cannot take a proof.
func (b *Board) UploadPayment(ctx context.Context, id string, file UploadFile) (*model.Application, error) {
	app, err := b.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.ws.actor.Can(model.PermissionPaymentsUpload) {
		return nil, lifecycle.ErrForbidden
	}
	if err := lifecycle.CanUploadPayment(app); err != nil {
		return nil, err
	}

	stored, err := b.ws.backend.Upload(ctx, []UploadFile{file})
	if err != nil {
		return nil, err
	}
	if len(stored) != 1 {
		return nil, lifecycle.ErrInvalidPaymentDocument
	}

	return b.transition(ctx, id, func(app *model.Application) error {
		_, err := b.ws.machine.UploadPayment(b.ws.actor, app, stored[0])
		return err
	}, Mutation{
		Method: http.MethodPut,
		Path:   "/api/v1/applications/" + id + "/payment",
		Body:   model.UploadPaymentRequest{PaymentDocument: stored[0]},
	})
}

// VerifyPayment marks the payment proof as verified.
func (b *Board) VerifyPayment(ctx context.Context, id string) (*model.Application, error) {
	return b.transition(ctx, id, func(app *model.Application) error {
		_, err := b.ws.machine.VerifyPayment(b.ws.actor, app)
		return err
	}, Mutation{
		Method: http.MethodPost,
		Path:   "/api/v1/applications/" + id + "/payment/verify",
	})
}

// RemovePayment detaches the payment proof.
func (b *Board) RemovePayment(ctx context.Context, id string) (*model.Application, error) {
	return b.transition(ctx, id, func(app *model.Application) error {
		_, err := b.ws.machine.RemovePayment(b.ws.actor, app)
		return err
	}, Mutation{
		Method: http.MethodDelete,
		Path:   "/api/v1/applications/" + id + "/payment",
	})
}

// transition checks a change locally on a copy of the application, sends it,
// and writes the server's version through to the cache.
func (b *Board) transition(ctx context.Context, id string, check func(*model.Application) error, m Mutation) (*model.Application, error) {
	app, err := b.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(app); err != nil {
		return nil, err
	}

	var updated model.Application
	if err := mutate(ctx, b.ws.backend, m, &updated); err != nil {
		return nil, err
	}

	b.ws.cache.Invalidate(b.ListKey(), querycache.Tag(querycache.Activities).WithID(id))
	b.ws.cache.Set(applicationKey(id), updated.Clone())
	return &updated, nil
}

// Activities returns the audit trail of an application.
func (b *Board) Activities(ctx context.Context, id string) ([]model.Activity, error) {
	key := querycache.Tag(querycache.Activities).WithID(id)
	return querycache.FetchAs(ctx, b.ws.cache, key, func(ctx context.Context) ([]model.Activity, error) {
		return fetchInto[[]model.Activity](ctx, b.ws.backend, key)
	})
}
