package lifecycle

import (
	"errors"
	"time"

	"github.com/stemsi/abroad-backend/internal/model"
)

// Transition errors.
var (
	ErrForbidden              = errors.New("actor is not permitted to perform this transition")
	ErrUnknownStatus          = errors.New("status is not in the catalogue")
	ErrInvalidPriority        = errors.New("priority must be LOW, MEDIUM or HIGH")
	ErrPaymentAlreadyUploaded = errors.New("payment document already uploaded, remove it first")
	ErrNoApplicationFee       = errors.New("course has no application fee, payment proof is not needed")
	ErrNoPaymentDocument      = errors.New("no payment document to verify")
	ErrPaymentAlreadyVerified = errors.New("payment already verified")
	ErrInvalidPaymentDocument = errors.New("payment document must have a filename and url")
)

// Transition describes a single applied change, in the shape recorded in the
// activity log.
type Transition struct {
	Kind model.ActivityKind
	From string
	To   string
}

// Machine applies application transitions. Status, priority and payment are
// independent axes; each method touches exactly one of them and mutates the
// application in place only when it returns a nil error.
type Machine struct {
	catalogue *StatusCatalogue
	now       func() time.Time
}

// NewMachine creates a Machine over the given status catalogue.
func NewMachine(catalogue *StatusCatalogue) *Machine {
	if catalogue == nil {
		catalogue = DefaultCatalogue()
	}
	return &Machine{catalogue: catalogue, now: time.Now}
}

// WithClock returns a copy of m that reads the current time from now.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	c := *m
	c.now = now
	return &c
}

// Catalogue returns the status catalogue the machine validates against.
func (m *Machine) Catalogue() *StatusCatalogue {
	return m.catalogue
}

// Open initializes a new application in the catalogue's initial status.
func (m *Machine) Open(actor model.Actor, app *model.Application) (Transition, error) {
	if !actor.Can(model.PermissionApplicationsCreate) {
		return Transition{}, ErrForbidden
	}
	app.Status = m.catalogue.Initial()
	app.Priority = nil
	app.PaymentDocument = nil
	app.PaymentVerifiedAt = nil
	return Transition{Kind: model.ActivityCreated, To: string(app.Status)}, nil
}

// SetStatus moves the application to any status in the catalogue.
func (m *Machine) SetStatus(actor model.Actor, app *model.Application, status model.ApplicationStatus) (Transition, error) {
	if !actor.Can(model.PermissionApplicationsStatus) {
		return Transition{}, ErrForbidden
	}
	if !m.catalogue.Contains(status) {
		return Transition{}, ErrUnknownStatus
	}
	t := Transition{Kind: model.ActivityStatusChanged, From: string(app.Status), To: string(status)}
	app.Status = status
	return t, nil
}

// SetPriority sets the application's priority.
func (m *Machine) SetPriority(actor model.Actor, app *model.Application, priority model.Priority) (Transition, error) {
	if !actor.Can(model.PermissionApplicationsPriority) {
		return Transition{}, ErrForbidden
	}
	if !priority.Valid() {
		return Transition{}, ErrInvalidPriority
	}
	t := Transition{Kind: model.ActivityPriorityChanged, To: string(priority)}
	if app.Priority != nil {
		t.From = string(*app.Priority)
	}
	p := priority
	app.Priority = &p
	return t, nil
}

// UploadPayment attaches a payment proof. Re-uploading requires an explicit
// RemovePayment first, and courses without a fee never take payment proof.
func (m *Machine) UploadPayment(actor model.Actor, app *model.Application, doc model.StoredFile) (Transition, error) {
	if !actor.Can(model.PermissionPaymentsUpload) {
		return Transition{}, ErrForbidden
	}
	if err := CanUploadPayment(app); err != nil {
		return Transition{}, err
	}
	if doc.Filename == "" || doc.URL == "" {
		return Transition{}, ErrInvalidPaymentDocument
	}
	d := doc
	app.PaymentDocument = &d
	app.PaymentVerifiedAt = nil
	return Transition{Kind: model.ActivityPaymentUploaded, To: doc.Filename}, nil
}

// CanUploadPayment reports why a payment proof cannot be attached, ignoring
// who is asking.
func CanUploadPayment(app *model.Application) error {
	if app.Course.ApplicationFee <= 0 {
		return ErrNoApplicationFee
	}
	if app.PaymentDocument != nil {
		return ErrPaymentAlreadyUploaded
	}
	return nil
}

// VerifyPayment stamps the payment proof as verified.
func (m *Machine) VerifyPayment(actor model.Actor, app *model.Application) (Transition, error) {
	if !actor.Can(model.PermissionPaymentsVerify) {
		return Transition{}, ErrForbidden
	}
	if app.PaymentDocument == nil {
		return Transition{}, ErrNoPaymentDocument
	}
	if app.PaymentVerifiedAt != nil {
		return Transition{}, ErrPaymentAlreadyVerified
	}
	now := m.now().UTC()
	app.PaymentVerifiedAt = &now
	return Transition{
		Kind: model.ActivityPaymentVerified,
		From: string(model.PaymentDocumentUploaded),
		To:   string(model.PaymentVerified),
	}, nil
}

// RemovePayment detaches the payment proof. The verification stamp goes with
// it so it can never refer to a document that no longer exists.
func (m *Machine) RemovePayment(actor model.Actor, app *model.Application) (Transition, error) {
	if !actor.Can(model.PermissionPaymentsVerify) {
		return Transition{}, ErrForbidden
	}
	if app.PaymentDocument == nil {
		return Transition{}, ErrNoPaymentDocument
	}
	t := Transition{
		Kind: model.ActivityPaymentRemoved,
		From: string(app.PaymentState()),
		To:   string(model.PaymentNoDocument),
	}
	app.PaymentDocument = nil
	app.PaymentVerifiedAt = nil
	return t, nil
}

// Controls lists which application controls the actor should be shown.
type Controls struct {
	SetStatus     bool `json:"setStatus"`
	SetPriority   bool `json:"setPriority"`
	UploadPayment bool `json:"uploadPayment"`
	VerifyPayment bool `json:"verifyPayment"`
	RemovePayment bool `json:"removePayment"`
	Withdraw      bool `json:"withdraw"`
}

// Affordances derives the controls to render for an actor on an application.
// The backend remains the authority; this only decides what to show.
func Affordances(actor model.Actor, app *model.Application) Controls {
	state := app.PaymentState()
	return Controls{
		SetStatus:     actor.Can(model.PermissionApplicationsStatus),
		SetPriority:   actor.Can(model.PermissionApplicationsPriority),
		UploadPayment: actor.Can(model.PermissionPaymentsUpload) && CanUploadPayment(app) == nil,
		VerifyPayment: actor.Can(model.PermissionPaymentsVerify) && state == model.PaymentDocumentUploaded,
		RemovePayment: actor.Can(model.PermissionPaymentsVerify) && state != model.PaymentNoDocument,
		Withdraw:      actor.Can(model.PermissionApplicationsWithdraw),
	}
}
