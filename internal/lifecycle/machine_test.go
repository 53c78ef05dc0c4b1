package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/abroad-backend/internal/model"
)

var (
	superAdmin = model.Actor{ID: 1, Role: model.RoleSuperAdmin, FirstName: "Sam"}
	admin      = model.Actor{ID: 2, Role: model.RoleAdmin, FirstName: "Ada"}
	counselor  = model.Actor{ID: 3, Role: model.RoleCounselor, FirstName: "Cole"}
	verifier   = model.Actor{ID: 4, Role: model.RoleVerifier, FirstName: "Vera"}
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newMachine() *Machine {
	return NewMachine(DefaultCatalogue()).WithClock(func() time.Time { return fixedNow })
}

func feeApplication(fee float64) *model.Application {
	return &model.Application{
		ID:     "a1",
		Course: model.CourseRef{ID: "c1", ApplicationFee: fee},
		Status: model.StatusInProgress,
	}
}

var proof = model.StoredFile{Filename: "proof.pdf", OriginalName: "receipt.pdf", URL: "/uploads/proof.pdf"}

func TestStatusAndPriorityAreDisjoint(t *testing.T) {
	for _, actor := range []model.Actor{superAdmin, admin, counselor, verifier} {
		canStatus := actor.Can(model.PermissionApplicationsStatus)
		canPriority := actor.Can(model.PermissionApplicationsPriority)
		assert.False(t, canStatus && canPriority, "role %s holds both", actor.Role)
	}
}

func TestSetStatus(t *testing.T) {
	m := newMachine()
	app := feeApplication(0)

	_, err := m.SetStatus(admin, app, model.StatusSubmitted)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, model.StatusInProgress, app.Status)

	_, err = m.SetStatus(superAdmin, app, "Teleported")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	tr, err := m.SetStatus(superAdmin, app, model.StatusEnrolled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEnrolled, app.Status)
	assert.Equal(t, Transition{Kind: model.ActivityStatusChanged, From: string(model.StatusInProgress), To: string(model.StatusEnrolled)}, tr)

	// No adjacency restriction: back to the start is fine.
	_, err = m.SetStatus(superAdmin, app, model.StatusInProgress)
	assert.NoError(t, err)
}

func TestSetPriority(t *testing.T) {
	m := newMachine()
	app := feeApplication(0)

	_, err := m.SetPriority(superAdmin, app, model.PriorityHigh)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = m.SetPriority(counselor, app, "URGENT")
	assert.ErrorIs(t, err, ErrInvalidPriority)
	assert.Nil(t, app.Priority)

	tr, err := m.SetPriority(admin, app, model.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, "", tr.From)
	require.NotNil(t, app.Priority)
	assert.Equal(t, model.PriorityHigh, *app.Priority)

	tr, err = m.SetPriority(counselor, app, model.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, string(model.PriorityHigh), tr.From)
}

func TestPaymentFlow(t *testing.T) {
	m := newMachine()
	app := feeApplication(150)
	assert.Equal(t, model.PaymentNoDocument, app.PaymentState())

	_, err := m.VerifyPayment(verifier, app)
	assert.ErrorIs(t, err, ErrNoPaymentDocument)
	assert.Nil(t, app.PaymentVerifiedAt)

	_, err = m.UploadPayment(counselor, app, proof)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentDocumentUploaded, app.PaymentState())

	_, err = m.UploadPayment(counselor, app, model.StoredFile{Filename: "again.pdf", URL: "/u/again.pdf"})
	assert.ErrorIs(t, err, ErrPaymentAlreadyUploaded)
	assert.Equal(t, "proof.pdf", app.PaymentDocument.Filename)

	_, err = m.VerifyPayment(admin, app)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = m.VerifyPayment(verifier, app)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentVerified, app.PaymentState())
	assert.Equal(t, fixedNow, *app.PaymentVerifiedAt)

	_, err = m.VerifyPayment(verifier, app)
	assert.ErrorIs(t, err, ErrPaymentAlreadyVerified)

	_, err = m.RemovePayment(superAdmin, app)
	assert.ErrorIs(t, err, ErrForbidden)

	tr, err := m.RemovePayment(verifier, app)
	require.NoError(t, err)
	assert.Equal(t, string(model.PaymentVerified), tr.From)
	assert.Nil(t, app.PaymentDocument)
	assert.Nil(t, app.PaymentVerifiedAt, "removing the document must clear its verification")

	_, err = m.UploadPayment(counselor, app, proof)
	assert.NoError(t, err, "re-upload is allowed after an explicit remove")
}

func TestUploadPaymentRejectedForNoFeeCourse(t *testing.T) {
	m := newMachine()
	app := feeApplication(0)

	_, err := m.UploadPayment(counselor, app, proof)
	assert.ErrorIs(t, err, ErrNoApplicationFee)
	assert.Nil(t, app.PaymentDocument)
	assert.False(t, Affordances(counselor, app).UploadPayment)
}

func TestUploadPaymentNeedsStoredFile(t *testing.T) {
	m := newMachine()
	app := feeApplication(10)
	_, err := m.UploadPayment(counselor, app, model.StoredFile{Filename: "x.pdf"})
	assert.ErrorIs(t, err, ErrInvalidPaymentDocument)
}

func TestOpenResetsState(t *testing.T) {
	m := newMachine()
	p := model.PriorityHigh
	app := &model.Application{Status: "whatever", Priority: &p, PaymentDocument: &proof}

	_, err := m.Open(verifier, app)
	assert.ErrorIs(t, err, ErrForbidden)

	tr, err := m.Open(counselor, app)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, app.Status)
	assert.Nil(t, app.Priority)
	assert.Nil(t, app.PaymentDocument)
	assert.Equal(t, model.ActivityCreated, tr.Kind)
}

func TestAffordances(t *testing.T) {
	app := feeApplication(50)

	assert.Equal(t, Controls{SetStatus: true, UploadPayment: true, Withdraw: true}, Affordances(superAdmin, app))
	assert.Equal(t, Controls{SetPriority: true, UploadPayment: true}, Affordances(counselor, app))
	assert.Equal(t, Controls{}, Affordances(verifier, app))

	app.PaymentDocument = &proof
	assert.Equal(t, Controls{VerifyPayment: true, RemovePayment: true}, Affordances(verifier, app))

	now := fixedNow
	app.PaymentVerifiedAt = &now
	assert.Equal(t, Controls{RemovePayment: true}, Affordances(verifier, app))
}

func TestStatusCatalogue(t *testing.T) {
	_, err := NewStatusCatalogue(nil)
	assert.ErrorIs(t, err, ErrEmptyCatalogue)

	_, err = NewStatusCatalogue([]model.ApplicationStatus{"A", "B", "A"})
	assert.Error(t, err)

	c, err := NewStatusCatalogue([]model.ApplicationStatus{"Draft", "Sent"})
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatus("Draft"), c.Initial())
	assert.True(t, c.Contains("Sent"))
	assert.False(t, c.Contains(model.StatusInProgress))
}
