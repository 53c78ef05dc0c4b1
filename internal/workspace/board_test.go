package workspace

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
)

func createRequest(studentID, courseID string) model.CreateApplicationRequest {
	return model.CreateApplicationRequest{
		StudentID:  studentID,
		Course:     model.SelectOption{Value: courseID},
		University: model.SelectOption{Value: "u1"},
		Intake:     "september",
		Year:       "2026",
	}
}

func TestCreatedApplicationAppearsInStudentList(t *testing.T) {
	be := newFakeBackend()
	be.students["s1"] = completeStudent("s1")
	board := newWorkspace(counselor, be).Board("s1")
	ctx := context.Background()

	before, err := board.Applications(ctx)
	require.NoError(t, err)
	assert.Empty(t, before)

	created, err := board.Create(ctx, createRequest("s1", "c-paid"))
	require.NoError(t, err)

	snap := board.Snapshot()
	assert.True(t, snap.ListStale)

	after, err := board.Applications(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, created.ID, after[0].ID)
	assert.Equal(t, 2, be.fetchCount(ApplicationListKey("s1")))

	detail, err := board.Detail(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, detail.Status)
	assert.Equal(t, 0, be.fetchCount(applicationKey(created.ID)), "detail is written through")
}

func TestInvalidatedListIsRefetchedOnceByConcurrentReaders(t *testing.T) {
	be := newFakeBackend()
	be.students["s1"] = completeStudent("s1")
	board := newWorkspace(counselor, be).Board("s1")
	ctx := context.Background()

	_, err := board.Applications(ctx)
	require.NoError(t, err)
	_, err = board.Create(ctx, createRequest("s1", "c-paid"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := board.Applications(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, be.fetchCount(ApplicationListKey("s1")))
}

func TestCreateIsLockedUntilProfileIsComplete(t *testing.T) {
	be := newFakeBackend()
	be.students["s1"] = &model.Student{
		ID:           "s1",
		PersonalInfo: &model.PersonalInfo{DateOfBirth: "2001-04-02"},
	}
	board := newWorkspace(counselor, be).Board("s1")

	_, err := board.Create(context.Background(), createRequest("s1", "c-paid"))
	assert.ErrorIs(t, err, ErrApplicationsLocked)
	assert.Zero(t, be.mutationCount())
}

func TestCreateRejectsOtherStudent(t *testing.T) {
	be := newFakeBackend()
	board := newWorkspace(counselor, be).Board("s1")

	_, err := board.Create(context.Background(), createRequest("s2", "c-paid"))
	assert.ErrorIs(t, err, ErrStudentMismatch)
	assert.Zero(t, be.mutationCount())
}

func TestWithdrawSelectedClearsSelectionWithInvalidation(t *testing.T) {
	be := newFakeBackend()
	be.addApplication("a1", "s1", "c-paid")
	be.addApplication("a2", "s1", "c-paid")
	board := newWorkspace(superAdmin, be).Board("s1")
	ctx := context.Background()

	_, err := board.Applications(ctx)
	require.NoError(t, err)
	board.Select("a1")

	var inconsistent atomic.Int32
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := board.Snapshot()
			// Either the old state (a1 selected, list fresh) or the new
			// one (nothing selected, list stale); never a mix.
			if (snap.SelectedID == "a1") == snap.ListStale {
				inconsistent.Add(1)
			}
		}
	}()

	require.NoError(t, board.Withdraw(ctx, "a1"))
	close(stop)
	wg.Wait()

	assert.Zero(t, inconsistent.Load())
	assert.Equal(t, "", board.Selected())
	assert.True(t, board.Snapshot().ListStale)

	rows, err := board.Applications(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a2", rows[0].ID)
}

func TestWithdrawOtherKeepsSelection(t *testing.T) {
	be := newFakeBackend()
	be.addApplication("a1", "s1", "c-paid")
	be.addApplication("a2", "s1", "c-paid")
	board := newWorkspace(superAdmin, be).Board("s1")

	board.Select("a2")
	require.NoError(t, board.Withdraw(context.Background(), "a1"))
	assert.Equal(t, "a2", board.Selected())
}

func TestWithdrawFailureKeepsState(t *testing.T) {
	be := newFakeBackend()
	be.addApplication("a1", "s1", "c-paid")
	be.reject = &ActionError{Code: "FORBIDDEN", Message: "no"}
	board := newWorkspace(superAdmin, be).Board("s1")
	_, err := board.Applications(context.Background())
	require.NoError(t, err)
	board.Select("a1")

	err = board.Withdraw(context.Background(), "a1")
	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "FORBIDDEN", me.Code)
	assert.Equal(t, "a1", board.Selected())
	assert.False(t, board.Snapshot().ListStale)
}

func TestWithdrawRequiresPermission(t *testing.T) {
	be := newFakeBackend()
	board := newWorkspace(counselor, be).Board("s1")

	assert.ErrorIs(t, board.Withdraw(context.Background(), "a1"), lifecycle.ErrForbidden)
	assert.Zero(t, be.mutationCount())
}

func TestUploadPaymentForFreeCourseIsRejected(t *testing.T) {
	be := newFakeBackend()
	be.addApplication("a1", "s1", "c-free")
	board := newWorkspace(counselor, be).Board("s1")

	_, err := board.UploadPayment(context.Background(), "a1", UploadFile{Name: "r.pdf", Content: strings.NewReader("%PDF")})
	assert.ErrorIs(t, err, lifecycle.ErrNoApplicationFee)
	assert.Zero(t, be.uploads)
	assert.Zero(t, be.mutationCount())
}

func TestPaymentFlow(t *testing.T) {
	be := newFakeBackend()
	be.addApplication("a1", "s1", "c-paid")
	ctx := context.Background()
	counselorBoard := newWorkspace(counselor, be).Board("s1")

	_, err := newWorkspace(verifier, be).Board("s1").VerifyPayment(ctx, "a1")
	assert.ErrorIs(t, err, lifecycle.ErrNoPaymentDocument)

	app, err := counselorBoard.UploadPayment(ctx, "a1", UploadFile{Name: "r.pdf", Content: strings.NewReader("%PDF")})
	require.NoError(t, err)
	require.NotNil(t, app.PaymentDocument)
	assert.Equal(t, "r.pdf", app.PaymentDocument.OriginalName)

	_, err = counselorBoard.UploadPayment(ctx, "a1", UploadFile{Name: "again.pdf", Content: strings.NewReader("%PDF")})
	assert.ErrorIs(t, err, lifecycle.ErrPaymentAlreadyUploaded)

	_, err = counselorBoard.VerifyPayment(ctx, "a1")
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	verifierBoard := newWorkspace(verifier, be).Board("s1")
	app, err = verifierBoard.VerifyPayment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentVerified, app.PaymentState())

	_, err = verifierBoard.VerifyPayment(ctx, "a1")
	assert.ErrorIs(t, err, lifecycle.ErrPaymentAlreadyVerified)

	app, err = verifierBoard.RemovePayment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentNoDocument, app.PaymentState())
	assert.Nil(t, app.PaymentVerifiedAt)
}

func TestStatusAndPriorityRespectRoles(t *testing.T) {
	be := newFakeBackend()
	be.addApplication("a1", "s1", "c-paid")
	ctx := context.Background()

	_, err := newWorkspace(counselor, be).Board("s1").SetStatus(ctx, "a1", model.StatusSubmitted)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)
	_, err = newWorkspace(superAdmin, be).Board("s1").SetPriority(ctx, "a1", model.PriorityHigh)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)
	assert.Zero(t, be.mutationCount())

	board := newWorkspace(superAdmin, be).Board("s1")
	_, err = board.Applications(ctx)
	require.NoError(t, err)
	app, err := board.SetStatus(ctx, "a1", model.StatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, app.Status)
	assert.True(t, board.Snapshot().ListStale)

	_, err = board.SetStatus(ctx, "a1", "Lost_In_Post")
	assert.ErrorIs(t, err, lifecycle.ErrUnknownStatus)

	app, err = newWorkspace(counselor, be).Board("s1").SetPriority(ctx, "a1", model.PriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, app.Priority)
	assert.Equal(t, model.PriorityHigh, *app.Priority)
}

func TestControls(t *testing.T) {
	be := newFakeBackend()
	be.addApplication("a1", "s1", "c-paid")
	ctx := context.Background()

	c, err := newWorkspace(superAdmin, be).Board("s1").Controls(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, c.SetStatus)
	assert.False(t, c.SetPriority)
	assert.True(t, c.Withdraw)

	c, err = newWorkspace(verifier, be).Board("s1").Controls(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, c.VerifyPayment, "nothing to verify yet")
	assert.False(t, c.UploadPayment)
}
