package workspace

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
)

func seededThread(t *testing.T, be *fakeBackend) *Thread {
	t.Helper()
	be.messages["conv1"] = []model.Message{
		{ID: "m-a", ConversationID: "conv1", Content: "hello"},
		{ID: "m-b", ConversationID: "conv1", Content: "hi there"},
	}
	th := newWorkspace(counselor, be).Thread("conv1")
	require.NoError(t, th.Load(context.Background()))
	require.Len(t, th.Messages(), 2)
	return th
}

func TestEmptyMessageIsRejectedBeforeNetwork(t *testing.T) {
	be := newFakeBackend()
	th := seededThread(t, be)

	_, err := th.SendMessage(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, lifecycle.ErrEmptyMessage)
	assert.Zero(t, be.mutationCount())
	assert.Zero(t, be.uploads)
	assert.Len(t, th.Messages(), 2)
}

func TestTooManyFilesIsRejectedBeforeNetwork(t *testing.T) {
	be := newFakeBackend()
	th := seededThread(t, be)

	files := make([]UploadFile, model.MaxMessageFiles+1)
	for i := range files {
		files[i] = UploadFile{Name: "f.pdf", Content: strings.NewReader("x")}
	}
	_, err := th.SendMessage(context.Background(), "see attached", files)
	assert.ErrorIs(t, err, lifecycle.ErrTooManyFiles)
	assert.Zero(t, be.uploads)
}

func TestFailedSendRollsBackOptimisticEntry(t *testing.T) {
	be := newFakeBackend()
	th := seededThread(t, be)
	be.onMutate = func(Mutation) error { return errNetwork }
	th.SetDraft("are the documents in?")

	_, err := th.SendMessage(context.Background(), "are the documents in?", nil)
	assert.ErrorIs(t, err, errNetwork)

	msgs := th.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "m-b", msgs[1].ID)
	assert.Empty(t, th.Draft(), "draft is not restored")
}

func TestOptimisticEntryIsVisibleWhileSending(t *testing.T) {
	be := newFakeBackend()
	th := seededThread(t, be)
	entered := make(chan struct{})
	release := make(chan struct{})
	be.onMutate = func(Mutation) error {
		close(entered)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := th.SendMessage(context.Background(), "on my way", nil)
		done <- err
	}()

	<-entered
	msgs := th.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, strings.HasPrefix(msgs[2].ID, "local-"))
	assert.Equal(t, counselor.Sender(), msgs[2].Sender)

	_, err := th.SendMessage(context.Background(), "second", nil)
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(release)
	require.NoError(t, <-done)
}

func TestSuccessfulSendReconcilesInPlace(t *testing.T) {
	be := newFakeBackend()
	th := seededThread(t, be)
	th.SetDraft("offer letter attached")

	sent, err := th.SendMessage(context.Background(), "offer letter attached", []UploadFile{
		{Name: "offer.pdf", Content: strings.NewReader("%PDF")},
	})
	require.NoError(t, err)

	msgs := th.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, sent.ID, msgs[2].ID)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 1, 0, time.UTC), msgs[2].CreatedAt)
	require.Len(t, msgs[2].Files, 1)
	assert.Equal(t, "offer.pdf", msgs[2].Files[0].OriginalName)
	assert.NotEmpty(t, msgs[2].Files[0].URL)
	assert.Empty(t, th.Draft())
}

func TestFilesOnlyMessageIsAllowed(t *testing.T) {
	be := newFakeBackend()
	th := seededThread(t, be)

	_, err := th.SendMessage(context.Background(), "", []UploadFile{{Name: "a.png", Content: strings.NewReader("x")}})
	require.NoError(t, err)
	assert.Len(t, th.Messages(), 3)
}

func TestStreamedCopyIsNotDuplicated(t *testing.T) {
	be := newFakeBackend()
	th := seededThread(t, be)
	be.onMutate = func(Mutation) error {
		// The stream delivers the stored message before the POST returns.
		th.Receive(model.Message{ID: "m-1", ConversationID: "conv1", Content: "ping"})
		return nil
	}

	_, err := th.SendMessage(context.Background(), "ping", nil)
	require.NoError(t, err)

	msgs := th.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m-1", msgs[2].ID)
}

func TestReceiveIgnoresOtherConversations(t *testing.T) {
	be := newFakeBackend()
	th := seededThread(t, be)

	th.Receive(model.Message{ID: "x", ConversationID: "conv2"})
	th.Receive(model.Message{ID: "m-a", ConversationID: "conv1"})
	assert.Len(t, th.Messages(), 2)
}

func TestLoadReadsEveryPage(t *testing.T) {
	be := newFakeBackend()
	const total = MessagePageTake + 60
	for i := 0; i < total; i++ {
		be.messages["conv1"] = append(be.messages["conv1"], model.Message{
			ID:             fmt.Sprintf("m%d", i),
			ConversationID: "conv1",
			Content:        "note",
		})
	}
	th := newWorkspace(counselor, be).Thread("conv1")
	require.NoError(t, th.Load(context.Background()))

	msgs := th.Messages()
	require.Len(t, msgs, total)
	assert.Equal(t, "m0", msgs[0].ID)
	assert.Equal(t, fmt.Sprintf("m%d", total-1), msgs[total-1].ID)

	sent, err := th.SendMessage(context.Background(), "latest", nil)
	require.NoError(t, err)
	msgs = th.Messages()
	require.Len(t, msgs, total+1)
	assert.Equal(t, sent.ID, msgs[total].ID)
}
