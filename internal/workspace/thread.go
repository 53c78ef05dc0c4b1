package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
)

// ErrSendInFlight is returned when a message is sent while the previous one
// is still pending.
var ErrSendInFlight = errors.New("a message is already being sent")

// Thread is the message list and composer of one conversation.
type Thread struct {
	ws             *Workspace
	conversationID string
	now            func() time.Time
	newID          func() string

	mu       sync.Mutex
	messages []model.Message
	pending  *model.Message
	journal  lifecycle.Journal[model.Message]
	draft    string
	sending  bool
}

func newThread(ws *Workspace, conversationID string) *Thread {
	return &Thread{
		ws:             ws,
		conversationID: conversationID,
		now:            time.Now,
		newID:          func() string { return "local-" + uuid.NewString() },
	}
}

// ConversationID returns the conversation the thread shows.
func (t *Thread) ConversationID() string { return t.conversationID }

// MessagePageTake is the page size used to walk a conversation's history.
const MessagePageTake = 200

// Load replaces the local list with the server's full history, keeping a
// message that is still being sent at the end.
func (t *Thread) Load(ctx context.Context) error {
	var msgs []model.Message
	for page := 1; ; page++ {
		key := messagesKey(t.conversationID).WithInt("page", page).WithInt("take", MessagePageTake)
		p, err := t.ws.backend.Fetch(ctx, key)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", key, err)
		}
		var batch []model.Message
		if err := json.Unmarshal(p.Data, &batch); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		msgs = append(msgs, batch...)
		if p.Meta == nil || !p.Meta.HasNextPage || len(batch) == 0 {
			break
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = msgs
	if t.pending != nil {
		t.messages = append(t.messages, *t.pending)
	}
	t.ws.log.Debug().
		Str("conversation_id", t.conversationID).
		Int("messages", len(msgs)).
		Msg("Thread loaded")
	return nil
}

// Messages returns a copy of the local list in display order.
func (t *Thread) Messages() []model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// SetDraft updates the composer text.
func (t *Thread) SetDraft(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draft = s
}

// Draft returns the composer text.
func (t *Thread) Draft() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draft
}

// Receive applies a message pushed by the server stream. Messages already
// in the list are ignored.
func (t *Thread) Receive(m model.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m.ConversationID != t.conversationID || t.indexLocked(m.ID) >= 0 {
		return
	}
	t.messages = append(t.messages, m)
}

// SendMessage appends the message locally before the server has accepted
// it. Files are uploaded first. If anything fails the local entry is popped
// again and the error returned; the composer stays cleared either way.
func (t *Thread) SendMessage(ctx context.Context, content string, files []UploadFile) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if err := lifecycle.ValidateMessage(content, len(files)); err != nil {
		return nil, err
	}
	if !t.ws.actor.Can(model.PermissionConversationsWrite) {
		return nil, lifecycle.ErrForbidden
	}

	optimistic, err := t.begin(content, files)
	if err != nil {
		return nil, err
	}

	sent, err := t.deliver(ctx, content, files)
	if err != nil {
		t.rollback()
		t.ws.log.Warn().Err(err).Str("conversation_id", t.conversationID).Msg("Message send failed")
		return nil, err
	}

	t.commit(optimistic.ID, sent)
	return sent, nil
}

func (t *Thread) begin(content string, files []UploadFile) (model.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sending {
		return model.Message{}, ErrSendInFlight
	}
	t.sending = true

	placeholders := make([]model.StoredFile, len(files))
	for i, f := range files {
		placeholders[i] = model.StoredFile{OriginalName: f.Name}
	}
	m := model.Message{
		ID:             t.newID(),
		ConversationID: t.conversationID,
		Content:        content,
		Files:          placeholders,
		Sender:         t.ws.actor.Sender(),
		CreatedAt:      t.now().UTC(),
	}

	t.messages = append(t.messages, m)
	t.pending = &m
	t.draft = ""
	id := m.ID
	t.journal.Push(m, func() { t.removeLocked(id) })
	return m, nil
}

func (t *Thread) deliver(ctx context.Context, content string, files []UploadFile) (*model.Message, error) {
	req := model.SendMessageRequest{Content: content, Files: []model.StoredFile{}}
	if len(files) > 0 {
		stored, err := t.ws.backend.Upload(ctx, files)
		if err != nil {
			return nil, err
		}
		req.Files = stored
	}

	var sent model.Message
	err := mutate(ctx, t.ws.backend, Mutation{
		Method: http.MethodPost,
		Path:   "/api/v1/conversations/" + t.conversationID + "/messages",
		Body:   req,
	}, &sent)
	if err != nil {
		return nil, err
	}
	return &sent, nil
}

func (t *Thread) rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal.Rollback()
	t.pending = nil
	t.sending = false
}

// commit swaps the optimistic entry for the server's record in place. If
// the stream already delivered the record, the optimistic entry is dropped.
func (t *Thread) commit(localID string, sent *model.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal.Commit()
	t.pending = nil
	t.sending = false

	i := t.indexLocked(localID)
	if i < 0 {
		return
	}
	if t.indexLocked(sent.ID) >= 0 {
		t.removeLocked(localID)
		return
	}
	t.messages[i] = *sent
}

func (t *Thread) indexLocked(id string) int {
	for i := range t.messages {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Thread) removeLocked(id string) {
	if i := t.indexLocked(id); i >= 0 {
		t.messages = append(t.messages[:i], t.messages[i+1:]...)
	}
}
