package workspace

import (
	"github.com/rs/zerolog"

	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
)

// ListTake is the page size of the application list on the student page.
const ListTake = 50

// Workspace is one signed-in console session. All views it hands out share
// its cache and act as its actor.
type Workspace struct {
	actor   model.Actor
	cache   *querycache.Cache
	backend Backend
	machine *lifecycle.Machine
	log     zerolog.Logger
}

// New creates a workspace for actor.
func New(actor model.Actor, backend Backend, machine *lifecycle.Machine, log zerolog.Logger) *Workspace {
	if machine == nil {
		machine = lifecycle.NewMachine(nil)
	}
	log = log.With().
		Str("component", "workspace").
		Int("actor_id", actor.ID).
		Str("actor_role", string(actor.Role)).
		Logger()
	return &Workspace{
		actor:   actor,
		cache:   querycache.NewCache(log),
		backend: backend,
		machine: machine,
		log:     log,
	}
}

// Actor returns the session's actor.
func (w *Workspace) Actor() model.Actor { return w.actor }

// Cache exposes the shared query cache.
func (w *Workspace) Cache() *querycache.Cache { return w.cache }

// Profiles returns the student profile view.
func (w *Workspace) Profiles() *Profiles {
	return &Profiles{ws: w}
}

// Board returns the application board of one student.
func (w *Workspace) Board(studentID string) *Board {
	return &Board{ws: w, studentID: studentID}
}

// Thread returns the view of one conversation.
func (w *Workspace) Thread(conversationID string) *Thread {
	return newThread(w, conversationID)
}

func studentKey(id string) querycache.Key {
	return querycache.Tag(querycache.Students).WithID(id)
}

func applicationKey(id string) querycache.Key {
	return querycache.Tag(querycache.Applications).WithID(id)
}

func messagesKey(conversationID string) querycache.Key {
	return querycache.Tag(querycache.Messages).WithID(conversationID)
}

// ApplicationListKey is the key of the application list shown for a student.
func ApplicationListKey(studentID string) querycache.Key {
	return querycache.Tag(querycache.Applications).
		With("studentId", studentID).
		WithInt("take", ListTake)
}
