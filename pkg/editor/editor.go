// Package editor manages the edition sessions of topologies.
//
// A session holds the topology of a working copy together with the
// operations applied since the last save. Operations for a topology
// are serialized, a client must name the last operation it has seen.
// Sessions not used for the idle timeout are evicted, pending
// operations are lost then.
package editor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mandelsoft/goutils/errors"
	"github.com/mandelsoft/logging"
	"github.com/tiendc/go-deepcopy"

	"github.com/mandelsoft/toscaeditor/pkg/archives"
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/editor/processors"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/events"
	"github.com/mandelsoft/toscaeditor/pkg/future"
	"github.com/mandelsoft/toscaeditor/pkg/git"
	"github.com/mandelsoft/toscaeditor/pkg/locks"
	"github.com/mandelsoft/toscaeditor/pkg/pool"
	"github.com/mandelsoft/toscaeditor/pkg/service"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
	"github.com/mandelsoft/toscaeditor/pkg/workflow"
)

var REALM = logging.DefineRealm("toscaeditor/editor", "topology edition sessions")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

const DefaultIdleTimeout = 30 * time.Minute

// Options configure a Manager.
type Options struct {
	// Workspace is reported with the topology events.
	Workspace string
	// User and Email are used for commits of operations without author.
	User  string
	Email string
	// IdleTimeout is the time after which an unused session is evicted.
	IdleTimeout time.Duration
	// Registry handles the topology operations,
	// processors.DefaultRegistry by default.
	Registry *processors.Registry
}

// Result is the state of a session after a call. The topology is a
// copy owned by the caller.
type Result struct {
	Csar            *model.Csar
	Topology        *model.Topology
	LastOperationId string
	Pending         []operations.Operation
	// Hash is the last saved commit.
	Hash string
	// Modified reports whether the topology differs from the saved
	// definitions.
	Modified bool
}

// RecoverResult additionally lists the commits the working copy is
// ahead of the recovered session, newest first.
type RecoverResult struct {
	Result
	Commits []git.Commit
}

type Manager struct {
	opts      Options
	repo      *archives.Repository
	workflows *workflow.Builder

	lock     sync.Mutex
	sessions map[string]*session
	locks    *locks.ElementLocks[string]

	pool    pool.Pool
	events  events.HandlerRegistry[events.TopologyEvent]
	futures future.EventManager[string, string]
}

var _ service.Service = (*Manager)(nil)

func New(repo *archives.Repository, opts Options) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Registry == nil {
		opts.Registry = processors.DefaultRegistry
	}
	m := &Manager{
		opts:      opts,
		repo:      repo,
		workflows: workflow.New(),
		sessions:  map[string]*session{},
		locks:     locks.NewElementLocks[string](),
		pool:      pool.NewPool(logging.DefaultContext(), "sessions", 1, 0),
		events:    events.NewHandlerRegistry[events.TopologyEvent](),
		futures:   future.NewEventManager[string, string](),
	}
	m.pool.AddAction(pool.ObjectType(sessionKeyType), &evictionAction{manager: m})
	m.events.RegisterHandler(&deletionHandler{manager: m}, events.TopologyDeleted, opts.Workspace)
	return m
}

// Start starts the eviction of idle sessions.
func (m *Manager) Start(ctx context.Context) (service.Syncher, service.Syncher, error) {
	return m.pool.Start(ctx)
}

func (m *Manager) Wait() error {
	return m.pool.Wait()
}

// Events is the registry for topology event subscribers.
func (m *Manager) Events() events.HandlerRegistration[events.TopologyEvent] {
	return m.events
}

// Future provides a future for the next event of the given type
// for a topology.
func (m *Manager) Future(event, id string) future.Future {
	return m.futures.Future(event, id)
}

func (m *Manager) Repository() *archives.Repository {
	return m.repo
}

func (m *Manager) trigger(typ, id string) {
	m.futures.Trigger(log, typ, id)
	m.events.TriggerEvent(events.TopologyEvent{Type: typ, Workspace: m.opts.Workspace, Topology: id})
}

// SplitId splits a topology id into archive name and version.
func SplitId(id string) (string, string, error) {
	name, version, ok := strings.Cut(id, ":")
	if !ok || name == "" || version == "" {
		return "", "", errkind.ErrInvalidArgument("invalid topology id %q", id)
	}
	return name, version, nil
}

// Create creates a topology with the standard workflows.
func (m *Manager) Create(ctx context.Context, name, version, author, description string) (*Result, error) {
	topo := model.NewTopology(name, version, m.opts.Workspace)
	topo.Description = description
	err := typectx.Run(ctx, m.repo.Types(), nil, true, func(ctx context.Context) error {
		return m.workflows.InitWorkflows(ctx, topo)
	})
	if err != nil {
		return nil, err
	}
	csar := &model.Csar{Name: name, Version: version, Workspace: m.opts.Workspace, Description: description, Author: author}
	if _, err := m.repo.Create(csar, topo, m.user(author), m.opts.Email); err != nil {
		return nil, err
	}
	m.trigger(events.TopologyCreated, topo.Id())
	return m.Get(ctx, topo.Id())
}

func (m *Manager) user(author string) string {
	if author != "" {
		return author
	}
	return m.opts.User
}

// run executes f with the session of the topology while holding the
// topology lock.
func (m *Manager) run(ctx context.Context, id string, f func(s *session) error) error {
	if err := m.locks.Lock(ctx, id); err != nil {
		return err
	}
	defer m.locks.Unlock(id)
	s, err := m.session(ctx, id)
	if err != nil {
		return err
	}
	s.touch()
	return f(s)
}

// Get returns the current state of the session.
func (m *Manager) Get(ctx context.Context, id string) (*Result, error) {
	var r *Result
	err := m.run(ctx, id, func(s *session) error {
		var err error
		r, err = s.result()
		return err
	})
	return r, err
}

// Execute applies an operation. The previous operation id must be
// the id of the last operation of the session, empty for a fresh one.
func (m *Manager) Execute(ctx context.Context, id, previousOperationId string, op operations.Operation) (*Result, error) {
	var r *Result
	err := m.run(ctx, id, func(s *session) error {
		if previousOperationId != s.lastOperationId {
			return errkind.Newf(errkind.EditionConcurrency, "operation %q is not the last operation of topology %s", previousOperationId, id)
		}
		op.SetPreviousOperationId(previousOperationId)
		if op.GetAuthor() == "" {
			op.SetAuthor(m.opts.User)
		}

		var err error
		if sop, ok := op.(operations.SessionOperation); ok {
			r, err = m.sessionOperation(ctx, s, sop)
			return err
		}
		if err := m.process(ctx, s, op); err != nil {
			return err
		}
		r, err = s.result()
		return err
	})
	return r, err
}

// process applies a topology operation. A failed operation leaves
// the session unchanged.
func (m *Manager) process(ctx context.Context, s *session, op operations.Operation) error {
	var topo *model.Topology
	if err := deepcopy.Copy(&topo, s.archive.Topology); err != nil {
		return err
	}
	csar := *s.archive.Csar
	files, err := s.archive.Files.State()
	if err != nil {
		return err
	}

	e := &processors.Edition{
		Context:    typectx.With(ctx, s.types),
		Csar:       s.archive.Csar,
		Topology:   s.archive.Topology,
		Repository: m.repo.Types(),
		Workflows:  m.workflows,
		Files:      s.archive.Files,
	}
	if err := m.opts.Registry.Process(e, op); err != nil {
		*s.archive.Topology = *topo
		*s.archive.Csar = csar
		if rerr := s.archive.Files.Restore(files); rerr != nil {
			log.Error("cannot restore pending files of {{topology}}", "topology", s.id, "error", rerr)
		}
		s.resetTypes(m.repo.Types())
		log.Debug("operation {{operation}} failed for {{topology}}: {{error}}", "operation", op.GetType(), "topology", s.id, "error", err.Error())
		return err
	}
	op.SetId(uuid.NewString())
	s.operations = append(s.operations, op)
	s.lastOperationId = op.GetId()
	return nil
}

func (m *Manager) sessionOperation(ctx context.Context, s *session, op operations.SessionOperation) (*Result, error) {
	switch o := op.(type) {
	case *operations.GitCommit:
		if err := m.save(s, o.Message); err != nil {
			return nil, err
		}
		return s.result()
	case *operations.RecoverTopology:
		r, err := m.recover(ctx, s)
		if err != nil {
			return nil, err
		}
		return &r.Result, nil
	case *operations.GitPush:
		if err := m.push(ctx, s, credentials(o.RemoteRef), o.RemoteBranch); err != nil {
			return nil, err
		}
		return s.result()
	case *operations.GitPull:
		n, err := m.pull(ctx, s, credentials(o.RemoteRef), o.RemoteBranch)
		if err != nil {
			return nil, err
		}
		return n.result()
	default:
		return nil, errkind.ErrInvalidArgument("unknown session operation %q", op.GetType())
	}
}

func credentials(r operations.RemoteRef) *git.Credentials {
	if r.Username == "" && r.Password == "" {
		return nil
	}
	return &git.Credentials{Username: r.Username, Password: r.Password}
}

// Save commits the pending operations. The last operation id must
// match the session.
func (m *Manager) Save(ctx context.Context, id, lastOperationId string) (*Result, error) {
	var r *Result
	err := m.run(ctx, id, func(s *session) error {
		if lastOperationId != s.lastOperationId {
			return errkind.Newf(errkind.EditionConcurrency, "operation %q is not the last operation of topology %s", lastOperationId, id)
		}
		if err := m.save(s, ""); err != nil {
			return err
		}
		var err error
		r, err = s.result()
		return err
	})
	return r, err
}

func (m *Manager) save(s *session, message string) error {
	author := m.opts.User
	if n := len(s.operations); n > 0 {
		author = m.user(s.operations[n-1].GetAuthor())
	}
	msg := CommitMessage(s.id, message, s.operations)
	if _, err := m.repo.Save(s.archive, author, m.opts.Email, msg); err != nil {
		return err
	}
	digest, err := s.archive.Digest()
	if err != nil {
		return err
	}
	s.digest = digest
	s.operations = nil
	m.trigger(events.TopologySaved, s.id)
	return nil
}

// CommitMessage combines the commit messages of the operations.
func CommitMessage(id, message string, ops []operations.Operation) string {
	var lines []string
	for _, o := range ops {
		if msg := o.CommitMessage(); msg != "" {
			lines = append(lines, msg)
		}
	}
	if message == "" {
		switch len(lines) {
		case 0:
			return "update topology " + id
		case 1:
			return lines[0]
		default:
			message = "update topology " + id
		}
	}
	if len(lines) == 0 {
		return message
	}
	return message + "\n\n" + strings.Join(lines, "\n")
}

// Reset discards the pending operations and the uncommitted changes
// of the working copy and reloads the topology.
func (m *Manager) Reset(ctx context.Context, id string) (*Result, error) {
	var r *Result
	err := m.run(ctx, id, func(s *session) error {
		name, version, _ := SplitId(id)
		if err := m.repo.Reset(name, version); err != nil {
			return err
		}
		n, err := m.reload(ctx, s)
		if err != nil {
			return err
		}
		r, err = n.result()
		return err
	})
	return r, err
}

// Recover rebuilds the session from the working copy, which may
// have been changed outside the session.
func (m *Manager) Recover(ctx context.Context, id string) (*RecoverResult, error) {
	var r *RecoverResult
	err := m.run(ctx, id, func(s *session) error {
		var err error
		r, err = m.recover(ctx, s)
		return err
	})
	return r, err
}

func (m *Manager) recover(ctx context.Context, s *session) (*RecoverResult, error) {
	commits, err := m.repo.Git().Since(s.archive.Dir, s.archive.Hash)
	if err != nil {
		return nil, err
	}
	n, err := m.reload(ctx, s)
	if err != nil {
		return nil, err
	}
	r, err := n.result()
	if err != nil {
		return nil, err
	}
	log.Info("recovered topology {{topology}} with {{count}} new commits", "topology", s.id, "count", len(commits))
	return &RecoverResult{Result: *r, Commits: commits}, nil
}

// Push pushes the saved state of the topology.
func (m *Manager) Push(ctx context.Context, id string, creds *git.Credentials, remoteBranch string) (*Result, error) {
	var r *Result
	err := m.run(ctx, id, func(s *session) error {
		if err := m.push(ctx, s, creds, remoteBranch); err != nil {
			return err
		}
		var err error
		r, err = s.result()
		return err
	})
	return r, err
}

func (m *Manager) push(ctx context.Context, s *session, creds *git.Credentials, remoteBranch string) error {
	if len(s.operations) > 0 {
		return errkind.ErrInvalidArgument("topology %s has %d unsaved operations", s.id, len(s.operations))
	}
	err := m.repo.Git().Push(ctx, s.archive.Dir, creds, remoteBranch)
	if git.IsConflictError(err) {
		// the local branch has been reset to the remote state
		if _, rerr := m.reload(ctx, s); rerr != nil {
			return errors.Wrapf(rerr, "reload after push conflict")
		}
	}
	return err
}

// Pull merges the remote changes and reloads the topology.
func (m *Manager) Pull(ctx context.Context, id string, creds *git.Credentials, remoteBranch string) (*Result, error) {
	var r *Result
	err := m.run(ctx, id, func(s *session) error {
		n, err := m.pull(ctx, s, creds, remoteBranch)
		if err != nil {
			return err
		}
		r, err = n.result()
		return err
	})
	return r, err
}

func (m *Manager) pull(ctx context.Context, s *session, creds *git.Credentials, remoteBranch string) (*session, error) {
	if len(s.operations) > 0 {
		return nil, errkind.ErrInvalidArgument("topology %s has %d unsaved operations", s.id, len(s.operations))
	}
	if err := m.repo.Git().Pull(ctx, s.archive.Dir, creds, remoteBranch); err != nil {
		return nil, err
	}
	return m.reload(ctx, s)
}

// History lists the saved versions of a topology. It does not
// require a session.
func (m *Manager) History(id string, from, count int) ([]git.Commit, error) {
	name, version, err := SplitId(id)
	if err != nil {
		return nil, err
	}
	return m.repo.History(name, version, from, count)
}

// Close discards the session of a topology.
func (m *Manager) Close(ctx context.Context, id string) error {
	if err := m.locks.Lock(ctx, id); err != nil {
		return err
	}
	defer m.locks.Unlock(id)
	m.release(id)
	return nil
}

// Delete deletes a topology. The subscribers of the deletion event
// close the session and remove the working copy.
func (m *Manager) Delete(ctx context.Context, id string) error {
	name, version, err := SplitId(id)
	if err != nil {
		return err
	}
	if err := m.locks.Lock(ctx, id); err != nil {
		return err
	}
	defer m.locks.Unlock(id)
	if !m.repo.Exists(name, version) {
		return errkind.ErrNotFound("topology", id)
	}
	m.trigger(events.TopologyDeleted, id)
	if m.repo.Exists(name, version) {
		return errkind.Newf(errkind.InvalidArgument, "topology %s could not be deleted", id)
	}
	return nil
}

type deletionHandler struct {
	manager *Manager
}

// HandleEvent is called with the topology lock held by Delete.
func (h *deletionHandler) HandleEvent(e events.TopologyEvent) {
	h.manager.release(e.Topology)
	name, version, err := SplitId(e.Topology)
	if err != nil {
		return
	}
	if err := h.manager.repo.Delete(name, version); err != nil {
		log.LogError(err, "cannot delete working copy of {{topology}}", "topology", e.Topology)
		return
	}
	log.Info("deleted topology {{topology}}", "topology", e.Topology)
}
