package editor

import (
	"context"
	"slices"
	"time"

	"github.com/tiendc/go-deepcopy"

	"github.com/mandelsoft/toscaeditor/pkg/archives"
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/events"
	"github.com/mandelsoft/toscaeditor/pkg/pool"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

const sessionKeyType = "session"

type session struct {
	id              string
	archive         *archives.Archive
	types           *typectx.Context
	operations      []operations.Operation
	lastOperationId string
	lastAccess      time.Time
	// digest of the saved definitions
	digest string
}

func newSession(id string, a *archives.Archive, finder catalog.Finder) (*session, error) {
	digest, err := a.Digest()
	if err != nil {
		return nil, err
	}
	return &session{
		id:         id,
		archive:    a,
		types:      typectx.New(finder, a.Topology.Dependencies...),
		lastAccess: time.Now(),
		digest:     digest,
	}, nil
}

func (s *session) touch() {
	s.lastAccess = time.Now()
}

// resetTypes recreates the type context for the current
// dependencies of the topology.
func (s *session) resetTypes(finder catalog.Finder) {
	s.types.Release()
	s.types = typectx.New(finder, s.archive.Topology.Dependencies...)
}

func (s *session) release() {
	s.types.Release()
	s.archive.Files.Reset()
}

func (s *session) result() (*Result, error) {
	r := &Result{
		LastOperationId: s.lastOperationId,
		Pending:         slices.Clone(s.operations),
		Hash:            s.archive.Hash,
	}
	digest, err := s.archive.Digest()
	if err != nil {
		return nil, err
	}
	r.Modified = digest != s.digest
	if err := deepcopy.Copy(&r.Topology, s.archive.Topology); err != nil {
		return nil, err
	}
	if err := deepcopy.Copy(&r.Csar, s.archive.Csar); err != nil {
		return nil, err
	}
	return r, nil
}

// session returns the session of a topology, opening it if required.
// The topology lock must be held.
func (m *Manager) session(ctx context.Context, id string) (*session, error) {
	m.lock.Lock()
	s := m.sessions[id]
	m.lock.Unlock()
	if s != nil {
		return s, nil
	}
	return m.open(ctx, id)
}

func (m *Manager) open(ctx context.Context, id string) (*session, error) {
	name, version, err := SplitId(id)
	if err != nil {
		return nil, err
	}
	a, err := m.repo.Load(ctx, name, version)
	if err != nil {
		return nil, err
	}
	a.Topology.Workspace = m.opts.Workspace
	s, err := newSession(id, a, m.repo.Types())
	if err != nil {
		return nil, err
	}

	m.lock.Lock()
	m.sessions[id] = s
	m.lock.Unlock()

	m.pool.EnqueueKeyAfter(pool.NewObjectKey(sessionKeyType, id), m.opts.IdleTimeout)
	log.Info("opened session for {{topology}} at {{hash}}", "topology", id, "hash", a.Hash)
	return s, nil
}

// reload replaces the session by a fresh one read from the working
// copy. The topology lock must be held.
func (m *Manager) reload(ctx context.Context, s *session) (*session, error) {
	m.release(s.id)
	return m.open(ctx, s.id)
}

// release drops the session of a topology. The topology lock must
// be held.
func (m *Manager) release(id string) bool {
	m.lock.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.lock.Unlock()

	if s == nil {
		return false
	}
	s.release()
	log.Debug("released session for {{topology}} with {{count}} pending operations", "topology", id, "count", len(s.operations))
	return true
}

// Sessions lists the ids of the open sessions.
func (m *Manager) Sessions() []string {
	m.lock.Lock()
	defer m.lock.Unlock()
	list := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		list = append(list, id)
	}
	slices.Sort(list)
	return list
}

// evictionAction evicts sessions not used for the idle timeout.
type evictionAction struct {
	pool.DefaultAction
	manager *Manager
}

func (a *evictionAction) Reconcile(p pool.Pool, _ pool.MessageContext, key pool.ObjectKey) pool.Status {
	m := a.manager
	if !m.locks.TryLock(key.Name) {
		return pool.StatusCompleted().RescheduleAfter(time.Second)
	}
	defer m.locks.Unlock(key.Name)

	m.lock.Lock()
	s := m.sessions[key.Name]
	m.lock.Unlock()
	if s == nil {
		return pool.StatusCompleted().Stop()
	}
	if idle := time.Since(s.lastAccess); idle < m.opts.IdleTimeout {
		return pool.StatusCompleted().RescheduleAfter(m.opts.IdleTimeout - idle)
	}
	m.release(key.Name)
	log.Info("evicted idle session for {{topology}}", "topology", key.Name)
	m.trigger(events.SessionEvicted, key.Name)
	return pool.StatusCompleted().Stop()
}
