// Package git maintains the working copies topologies are stored in.
// Repository access uses go-git, stash and merge use the git command.
package git

import (
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/goombaio/namegenerator"
	"github.com/mandelsoft/goutils/errors"
	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
)

var REALM = logging.DefineRealm("toscaeditor/git", "git working copies")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

const (
	DefaultRemote = "origin"
	DefaultBranch = "master"

	DefaultUser = "undefinedUser"
	BotUser     = "a4c-bot"
	BotEmail    = "a4c-bot@robot.org"

	InitialCommitMessage = "initial commit"
	ConflictBranchPrefix = "alien-conflicts"
	SwitchBranchPrefix   = "a4c-switch"

	ReadmeFile = "readme.txt"
)

// Credentials for a remote. Tokens are passed as user name with an
// empty password.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

func (c *Credentials) auth() transport.AuthMethod {
	if c == nil || (c.Username == "" && c.Password == "") {
		return nil
	}
	return &http.BasicAuth{Username: c.Username, Password: c.Password}
}

// Commit is an entry of the commit history.
type Commit struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Email   string    `json:"email"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

func commitOf(c *object.Commit) Commit {
	return Commit{
		Hash:    c.Hash.String(),
		Author:  c.Author.Name,
		Email:   c.Author.Email,
		Message: c.Message,
		Time:    c.Author.When,
	}
}

type Options struct {
	// User and Email are used for commits created by merges.
	User  string
	Email string
	// Command is the git executable, git by default.
	Command string
}

type Manager struct {
	opts Options

	lock  sync.Mutex
	names namegenerator.Generator
}

func New(opts Options) *Manager {
	if opts.Command == "" {
		opts.Command = "git"
	}
	if opts.User == "" {
		opts.User = BotUser
	}
	if opts.Email == "" {
		opts.Email = BotEmail
	}
	return &Manager{
		opts:  opts,
		names: namegenerator.NewNameGenerator(time.Now().UTC().UnixNano()),
	}
}

func (m *Manager) tempName(prefix string) string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return prefix + "-" + m.names.Generate()
}

func signature(user, email string) *object.Signature {
	if user == "" {
		user = DefaultUser
	}
	if email == "" {
		email = user + "@undefined.org"
	}
	return &object.Signature{Name: user, Email: email, When: time.Now()}
}

// Init creates a repository. With readme content, the readme file is
// committed as initial commit.
func (m *Manager) Init(path string, readme string) (*gogit.Repository, error) {
	if err := osfs.OsFs.MkdirAll(path, 0o755); err != nil {
		return nil, wrap("init", path, err)
	}
	repo, err := gogit.PlainInit(path, false)
	if err != nil {
		return nil, wrap("init", path, err)
	}
	if readme != "" {
		if err := vfs.WriteFile(osfs.OsFs, filepath.Join(path, ReadmeFile), []byte(readme), 0o644); err != nil {
			return nil, wrap("init", path, err)
		}
		if _, err := commit(repo, path, BotUser, BotEmail, InitialCommitMessage); err != nil {
			return nil, err
		}
	}
	log.Info("initialized repository {{path}}", "path", path)
	return repo, nil
}

// Open opens an existing repository. It returns nil if there
// is none.
func (m *Manager) Open(path string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, wrap("open", path, err)
	}
	return repo, nil
}

func (m *Manager) open(path string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, wrap("open", path, err)
	}
	return repo, nil
}

// CommitAll stages all changes including deletions and commits
// them. Without changes no commit is created. It returns the
// head commit.
func (m *Manager) CommitAll(path, user, email, message string) (string, error) {
	repo, err := m.open(path)
	if err != nil {
		return "", err
	}
	return commit(repo, path, user, email, message)
}

func commit(repo *gogit.Repository, path, user, email, message string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", wrap("commit", path, err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return "", wrap("add", path, err)
	}
	st, err := wt.Status()
	if err != nil {
		return "", wrap("status", path, err)
	}
	for p, s := range st {
		if s.Worktree == gogit.Deleted {
			if _, err := wt.Remove(p); err != nil {
				return "", wrap("rm", path, err)
			}
		}
	}
	if st.IsClean() {
		return head(repo, path)
	}
	sig := signature(user, email)
	h, err := wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", wrap("commit", path, err)
	}
	log.Debug("committed {{hash}} in {{path}}", "hash", h.String(), "path", path)
	return h.String(), nil
}

// Head returns the hash of the head commit or an empty string for
// a repository without commits.
func (m *Manager) Head(path string) (string, error) {
	repo, err := m.open(path)
	if err != nil {
		return "", err
	}
	return head(repo, path)
}

func head(repo *gogit.Repository, path string) (string, error) {
	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", wrap("head", path, err)
	}
	return ref.Hash().String(), nil
}

// History lists count commits of the current branch, newest first,
// skipping the first from ones. A negative count lists all.
func (m *Manager) History(path string, from, count int) ([]Commit, error) {
	var list []Commit
	i := 0
	err := m.log(path, func(c *object.Commit) error {
		if count >= 0 && len(list) >= count {
			return storer.ErrStop
		}
		if i >= from {
			list = append(list, commitOf(c))
		}
		i++
		return nil
	})
	return list, err
}

// Since lists the commits after the given one, newest first.
func (m *Manager) Since(path string, hash string) ([]Commit, error) {
	var list []Commit
	err := m.log(path, func(c *object.Commit) error {
		if c.Hash.String() == hash {
			return storer.ErrStop
		}
		list = append(list, commitOf(c))
		return nil
	})
	return list, err
}

func (m *Manager) log(path string, f func(c *object.Commit) error) error {
	repo, err := m.open(path)
	if err != nil {
		return err
	}
	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		return wrap("log", path, err)
	}
	iter, err := repo.Log(&gogit.LogOptions{From: ref.Hash()})
	if err != nil {
		return wrap("log", path, err)
	}
	defer iter.Close()
	return wrap("log", path, iter.ForEach(f))
}

// Reset discards all uncommitted changes including untracked files.
func (m *Manager) Reset(path string) error {
	repo, err := m.open(path)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return wrap("reset", path, err)
	}
	if h, err := head(repo, path); err != nil || h == "" {
		return err
	}
	if err := wt.Reset(&gogit.ResetOptions{Mode: gogit.HardReset}); err != nil {
		return wrap("reset", path, err)
	}
	return wrap("clean", path, wt.Clean(&gogit.CleanOptions{Dir: true}))
}

// Clean removes the working copy.
func (m *Manager) Clean(path string) error {
	log.Info("removing working copy {{path}}", "path", path)
	return wrap("clean", path, osfs.OsFs.RemoveAll(path))
}

// SetRemote sets the url of a remote.
func (m *Manager) SetRemote(path, name, url string) error {
	repo, err := m.open(path)
	if err != nil {
		return err
	}
	if err := repo.DeleteRemote(name); err != nil && !errors.Is(err, gogit.ErrRemoteNotFound) {
		return wrap("remote", path, err)
	}
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	return wrap("remote", path, err)
}

// CurrentBranch returns the checked out branch, or an empty string
// for a detached head.
func (m *Manager) CurrentBranch(path string) (string, error) {
	repo, err := m.open(path)
	if err != nil {
		return "", err
	}
	return currentBranch(repo, path)
}

func currentBranch(repo *gogit.Repository, path string) (string, error) {
	ref, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", wrap("head", path, err)
	}
	if ref.Type() == plumbing.SymbolicReference && ref.Target().IsBranch() {
		return ref.Target().Short(), nil
	}
	return "", nil
}

func hasReference(repo *gogit.Repository, name plumbing.ReferenceName) bool {
	_, err := repo.Reference(name, true)
	return err == nil
}

// IsBranch reports whether a local or remote tracking branch
// exists.
func (m *Manager) IsBranch(path, name string) (bool, error) {
	repo, err := m.open(path)
	if err != nil {
		return false, err
	}
	return hasReference(repo, plumbing.NewBranchReferenceName(name)) ||
		hasReference(repo, plumbing.NewRemoteReferenceName(DefaultRemote, name)), nil
}

func (m *Manager) IsTag(path, name string) (bool, error) {
	repo, err := m.open(path)
	if err != nil {
		return false, err
	}
	return hasReference(repo, plumbing.NewTagReferenceName(name)), nil
}
