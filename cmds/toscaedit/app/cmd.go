// Package app implements the toscaedit command.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/goutils/general"
	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"

	"github.com/mandelsoft/toscaeditor/pkg/archives"
	"github.com/mandelsoft/toscaeditor/pkg/editor"
	"github.com/mandelsoft/toscaeditor/pkg/git"
	"github.com/mandelsoft/toscaeditor/pkg/service"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/normative"
)

type Options struct {
	fs  vfs.FileSystem
	cfg *Config

	root      string
	catalog   string
	workspace string
	user      string
	email     string
	level     string

	types    *catalog.Catalog
	manager  *editor.Manager
	services service.Services
}

// New creates the command. The optional filesystem is used to
// read archives and operation files.
func New(fss ...vfs.FileSystem) *cobra.Command {
	opts := &Options{
		fs: general.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...),
	}

	maincmd := &cobra.Command{
		Use:   "toscaedit <options> <cmd> <args>",
		Short: "edit TOSCA topologies",
		Long: `
This command maintains TOSCA topologies stored in git working
copies. Types are resolved with a local type catalog, which is
initialized with the normative types.

The defaults for the options are taken from the configuration
files ~/.toscaedit, <user config dir>/.toscaedit and ./.toscaedit
and the environment variables TOSCAEDIT_ROOT, TOSCAEDIT_CATALOG,
TOSCAEDIT_WORKSPACE, TOSCAEDIT_USER and TOSCAEDIT_EMAIL.
`,
		TraverseChildren:  true,
		SilenceUsage:      true,
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return opts.Setup() },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return opts.Shutdown() },
	}

	flags := maincmd.Flags()
	flags.StringVarP(&opts.root, "root", "r", "", "working copy root directory")
	flags.StringVarP(&opts.catalog, "catalog", "C", "", "type catalog directory")
	flags.StringVarP(&opts.workspace, "workspace", "w", "", "workspace of created topologies")
	flags.StringVarP(&opts.user, "user", "u", "", "user name used for commits")
	flags.StringVarP(&opts.email, "email", "e", "", "email used for commits")
	flags.StringVarP(&opts.level, "log-level", "L", "warn", "log level")

	maincmd.AddCommand(NewParse(opts))
	maincmd.AddCommand(NewCatalog(opts))
	maincmd.AddCommand(NewCreate(opts))
	maincmd.AddCommand(NewEdit(opts))
	maincmd.AddCommand(NewHistory(opts))
	maincmd.AddCommand(NewPush(opts))
	maincmd.AddCommand(NewPull(opts))
	maincmd.AddCommand(NewVersion(opts))
	return maincmd
}

// Setup completes the options from the configuration.
func (o *Options) Setup() error {
	if err := setupLogging(o.level); err != nil {
		return err
	}
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.root = general.OptionalDefaulted(value(cfg.Root, "topologies"), o.root)
	o.catalog = general.OptionalDefaulted(value(cfg.Catalog, filepath.Join(o.root, ".catalog")), o.catalog)
	o.workspace = general.OptionalDefaulted(value(cfg.Workspace, ""), o.workspace)
	o.user = general.OptionalDefaulted(value(cfg.User, git.BotUser), o.user)
	o.email = general.OptionalDefaulted(value(cfg.Email, ""), o.email)
	return nil
}

// Catalog provides the type catalog, holding at least the normative
// types.
func (o *Options) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if o.types != nil {
		return o.types, nil
	}
	c, err := catalog.New(o.catalog, o.fs)
	if err != nil {
		return nil, err
	}
	if err := normative.Import(ctx, c); err != nil {
		return nil, err
	}
	o.types = c
	return c, nil
}

func (o *Options) Manager(ctx context.Context) (*editor.Manager, error) {
	if o.manager != nil {
		return o.manager, nil
	}
	c, err := o.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	timeout := editor.DefaultIdleTimeout
	if o.cfg != nil && o.cfg.IdleTimeout != nil {
		timeout, err = time.ParseDuration(*o.cfg.IdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid idle timeout: %w", err)
		}
	}
	g := git.New(git.Options{User: o.user, Email: o.email})
	o.manager = editor.New(archives.NewRepository(o.root, c, g), editor.Options{
		Workspace:   o.workspace,
		User:        o.user,
		Email:       o.email,
		IdleTimeout: timeout,
	})
	o.services = service.New(ctx)
	if err := o.services.Add(o.manager); err != nil {
		return nil, err
	}
	if err := o.services.Start(); err != nil {
		return nil, err
	}
	return o.manager, nil
}

// Shutdown stops the session manager, if started.
func (o *Options) Shutdown() error {
	if o.services == nil {
		return nil
	}
	o.services.Stop()
	return o.services.Wait()
}

// Credentials are the configured credentials for the remote.
func (o *Options) Credentials() *git.Credentials {
	if o.cfg == nil || o.cfg.Remote == nil {
		return nil
	}
	user := value(o.cfg.Remote.Username, "")
	pass := value(o.cfg.Remote.Password, "")
	if user == "" && pass == "" {
		return nil
	}
	return &git.Credentials{Username: user, Password: pass}
}

// RemoteURL is the configured remote repository.
func (o *Options) RemoteURL() string {
	if o.cfg == nil || o.cfg.Remote == nil {
		return ""
	}
	return value(o.cfg.Remote.URL, "")
}

func setupLogging(level string) error {
	l, err := logging.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	lctx := logging.DefaultContext()
	lctx.AddRule(logging.NewConditionRule(l, logging.NewRealmPrefix("toscaeditor")))
	return nil
}
