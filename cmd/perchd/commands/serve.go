package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/perchdav/perch/internal/logger"
	"github.com/perchdav/perch/internal/server"
	"github.com/perchdav/perch/pkg/config"
	"github.com/perchdav/perch/pkg/dav/acl"
	"github.com/perchdav/perch/pkg/principal"
	badgerstore "github.com/perchdav/perch/pkg/storage/badger"
	"github.com/perchdav/perch/pkg/storage/memory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Perch server",
	Long: `Start the Perch server with the specified configuration.

Use --config to specify a configuration file; without one the defaults
and the PERCH_* environment apply.

Examples:
  # Start with defaults (in-memory property store, port 8008)
  perchd serve

  # Start with a config file
  perchd serve --config /etc/perch/config.yaml

  # Override a setting from the environment
  PERCH_LOGGING_LEVEL=DEBUG perchd serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Resource tree, optionally backed by a durable property store.
	var treeOpts []memory.Option
	if cfg.Storage.Backend == "badger" {
		store, err := badgerstore.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("property store close failed", "error", err)
			}
		}()
		treeOpts = append(treeOpts, memory.WithPropertyFactory(store.ForResource))
	}
	tree := memory.NewTree(treeOpts...)

	directory, err := principal.NewDirectory(tree)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := acl.NewEngine(tree, acl.NewMetrics(registry))

	if cfg.Auth.AdminUser != "" {
		if err := bootstrapAdmin(ctx, engine, tree, directory, cfg.Auth); err != nil {
			return err
		}
	}

	var tokens *principal.TokenService
	if cfg.Auth.JWTSecret != "" {
		tokens, err = principal.NewTokenService(cfg.Auth.JWTSecret, "perch", 0)
		if err != nil {
			return err
		}
	}

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = registry
	}

	srv := server.New(server.Options{
		Engine:          engine,
		Resolver:        tree,
		Directory:       directory,
		Tokens:          tokens,
		Realm:           cfg.Auth.Realm,
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Metrics:         gatherer,
	})

	logger.Info("perchd starting",
		"version", Version,
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage.Backend)

	return srv.Run(ctx)
}

// bootstrapAdmin creates the administrator principal and stores a root
// ACL granting it every privilege, alongside the read-for-all entry the
// root would otherwise default to. Both entries are protected and
// propagate down the tree.
func bootstrapAdmin(
	ctx context.Context,
	engine *acl.Engine,
	tree *memory.Tree,
	directory *principal.Directory,
	auth config.AuthConfig,
) error {
	adminURL, err := directory.AddUser(auth.AdminUser, auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("create admin principal: %w", err)
	}

	root, err := tree.Resolve(ctx, "/")
	if err != nil {
		return err
	}

	if _, stored, err := engine.StoredACL(ctx, root); err != nil {
		return err
	} else if stored {
		// A durable store already carries a root ACL; leave it alone.
		logger.Info("root acl already present, skipping admin grant")
		return nil
	}

	rootACL := &acl.ACL{ACEs: []acl.ACE{
		{
			Principal:   acl.Href(adminURL),
			Privileges:  []acl.Privilege{acl.PrivAll},
			Allow:       true,
			Protected:   true,
			Inheritable: true,
		},
		{
			Principal:   acl.All(),
			Privileges:  []acl.Privilege{acl.PrivRead},
			Allow:       true,
			Protected:   true,
			Inheritable: true,
		},
	}}
	if err := engine.SetACL(ctx, root, rootACL); err != nil {
		return fmt.Errorf("store root acl: %w", err)
	}

	logger.Info("admin principal provisioned", "principal", adminURL)
	return nil
}
