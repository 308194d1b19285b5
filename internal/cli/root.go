// Package cli wires the odatasql commands.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/koustreak/odatasql/internal/config"
	"github.com/koustreak/odatasql/internal/database/sqlserver"
	"github.com/koustreak/odatasql/internal/filestore"
	"github.com/koustreak/odatasql/internal/filestore/minio"
	"github.com/koustreak/odatasql/internal/logger"
	"github.com/koustreak/odatasql/internal/odata"
	"github.com/koustreak/odatasql/internal/schema"
	"github.com/koustreak/odatasql/internal/server"
)

// Backend is what serve and the catalog commands need from the database.
type Backend interface {
	server.Backend
	Describe(ctx context.Context, dbName, name string) (*schema.EntitySchema, error)
}

// BackendFactory builds a backend and the function that releases it.
type BackendFactory func(cfg *config.Config) (Backend, func() error, error)

// StoreFactory connects to the object store described by cfg.
type StoreFactory func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error)

type options struct {
	configPath  string
	configStore string
	logLevel    string

	cfg *config.Config

	newBackend BackendFactory
	newStore   StoreFactory
}

// Option customises the root command, mostly for tests.
type Option func(*options)

// WithBackendFactory replaces the SQL Server backend.
func WithBackendFactory(f BackendFactory) Option {
	return func(o *options) { o.newBackend = f }
}

// WithStoreFactory replaces the MinIO store.
func WithStoreFactory(f StoreFactory) Option {
	return func(o *options) { o.newStore = f }
}

// NewRootCommand builds the odatasql command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	o := &options{
		newBackend: sqlServerBackend,
		newStore:   minioStore,
	}
	for _, opt := range opts {
		opt(o)
	}

	root := &cobra.Command{
		Use:   "odatasql",
		Short: "Read-only OData v4 service for SQL Server tables and views",
		Long: `odatasql exposes the tables and views of SQL Server databases as
read-only OData v4 entity sets.

Each database gets a service document, a CSDL metadata document and one
entity collection per table or view. Keys are inferred for objects that do
not declare a primary key.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.loadConfig(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", config.DefaultPath, "config file")
	root.PersistentFlags().StringVar(&o.configStore, "config-store", "", "load config from an object store location (s3://bucket/key)")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "override log level: debug, info, warn, error")

	root.AddCommand(newServeCommand(o))
	root.AddCommand(newDatabasesCommand(o))
	root.AddCommand(newObjectsCommand(o))
	root.AddCommand(newDescribeCommand(o))
	root.AddCommand(newConfigCommand(o))
	root.AddCommand(newVersionCommand())

	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (o *options) loadConfig(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.configStore != "" {
		loc, err := filestore.ParseLocation(o.configStore)
		if err != nil {
			return err
		}
		if cfg.Store == nil {
			return fmt.Errorf("--config-store needs object store settings (store section or ODATASQL_STORE_ENDPOINT)")
		}
		store, err := o.newStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		storeCfg := cfg.Store
		if cfg, err = config.LoadFromStore(ctx, store, loc); err != nil {
			return err
		}
		if cfg.Store == nil {
			cfg.Store = storeCfg
		}
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	o.cfg = cfg
	return nil
}

// logger builds the process logger writing to w.
func (o *options) logger(w io.Writer) *logger.Logger {
	lc := *o.cfg.Log
	lc.Output = w
	return logger.New(&lc)
}

func sqlServerBackend(cfg *config.Config) (Backend, func() error, error) {
	provider := sqlserver.New(cfg.Database)
	return odata.NewService(provider, schema.NewIntrospector(nil)), provider.Close, nil
}

func minioStore(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	return minio.New(ctx, cfg)
}
