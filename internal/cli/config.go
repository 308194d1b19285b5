package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/koustreak/odatasql/internal/config"
	"github.com/koustreak/odatasql/internal/filestore"
)

type initOptions struct {
	server   string
	port     int
	username string
	password string
	driver   string
	listen   string
	toStore  string
	force    bool
}

func newConfigCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the odatasql configuration file",
		// Subcommands load what they need themselves.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.AddCommand(newConfigInitCommand(o), newConfigShowCommand(o))
	return cmd
}

func newConfigInitCommand(o *options) *cobra.Command {
	var in initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with connection settings",
		Long: `Write a configuration file with connection settings.

Values not given as flags keep their defaults. The file is written to
--config, or uploaded to an object store location with --to-store. An
existing local file is only replaced with --force.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if in.server != "" {
				cfg.Database.Server = in.server
			}
			if in.port != 0 {
				cfg.Database.Port = in.port
			}
			if in.username != "" {
				cfg.Database.Username = in.username
			}
			if in.password != "" {
				cfg.Database.Password = in.password
			}
			if in.driver != "" {
				cfg.Database.Driver = in.driver
			}
			if in.listen != "" {
				cfg.Server.Addr = in.listen
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if in.toStore != "" {
				return o.initToStore(cmd, cfg, in.toStore)
			}

			if _, err := os.Stat(o.configPath); err == nil && !in.force {
				return fmt.Errorf("%s already exists, use --force to replace it", o.configPath)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := cfg.Save(o.configPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "Configuration written to %s\n", o.configPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.server, "server", "", "SQL Server host, optionally host\\instance")
	f.IntVar(&in.port, "port", 0, "SQL Server port")
	f.StringVar(&in.username, "username", "", "SQL login")
	f.StringVar(&in.password, "password", "", "SQL password")
	f.StringVar(&in.driver, "driver", "", "ODBC driver name, kept for compatibility")
	f.StringVar(&in.listen, "listen", "", "HTTP listen address")
	f.StringVar(&in.toStore, "to-store", "", "upload to an object store location (s3://bucket/key) instead of --config")
	f.BoolVar(&in.force, "force", false, "replace an existing config file")
	return cmd
}

func (o *options) initToStore(cmd *cobra.Command, cfg *config.Config, raw string) error {
	loc, err := filestore.ParseLocation(raw)
	if err != nil {
		return err
	}

	// Store credentials come from the environment or the local config.
	local, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if local.Store == nil {
		return fmt.Errorf("--to-store needs object store settings (store section or ODATASQL_STORE_ENDPOINT)")
	}

	store, err := o.newStore(cmd.Context(), local.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := cfg.SaveToStore(cmd.Context(), store, loc); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration uploaded to %s\n", loc)
	return nil
}

func newConfigShowCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.loadConfig(cmd.Context()); err != nil {
				return err
			}
			shown := *o.cfg
			db := *shown.Database
			if db.Password != "" {
				db.Password = "********"
			}
			shown.Database = &db
			if shown.Store != nil {
				st := *shown.Store
				if st.SecretKey != "" {
					st.SecretKey = "********"
				}
				shown.Store = &st
			}

			data, err := shown.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
