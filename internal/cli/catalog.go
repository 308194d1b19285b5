package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/odatasql/internal/errs"
	"github.com/koustreak/odatasql/internal/odata"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSDL  = "csdl"
)

func newDatabasesCommand(o *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "databases",
		Short: "List the user databases on the SQL Server instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withBackend(cmd, func(ctx context.Context, b Backend) error {
				names, err := b.Databases(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if format == formatJSON {
					if names == nil {
						names = []string{}
					}
					return writeJSON(out, names)
				}
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table or json")
	return cmd
}

func newObjectsCommand(o *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "objects <database>",
		Short: "List the tables and views exposed for a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withBackend(cmd, func(ctx context.Context, b Backend) error {
				objects, err := b.Objects(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if format == formatJSON {
					return writeJSON(out, objects)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SCHEMA\tNAME\tKIND")
				for _, obj := range objects {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", obj.Schema, obj.Name, obj.Kind)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table or json")
	return cmd
}

func newDescribeCommand(o *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe <database> <object>",
		Short: "Show the entity type inferred for a table or view",
		Long: `Show the entity type inferred for a table or view.

The table output marks key properties with '*'. Use -o csdl to print the
metadata document of the whole database.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withBackend(cmd, func(ctx context.Context, b Backend) error {
				out := cmd.OutOrStdout()
				if format == formatCSDL {
					doc, err := b.Metadata(ctx, odata.Context{Database: args[0]})
					if err != nil {
						return err
					}
					_, err = out.Write(doc)
					return err
				}

				entity, err := b.Describe(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(out, entity)
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tPROPERTY\tTYPE\tNULLABLE")
				for _, p := range entity.Properties {
					key := ""
					if p.IsKey {
						key = "*"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", key, p.Name, p.EdmType, p.Nullable)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or csdl")
	return cmd
}

// withBackend opens the backend for a single command and releases it.
func (o *options) withBackend(cmd *cobra.Command, fn func(context.Context, Backend) error) error {
	backend, release, err := o.newBackend(o.cfg)
	if err != nil {
		return err
	}
	defer release()

	log := o.logger(cmd.ErrOrStderr())
	if err := fn(log.WithContext(cmd.Context()), backend); err != nil {
		return errors.New(errs.Public(err))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
