package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sheetlingo/internal/config"
	"sheetlingo/internal/fileutil"
	"sheetlingo/internal/store"
)

// glossaryFile is the YAML layout used by glossary import and export.
type glossaryFile struct {
	User  string   `yaml:"user,omitempty"`
	Terms []string `yaml:"terms"`
}

func newGlossaryCommand(ctx *commandContext) *cobra.Command {
	var user string

	glossaryCmd := &cobra.Command{
		Use:   "glossary",
		Short: "Manage brand terms that are never translated",
		Long: `Manage a user's glossary of protected brand terms.

Glossary terms are merged with the --term flags of each job; cells that
contain a protected term bypass the translation cache.`,
	}
	glossaryCmd.PersistentFlags().StringVarP(&user, "user", "u", "", "Glossary owner (default user when empty)")

	glossaryCmd.AddCommand(newGlossaryAddCommand(ctx, &user))
	glossaryCmd.AddCommand(newGlossaryListCommand(ctx, &user))
	glossaryCmd.AddCommand(newGlossaryRemoveCommand(ctx, &user))
	glossaryCmd.AddCommand(newGlossaryClearCommand(ctx, &user))
	glossaryCmd.AddCommand(newGlossaryImportCommand(ctx, &user))
	glossaryCmd.AddCommand(newGlossaryExportCommand(ctx, &user))
	return glossaryCmd
}

func newGlossaryAddCommand(ctx *commandContext, user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <term>...",
		Short: "Add protected terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				added, err := st.Glossary().Add(cmd.Context(), *user, args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d term(s) to %s's glossary\n", added, displayUser(*user))
				return nil
			})
		},
	}
}

func newGlossaryListCommand(ctx *commandContext, user *string) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List protected terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				terms, err := st.Glossary().List(cmd.Context(), *user)
				if err != nil {
					return err
				}
				if jsonOut {
					out := glossaryFile{User: displayUser(*user), Terms: make([]string, 0, len(terms))}
					for _, term := range terms {
						out.Terms = append(out.Terms, term.Term)
					}
					return writeJSON(cmd, out)
				}
				if len(terms) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s's glossary is empty\n", displayUser(*user))
					return nil
				}
				rows := make([][]string, 0, len(terms))
				for i, term := range terms {
					rows = append(rows, []string{strconv.Itoa(i + 1), term.Term, formatAge(term.CreatedAt)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Term", "Added"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newGlossaryRemoveCommand(ctx *commandContext, user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <term>",
		Short: "Remove a protected term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				removed, err := st.Glossary().Remove(cmd.Context(), *user, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("term %q is not in %s's glossary", args[0], displayUser(*user))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", args[0])
				return nil
			})
		},
	}
}

func newGlossaryClearCommand(ctx *commandContext, user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every protected term",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				removed, err := st.Glossary().Clear(cmd.Context(), *user)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d term(s)\n", removed)
				return nil
			})
		},
	}
}

func newGlossaryImportCommand(ctx *commandContext, user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Add terms from a YAML glossary file",
		Long: `Add terms from a YAML file of the form:

  user: acme
  terms:
    - Acme
    - TurboClean

The file's user is used unless --user is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read glossary file: %w", err)
			}
			var file glossaryFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse glossary file: %w", err)
			}
			owner := *user
			if strings.TrimSpace(owner) == "" {
				owner = file.User
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				added, err := st.Glossary().Add(cmd.Context(), owner, file.Terms...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d term(s) into %s's glossary\n", added, len(file.Terms), displayUser(owner))
				return nil
			})
		},
	}
}

func newGlossaryExportCommand(ctx *commandContext, user *string) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the glossary as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				terms, err := st.Glossary().Terms(cmd.Context(), *user)
				if err != nil {
					return err
				}
				file := glossaryFile{User: displayUser(*user), Terms: terms}
				if file.Terms == nil {
					file.Terms = []string{}
				}
				var buf bytes.Buffer
				enc := yaml.NewEncoder(&buf)
				enc.SetIndent(2)
				if err := enc.Encode(file); err != nil {
					return fmt.Errorf("encode glossary: %w", err)
				}
				if err := enc.Close(); err != nil {
					return fmt.Errorf("encode glossary: %w", err)
				}
				if outputPath == "" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := fileutil.WriteBytesAtomic(outputPath, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write glossary file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d term(s) to %s\n", len(terms), outputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func displayUser(user string) string {
	if trimmed := strings.TrimSpace(user); trimmed != "" {
		return trimmed
	}
	return store.DefaultUser
}
