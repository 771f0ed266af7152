package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"docarchive/internal/app"
	"docarchive/internal/config"
	"docarchive/internal/model"
	"docarchive/internal/session"
)

// cli carries the state shared by every command.
type cli struct {
	principal string
	cfg       *config.AppConfig
	app       *app.App
	out       io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{out: os.Stdout}
	err := newRootCommand(c).ExecuteContext(ctx)
	c.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "archivectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archivectl",
		Short: "Document archive command line client",
		Long: `archivectl talks to the archive backend with the same caching, validation and
upload rules as the HTTP server. Calls are made as the principal given by --principal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.cfg = config.Load()
			a, err := app.Build(cmd.Context(), c.cfg, app.SetupLogger(c.cfg.Env, os.Stderr))
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&c.principal, "principal", "p", os.Getenv("ARCHIVE_PRINCIPAL"), "Caller principal sent to the backend")
	cmd.AddCommand(
		newDocumentsCmd(c),
		newCategoriesCmd(c),
		newDashboardCmd(c),
		newRoleCmd(c),
	)
	return cmd
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
}

// ctx returns the command context carrying the caller principal.
func (c *cli) ctx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if p := model.Principal(c.principal); !p.IsZero() {
		ctx = session.WithPrincipal(ctx, p)
	}
	return ctx
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCategoriesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect the category and office taxonomy",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories with their offices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := c.app.Categories.List(c.ctx(cmd))
			if err != nil {
				return err
			}
			for _, cat := range cats {
				fmt.Fprintf(c.out, "%s\t%s\n", cat.ID, cat.Name)
				for _, o := range cat.Offices {
					fmt.Fprintf(c.out, "  %s\t%s\n", o.ID, o.Name)
				}
			}
			return nil
		},
	})
	return cmd
}

func newDashboardCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show document counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.app.Documents.Metrics(c.ctx(cmd))
			if err != nil {
				return err
			}
			return c.printJSON(m)
		},
	}
}

func newRoleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "role",
		Short: "Resolve the caller role the way the web shell does",
		RunE: func(cmd *cobra.Command, args []string) error {
			gate := c.app.Gates.Gate(model.Principal(c.principal))
			st, err := gate.Wait(cmd.Context(), sessionGuard)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "state: %s\n", st.State)
			if st.Role != "" {
				fmt.Fprintf(c.out, "role: %s\n", st.Role)
			}
			if st.Err != nil {
				fmt.Fprintf(c.out, "error: %v (timed out: %t)\n", st.Err, st.TimedOut)
			}
			return nil
		},
	}
}
