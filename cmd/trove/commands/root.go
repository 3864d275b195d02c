// Package commands implements the CLI commands for trove.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/trove/internal/app"
	"go.trai.ch/trove/internal/build"
	"go.trai.ch/trove/internal/core/domain"
)

// CLI represents the command line interface for trove.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
	json    bool
}

// Application represents the application logic interface.
type Application interface {
	SetJSONLogs(enabled bool)
	Sync(ctx context.Context, opts app.SyncOptions) (*domain.SyncReport, error)
	AddOverlay(ctx context.Context, name, path, uri string) (domain.Overlay, error)
	RemoveOverlay(ctx context.Context, name string) (int, error)
	UpdateOverlay(ctx context.Context, name, uri string) (*domain.SyncReport, error)
	Overlays() []domain.Overlay
	Bundles(ctx context.Context) ([]app.BundleInfo, error)
	Run(ctx context.Context, bundle string, opts app.RunOptions) ([]cty.Value, error)
	ListObjects(ctx context.Context, typeName string) ([]app.ObjectInfo, error)
	Call(ctx context.Context, id, capability string, args []string) (cty.Value, error)
	Watch(ctx context.Context, onReport func(*domain.SyncReport)) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "trove",
		Short:         "Index overlays and keep their script cache in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().BoolVar(&c.json, "json", false, "Emit JSON logs and output")
	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		c.app.SetJSONLogs(c.json)
	}

	rootCmd.AddCommand(c.newSyncCmd())
	rootCmd.AddCommand(c.newOverlayCmd())
	rootCmd.AddCommand(c.newBundlesCmd())
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newCallCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
