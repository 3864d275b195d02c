package commands

import (
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/trove/internal/app"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/ui/report"
)

func (c *CLI) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [paths...]",
		Short: "Sync the cache with the scripts on disk",
		Long: "Sync brings every cache entry in line with its source file. Without paths it " +
			"discovers the scripts of every overlay plus the paths already cached.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")

			rep, err := c.app.Sync(cmd.Context(), app.SyncOptions{Paths: args, Workers: workers})
			if err != nil {
				return err
			}
			return c.renderReport(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().IntP("workers", "w", 0, "Number of files synced in parallel (default: configured)")
	return cmd
}

// renderReport prints rep and returns domain.ErrSyncFailed when any entry failed.
// Failures are already on the report, so the caller should not log the error again.
func (c *CLI) renderReport(w io.Writer, rep *domain.SyncReport) error {
	r := report.New(w)
	render := r.Render
	if c.json {
		render = r.RenderJSON
	}
	if err := render(rep); err != nil {
		return err
	}
	if rep.Err() != nil {
		return domain.ErrSyncFailed
	}
	return nil
}
