package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/ui/report"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Resync scripts as they change until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := report.New(cmd.OutOrStdout())
			return c.app.Watch(cmd.Context(), func(rep *domain.SyncReport) {
				if c.json {
					_ = r.RenderJSON(rep)
					return
				}
				_ = r.Render(rep)
			})
		},
	}
}
