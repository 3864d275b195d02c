package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newOverlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlay",
		Short: "Manage registered overlays",
	}
	cmd.AddCommand(c.newOverlayAddCmd())
	cmd.AddCommand(c.newOverlayRemoveCmd())
	cmd.AddCommand(c.newOverlayListCmd())
	cmd.AddCommand(c.newOverlayUpdateCmd())
	return cmd
}

func (c *CLI) newOverlayAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <path>",
		Short: "Register a directory as an overlay",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")

			overlay, err := c.app.AddOverlay(cmd.Context(), args[0], args[1], uri)
			if err != nil {
				return err
			}
			if c.json {
				return writeJSON(cmd.OutOrStdout(), overlay)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", overlay.Name, overlay.Path)
			return err
		},
	}
	cmd.Flags().String("uri", "", "Where the overlay was obtained from")
	return cmd
}

func (c *CLI) newOverlayRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Unregister an overlay and purge its cache entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			purged, err := c.app.RemoveOverlay(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c.json {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"name": args[0], "purged": purged})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s, purged %d entries\n", args[0], purged)
			return err
		},
	}
}

func (c *CLI) newOverlayListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List overlays in registration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overlays := c.app.Overlays()
			if c.json {
				return writeJSON(cmd.OutOrStdout(), overlays)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, o := range overlays {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Name, o.Path, o.URI)
			}
			return tw.Flush()
		},
	}
}

func (c *CLI) newOverlayUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Refresh an overlay and resync its scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")

			rep, err := c.app.UpdateOverlay(cmd.Context(), args[0], uri)
			if err != nil {
				return err
			}
			return c.renderReport(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().String("uri", "", "Replace the recorded URI")
	return cmd
}
