package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			typeName, _ := cmd.Flags().GetString("type")

			objects, err := c.app.ListObjects(cmd.Context(), typeName)
			if err != nil {
				return err
			}
			if c.json {
				return writeJSON(cmd.OutOrStdout(), objects)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, o := range objects {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.ID, o.Type, o.Name, o.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringP("type", "t", "", "Only list objects of this type")
	return cmd
}
