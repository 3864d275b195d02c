package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"go.trai.ch/trove/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <bundle> [args...]",
		Short: "Call a method across a bundle and its dependencies",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			method, _ := cmd.Flags().GetString("method")
			once, _ := cmd.Flags().GetBool("once")

			results, err := c.app.Run(cmd.Context(), args[0], app.RunOptions{
				Method: method,
				Once:   once,
				Args:   args[1:],
			})
			if err != nil {
				return err
			}
			return writeValues(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringP("method", "m", app.DefaultMethod, "Capability to call")
	cmd.Flags().Bool("once", false, "Call only the first context defining the method")
	return cmd
}

func (c *CLI) newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <object-id> <capability> [args...]",
		Short: "Call a capability of a cached object",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Call(cmd.Context(), args[0], args[1], args[2:])
			if err != nil {
				return err
			}
			return writeValues(cmd.OutOrStdout(), []cty.Value{result})
		},
	}
}

// writeValues prints each value as one line of JSON.
func writeValues(w io.Writer, values []cty.Value) error {
	for _, v := range values {
		if v.IsNull() {
			if _, err := fmt.Fprintln(w, "null"); err != nil {
				return err
			}
			continue
		}
		b, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return err
		}
	}
	return nil
}
