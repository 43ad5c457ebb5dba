package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Faultbox/scanlab/internal/engine/classify"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [name]",
	Short: "Print the built-in classification rule sets as YAML",
	Long: `Prints the built-in rule sets (single-mesh, dual-mesh) in the YAML form
accepted by classify --rules and the classification section of the config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRules(cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(w io.Writer, args []string) error {
	sets := classify.Builtins()
	if len(args) > 0 {
		rs, ok := classify.Builtin(args[0])
		if !ok {
			return fmt.Errorf("unknown rule set %q", args[0])
		}
		sets = []classify.RuleSet{rs}
	}

	for i, rs := range sets {
		data, err := rs.Encode()
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(w, "---")
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}
