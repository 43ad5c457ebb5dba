package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Faultbox/scanlab/internal/engine/classify"
	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/internal/session"
)

var (
	classifyRules string
	classifyRole  string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Color a mesh by region rules and print the color histogram",
	Long: `Loads a mesh and colors every vertex with the first matching rule. Without
--rules the single-mesh rule set from the config is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClassify(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyRules, "rules", "", "Rule set YAML file or built-in name")
	classifyCmd.Flags().StringVar(&classifyRole, "role", string(registry.RoleReference), "Role to load the mesh as")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(ctx context.Context, w io.Writer, path string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	role := registry.Role(classifyRole)
	f, err := session.ReadFile(path, role)
	if err != nil {
		return err
	}
	if err := s.Load(ctx, f); err != nil {
		return err
	}

	var name string
	if classifyRules == "" {
		if name, err = s.ClassifyAuto(); err != nil {
			return err
		}
	} else {
		rs, err := resolveRuleSet(classifyRules)
		if err != nil {
			return err
		}
		if err := s.Classify(role, rs); err != nil {
			return err
		}
		name = rs.Name
	}

	v, _ := s.Asset(role)
	fmt.Fprintf(w, "%s: %d vertices, rules %s\n\n", v.Name, len(v.Vertices), name)
	return printHistogram(w, v.Colors)
}

// resolveRuleSet returns a built-in rule set by name, or loads a file.
func resolveRuleSet(ref string) (classify.RuleSet, error) {
	if rs, ok := classify.Builtin(ref); ok {
		return rs, nil
	}
	return classify.LoadRuleSet(ref)
}
