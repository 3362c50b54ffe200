package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/ruleproof/internal/analysis"
	"github.com/solatis/ruleproof/internal/core/catalog"
	"github.com/solatis/ruleproof/internal/core/config"
	"github.com/solatis/ruleproof/internal/core/ruledoc"
	"github.com/solatis/ruleproof/internal/types"
)

var simplifyCmd = &cobra.Command{
	Use:   "simplify <document.yaml>",
	Short: "Strip redundant rules and resolve decided conditionals",
	Long: `Simplify removes rules already implied by the rest of the set and emits
the reduced document. With --bind, known values are substituted first, so
rules that collapse under those values disappear too. With --conditionals,
if/then rules whose outcome the rest of the set already forces are resolved
before redundancy removal.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimplify,
}

func init() {
	rootCmd.AddCommand(simplifyCmd)
	simplifyCmd.Flags().StringArrayP("bind", "b", nil, "substitute a value before simplifying (name=value, repeatable)")
	simplifyCmd.Flags().Bool("conditionals", false, "resolve decided conditional rules first")
	simplifyCmd.Flags().StringP("output", "o", "", "write the simplified document to a file instead of stdout")
	simplifyCmd.Flags().Bool("save", false, "record the simplified document in the catalog (requires --db-url)")
}

type simplifyVerdict struct {
	RulesBefore int      `json:"rules_before"`
	RulesAfter  int      `json:"rules_after"`
	Removed     []string `json:"removed,omitempty"`
}

func runSimplify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	doc, err := ruledoc.ParseFile(args[0])
	if err != nil {
		return err
	}
	set, defErrs := doc.RuleSet()
	for _, derr := range defErrs {
		slog.Warn("skipping rule", "document", doc.Name, "err", derr)
	}
	if set == nil {
		return fmt.Errorf("document %s has no usable rules", doc.Name)
	}

	pairs, _ := cmd.Flags().GetStringArray("bind")
	raw, err := parseBindings(pairs)
	if err != nil {
		return err
	}

	opts := cfg.EngineOptions()
	opts.VarBounds = doc.VarBounds()
	engine := analysis.New(opts)

	started := time.Now()
	result := set
	if on, _ := cmd.Flags().GetBool("conditionals"); on {
		result, err = engine.SimplifyConditionals(ctx, result)
		if err != nil {
			return fmt.Errorf("conditional simplification failed: %w", err)
		}
	}
	result, err = engine.SimplifyRules(ctx, result, raw)
	if err != nil {
		return fmt.Errorf("simplification failed: %w", err)
	}
	took := time.Since(started)

	removed := removedNames(set, result)
	slog.Info("simplified rule set",
		"document", doc.Name,
		"before", set.Len(),
		"after", result.Len(),
		"removed", strings.Join(removed, ","),
		"took", took)

	out, err := ruledoc.FromRuleSet(result, doc).Marshal()
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("failed to write simplified document: %w", err)
		}
	} else {
		fmt.Print(string(out))
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		database, store, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		rec, err := store.SaveRuleSet(doc.Name, string(out), result.Len())
		if err != nil {
			return fmt.Errorf("failed to save rule set: %w", err)
		}
		verdict := simplifyVerdict{
			RulesBefore: set.Len(),
			RulesAfter:  result.Len(),
			Removed:     removed,
		}
		if _, err := store.RecordRun(rec.SetID, catalog.RunSimplify, verdict, took); err != nil {
			return fmt.Errorf("failed to record simplify run: %w", err)
		}
		slog.Info("saved simplified rule set", "document", doc.Name, "set_id", rec.SetID)
	}

	return nil
}

// parseBindings turns repeated name=value flags into substitution input.
// Values that parse as numbers bind numerically; anything else binds as a
// categorical label.
func parseBindings(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	raw := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid binding %q (want name=value)", pair)
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			raw[name] = f
		} else {
			raw[name] = value
		}
	}
	return raw, nil
}

// removedNames lists rules present in before but not in after, in
// declaration order.
func removedNames(before, after *types.RuleSet) []string {
	var removed []string
	for _, name := range before.Names() {
		if _, ok := after.Rule(name); !ok {
			removed = append(removed, name)
		}
	}
	return removed
}
