package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/ruleproof/internal/analysis"
	"github.com/solatis/ruleproof/internal/core/catalog"
	"github.com/solatis/ruleproof/internal/core/config"
	"github.com/solatis/ruleproof/internal/core/ruledoc"
	"github.com/solatis/ruleproof/internal/types"
)

var checkCmd = &cobra.Command{
	Use:   "check <document.yaml>",
	Short: "Prove a rule document feasible or localize the conflict",
	Long: `Check decides whether any assignment satisfies every rule in the document.
An infeasible verdict is followed by localization: the smallest single rule
or pair whose removal restores feasibility, when one exists.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("redundancy", false, "report rules implied by another rule")
	checkCmd.Flags().Bool("contradictions", false, "report which rules contradict each rule")
	checkCmd.Flags().Bool("save", false, "record the document and verdicts in the catalog (requires --db-url)")
}

// Catalog verdict shapes. These are stored as opaque JSON and read back by
// humans, so field names favor the report vocabulary.
type feasibilityVerdict struct {
	Infeasible bool `json:"infeasible"`
}

type localizationVerdict struct {
	Culprits           []string `json:"culprits,omitempty"`
	LocalizationFailed bool     `json:"localization_failed,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read rule document: %w", err)
	}
	doc, err := ruledoc.Parse(data)
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

	opts := cfg.EngineOptions()
	opts.VarBounds = doc.VarBounds()
	engine := analysis.New(opts)

	feasStart := time.Now()
	infeasible, err := engine.IsInfeasible(ctx, set)
	if err != nil {
		return fmt.Errorf("feasibility check failed: %w", err)
	}
	feasTook := time.Since(feasStart)

	var (
		localization     localizationVerdict
		localizationTook time.Duration
	)
	if infeasible {
		fmt.Printf("%s: INFEASIBLE (%d rules)\n", doc.Name, set.Len())

		locStart := time.Now()
		culprits, err := engine.DetectInfeasibleRules(ctx, set)
		localizationTook = time.Since(locStart)
		switch {
		case errors.Is(err, types.ErrLocalizationFailed):
			localization.LocalizationFailed = true
			fmt.Println("  no single rule or pair explains the conflict")
		case err != nil:
			return fmt.Errorf("localization failed: %w", err)
		default:
			localization.Culprits = culprits
			fmt.Printf("  remove %s to restore feasibility\n", strings.Join(culprits, " + "))
		}
	} else {
		fmt.Printf("%s: FEASIBLE (%d rules)\n", doc.Name, set.Len())
	}

	var (
		implications map[string][]string
		implTook     time.Duration
		contradicted map[string][]string
		contraTook   time.Duration
	)
	if on, _ := cmd.Flags().GetBool("redundancy"); on {
		implStart := time.Now()
		implications = make(map[string][]string)
		fmt.Println("implied rules:")
		found := false
		for _, name := range set.Names() {
			implied, err := engine.IsImpliedBy(ctx, set, name)
			if err != nil {
				return fmt.Errorf("implication check for %s failed: %w", name, err)
			}
			if len(implied) > 0 {
				implications[name] = implied
				found = true
				fmt.Printf("  %s is implied by %s\n", name, strings.Join(implied, ", "))
			}
		}
		if !found {
			fmt.Println("  none")
		}
		implTook = time.Since(implStart)
	}
	if on, _ := cmd.Flags().GetBool("contradictions"); on {
		contraStart := time.Now()
		contradicted = make(map[string][]string)
		fmt.Println("contradictions:")
		found := false
		for _, name := range set.Names() {
			against, err := engine.IsContradictedBy(ctx, set, name)
			if err != nil {
				return fmt.Errorf("contradiction check for %s failed: %w", name, err)
			}
			if len(against) > 0 {
				contradicted[name] = against
				found = true
				fmt.Printf("  %s is contradicted by %s\n", name, strings.Join(against, ", "))
			}
		}
		if !found {
			fmt.Println("  none")
		}
		contraTook = time.Since(contraStart)
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		database, store, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		rec, err := store.SaveRuleSet(doc.Name, string(data), set.Len())
		if err != nil {
			return fmt.Errorf("failed to save rule set: %w", err)
		}
		slog.Info("saved rule set", "document", doc.Name, "set_id", rec.SetID)

		if _, err := store.RecordRun(rec.SetID, catalog.RunFeasibility, feasibilityVerdict{Infeasible: infeasible}, feasTook); err != nil {
			return fmt.Errorf("failed to record feasibility run: %w", err)
		}
		if infeasible {
			if _, err := store.RecordRun(rec.SetID, catalog.RunLocalization, localization, localizationTook); err != nil {
				return fmt.Errorf("failed to record localization run: %w", err)
			}
		}
		if implications != nil {
			if _, err := store.RecordRun(rec.SetID, catalog.RunImplication, implications, implTook); err != nil {
				return fmt.Errorf("failed to record implication run: %w", err)
			}
		}
		if contradicted != nil {
			if _, err := store.RecordRun(rec.SetID, catalog.RunContradiction, contradicted, contraTook); err != nil {
				return fmt.Errorf("failed to record contradiction run: %w", err)
			}
		}
	}

	if infeasible {
		return fmt.Errorf("rule set %s is infeasible", doc.Name)
	}
	return nil
}
