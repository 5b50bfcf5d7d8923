package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/scorer"
)

var (
	explainCatalog string
	explainBasic   bool
	explainScoring scoringFlags
)

var explainCmd = &cobra.Command{
	Use:   "explain <source-id> <candidate-id>",
	Short: "Show the per-rule score breakdown for one pair of items",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cat, err := model.ParseCatalog(explainCatalog)
		if err != nil {
			return err
		}
		scoring, err := resolveScoring(cfg, explainScoring)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, "lookup", scoring)
		if err != nil {
			return err
		}
		defer e.Close()

		found, err := e.Store.GetProducts(ctx, cat, args)
		if err != nil {
			return err
		}
		src, cand := found[args[0]], found[args[1]]
		for _, id := range args {
			if found[id] == nil {
				return eris.Errorf("explain: %s item %s not found", cat, id)
			}
		}

		mode := scorer.ModeFull
		if explainBasic {
			mode = scorer.ModeBasic
		} else {
			e.Pipeline.EnrichMany(ctx, []model.Product{src, cand})
		}

		if model.KeyOf(src) != model.KeyOf(cand) {
			fmt.Fprintf(os.Stderr, "note: %s and %s are in different groups (%s vs %s) and would never be compared\n",
				args[0], args[1], model.KeyOf(src), model.KeyOf(cand))
		}

		b := e.Scorer.Evaluate(src, cand, mode)
		fmt.Fprintf(os.Stdout, "%s -> %s (%s, %s mode)\n%s\n", args[0], args[1], cat, mode, b)
		return nil
	},
}

func init() {
	explainCmd.Flags().StringVar(&explainCatalog, "catalog", string(model.CatalogSecondary), "catalog of both items (primary, secondary)")
	explainCmd.Flags().BoolVar(&explainBasic, "basic", false, "score with stored attributes only, without enrichment")
	explainScoring.register(explainCmd)
	rootCmd.AddCommand(explainCmd)
}
