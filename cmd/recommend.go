package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/similar-cli/internal/model"
)

var (
	recommendCatalog string
	recommendJSON    bool
	recommendExplain bool
	recommendScoring scoringFlags
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <item-id>",
	Short: "Recommend similar items for one catalog item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cat, err := model.ParseCatalog(recommendCatalog)
		if err != nil {
			return err
		}
		scoring, err := resolveScoring(cfg, recommendScoring)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, "lookup", scoring)
		if err != nil {
			return err
		}
		defer e.Close()

		res := e.Engine.Recommend(ctx, cat, args[0])

		if recommendJSON {
			if err := writeJSON(os.Stdout, res); err != nil {
				return eris.Wrap(err, "write result")
			}
		} else {
			formatResult(os.Stdout, res)
			if recommendExplain {
				formatExplanations(os.Stdout, res)
			}
		}

		if res.Status == model.StatusError {
			return eris.New(res.Error)
		}
		return nil
	},
}

func init() {
	recommendCmd.Flags().StringVar(&recommendCatalog, "catalog", string(model.CatalogSecondary), "catalog of the item (primary, secondary)")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "print the result as JSON")
	recommendCmd.Flags().BoolVar(&recommendExplain, "explain", false, "print the score breakdown of every recommendation")
	recommendScoring.register(recommendCmd)
	rootCmd.AddCommand(recommendCmd)
}
