package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/monitoring"
	"github.com/sells-group/similar-cli/internal/recommend"
	"github.com/sells-group/similar-cli/internal/scorer"
)

var (
	batchCatalog     string
	batchFile        string
	batchJSON        bool
	batchSave        bool
	batchConcurrency int
	batchExpandPool  bool
	batchScoring     scoringFlags
)

var batchCmd = &cobra.Command{
	Use:   "batch [item-id...]",
	Short: "Recommend similar items for many catalog items in one run",
	Long:  "Processes the given ids (and/or the ids listed in --file, one per line) grouped by type, demographic and brand. Results keep input order; --save upserts them into the results table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cat, err := model.ParseCatalog(batchCatalog)
		if err != nil {
			return err
		}

		ids := append([]string(nil), args...)
		if batchFile != "" {
			fromFile, err := readIDs(batchFile)
			if err != nil {
				return err
			}
			ids = append(ids, fromFile...)
		}
		if len(ids) == 0 {
			return eris.New("batch: no item ids given (pass ids as arguments or --file)")
		}

		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrentGroups = batchConcurrency
		}
		if cmd.Flags().Changed("expand-pool") {
			cfg.Batch.ExpandPool = batchExpandPool
		}

		scoring, err := resolveScoring(cfg, batchScoring)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, "lookup", scoring)
		if err != nil {
			return err
		}
		defer e.Close()

		res := e.Batch.Run(ctx, cat, ids, logProgress(len(ids)))
		monitoring.NewAlerter(cfg.Monitor).Check(ctx, res)

		if batchSave {
			if e.Pool == nil {
				return eris.New("batch: --save requires store.driver=postgres")
			}
			n, err := recommend.SaveResults(ctx, e.Pool, cfg.Catalog.ResultsTable, res, scorer.ConfigHash(scoring))
			if err != nil {
				return err
			}
			zap.L().Info("batch: results saved", zap.String("run_id", res.RunID), zap.Int64("rows", n))
		}

		if batchJSON {
			return writeJSON(os.Stdout, res)
		}
		for i := range res.Results {
			formatResult(os.Stdout, &res.Results[i])
		}
		fmt.Fprintln(os.Stdout)
		formatBatchSummary(os.Stdout, res)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCatalog, "catalog", string(model.CatalogSecondary), "catalog of the items (primary, secondary)")
	batchCmd.Flags().StringVar(&batchFile, "file", "", "file with one item id per line")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print the batch result as JSON")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "upsert results into the results table")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max groups processed concurrently (default from config)")
	batchCmd.Flags().BoolVar(&batchExpandPool, "expand-pool", false, "load every in-stock member of the input groups as candidates")
	batchScoring.register(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

// readIDs reads one id per line, skipping blank lines and # comments.
func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}
	return ids, nil
}

// logProgress returns a ProgressFunc that logs roughly every tenth of the run.
func logProgress(total int) recommend.ProgressFunc {
	every := max(total/10, 1)
	return func(processed, total int, message string) {
		if processed%every != 0 && processed != total {
			return
		}
		zap.L().Info("batch: progress",
			zap.Int("processed", processed),
			zap.Int("total", total),
			zap.String("message", message),
		)
	}
}
