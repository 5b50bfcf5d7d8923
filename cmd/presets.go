package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/similar-cli/internal/scorer"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List scoring presets and their overrides",
	RunE: func(cmd *cobra.Command, _ []string) error {
		extra, err := loadExtraPresets()
		if err != nil {
			return err
		}
		formatPresets(os.Stdout, scorer.Presets(), extra)
		return nil
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print the effective scoring config of a preset as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := scoringFlags{}
		if len(args) == 1 {
			flags.preset = args[0]
		}
		sc, err := resolveScoring(cfg, flags)
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(sc)
		if err != nil {
			return eris.Wrap(err, "presets: marshal config")
		}
		_, _ = fmt.Fprintf(os.Stdout, "# config_hash: %s\n%s", scorer.ConfigHash(sc), out)
		return nil
	},
}

func init() {
	presetsCmd.AddCommand(presetsShowCmd)
	rootCmd.AddCommand(presetsCmd)
}

func loadExtraPresets() (map[string]map[string]float64, error) {
	if cfg == nil || cfg.Preset.File == "" {
		return nil, nil
	}
	return scorer.LoadPresets(cfg.Preset.File)
}

// formatPresets writes one row per preset. Presets from the file shadow
// built-ins of the same name.
func formatPresets(out io.Writer, builtin, extra map[string]map[string]float64) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PRESET\tSOURCE\tOVERRIDES")
	_, _ = fmt.Fprintln(w, "------\t------\t---------")
	for _, name := range scorer.PresetNames(extra) {
		overrides, source := builtin[name], "builtin"
		if o, ok := extra[name]; ok {
			overrides, source = o, "file"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, source, formatOverrides(overrides))
	}
	_ = w.Flush()
}

func formatOverrides(overrides map[string]float64) string {
	if len(overrides) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, overrides[k])
	}
	return strings.Join(parts, " ")
}
