// =============================================================================
// CI Load Engine - Tariffs Command
// =============================================================================
//
// Shows what the engine would emit for one line: the programs the cross
// reference returns for each keyed number, and the final prioritized list.
// Useful when a new cross-reference table is rolled out.
//
// COMMAND USAGE:
//   ciload tariffs --country CN --hts 8471.30.0100 [--hts 9903.88.03]
//                  [--exclusion 9903.88.69] [--date 2024-03-01]
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/ginjaninja78/ci-load-engine/internal/config"
	"github.com/ginjaninja78/ci-load-engine/internal/specialtariff"
	"github.com/ginjaninja78/ci-load-engine/internal/tariffs"
	"github.com/spf13/cobra"
)

type tariffsOptions struct {
	country   string
	hts       []string
	exclusion string
	date      string
}

var tariffOpts tariffsOptions

var tariffsCmd = &cobra.Command{
	Use:   "tariffs",
	Short: "Show the prioritized tariff list for a sample line",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		log, err := newLogger(cmd.ErrOrStderr(), cfg, verbose)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		env, err := loadEnvironment(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer env.Close()

		return runTariffs(env.resolver, tariffOpts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(tariffsCmd)

	tariffsCmd.Flags().StringVar(&tariffOpts.country, "country", "", "Country of origin (ISO code)")
	tariffsCmd.Flags().StringSliceVar(&tariffOpts.hts, "hts", nil, "Keyed tariff number, in order (repeatable)")
	tariffsCmd.Flags().StringVar(&tariffOpts.exclusion, "exclusion", "", "Keyed section 301 exclusion number")
	tariffsCmd.Flags().StringVar(&tariffOpts.date, "date", "", "Reference date YYYY-MM-DD (default today)")
	tariffsCmd.MarkFlagRequired("hts")
}

func runTariffs(resolver *specialtariff.Resolver, opts tariffsOptions, out io.Writer) error {
	date := time.Now()
	if opts.date != "" {
		d, err := time.Parse(config.ReferenceDateLayout, opts.date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", opts.date)
		}
		date = d
	}

	line := ciload.InvoiceLine{
		CountryOfOrigin: strings.ToUpper(opts.country),
		TariffNumbers:   opts.hts,
	}
	if opts.exclusion != "" {
		line.Exclusion301 = ciload.Ptr(opts.exclusion)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Cross-reference matches (%s, %s):\n", line.CountryOfOrigin, date.Format(config.ReferenceDateLayout))
	fmt.Fprintln(w, "KEYED\tMODE\tNUMBER\tTYPE\tPRIORITY")
	for _, hts := range opts.hts {
		for _, mode := range []specialtariff.Mode{specialtariff.ModeAll, specialtariff.ModeAutoInclude} {
			for _, st := range resolver.TariffsFor(line.CountryOfOrigin, hts, date, mode, false) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\n", hts, mode, st.Number, st.ProgramType, st.Priority)
			}
		}
	}

	list, err := tariffs.NewBuilder(resolver).Build(line, date)
	if err != nil {
		w.Flush()
		return err
	}

	fmt.Fprintln(w, "\nEmitted order:")
	fmt.Fprintln(w, "SEQ\tNUMBER\tPRIORITY\tSECONDARY\tFLAGS")
	for i, t := range list {
		fmt.Fprintf(w, "%d\t%s\t%g\t%g\t%s\n", i+1, t.HTSNumber, t.Priority, t.SecondaryPriority, flags(t))
	}
	return w.Flush()
}

func flags(t ciload.TariffLine) string {
	var f []string
	if t.Primary {
		f = append(f, "primary")
	}
	if t.SpecialTariff {
		f = append(f, "special")
	}
	if t.Exclusion {
		f = append(f, "exclusion")
	}
	return strings.Join(f, ",")
}
