package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cheapeats/internal/deals"
	"github.com/sells-group/cheapeats/internal/geo"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate the stored deal list for major cities",
	Long:  "Generates deals for each city, deduplicates them per city and replaces the stored deal list.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		names, _ := cmd.Flags().GetStringSlice("cities")
		count, _ := cmd.Flags().GetInt("count")

		cities, missing := geo.SelectCities(names)
		if len(missing) > 0 {
			return eris.Errorf("unknown cities: %s", strings.Join(missing, ", "))
		}

		env, err := initEnv(ctx, "generate")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Deals.GenerateDaily(ctx, cities, count)
		if err != nil {
			return eris.Wrap(err, "generate")
		}

		formatDailyResult(os.Stdout, res)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringSlice("cities", nil, "cities to generate for (default: all major cities)")
	generateCmd.Flags().Int("count", 0, "deals per city (default from config)")
	rootCmd.AddCommand(generateCmd)
}

// formatDailyResult writes a per-city breakdown of a daily run to w.
func formatDailyResult(out io.Writer, res *deals.DailyResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CITY\tDEALS\tSOURCE\tERROR")
	_, _ = fmt.Fprintln(w, "----\t-----\t------\t-----")
	for _, c := range res.Cities {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", c.City, c.Deals, c.Source, c.Error)
	}
	_ = w.Flush()

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total deals:\t%d\n", len(res.Deals))
	_, _ = fmt.Fprintf(w, "Restaurants:\t%d\n", res.Summary.Restaurants)
	_, _ = fmt.Fprintf(w, "Categories:\t%s\n", strings.Join(res.Summary.Categories, ", "))
	_, _ = fmt.Fprintf(w, "Avg discount:\t%d%%\n", res.Summary.AverageDiscount)
	_, _ = fmt.Fprintf(w, "Generated at:\t%s\n", res.GeneratedAt.Format("2006-01-02 15:04"))
	_ = w.Flush()
}
