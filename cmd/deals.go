package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cheapeats/internal/deals"
	"github.com/sells-group/cheapeats/internal/listing"
	"github.com/sells-group/cheapeats/internal/model"
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "List stored deals near a location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "deals")
		if err != nil {
			return err
		}
		defer env.Close()

		req, err := listRequestFromFlags(cmd)
		if err != nil {
			return err
		}

		res, err := env.Deals.List(ctx, req)
		if err != nil {
			return eris.Wrap(err, "deals list")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Deals)
		}

		if len(res.Deals) == 0 {
			fmt.Fprintln(os.Stderr, "No deals match.")
			return nil
		}
		formatDealsList(os.Stdout, res.Deals)
		formatSummary(os.Stdout, res.Summary)
		return nil
	},
}

var dealsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the deal store holds",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "deals")
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Deals.Status(ctx)
		if err != nil {
			return eris.Wrap(err, "deals status")
		}
		formatStatus(os.Stdout, st)
		return nil
	},
}

func init() {
	addListFlags(dealsCmd)
	dealsCmd.Flags().Bool("json", false, "print deals as JSON")

	dealsCmd.AddCommand(dealsStatusCmd)
	rootCmd.AddCommand(dealsCmd)
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "latitude (default: configured city)")
	cmd.Flags().Float64("lng", 0, "longitude (default: configured city)")
	cmd.Flags().String("q", "", "search title, restaurant and description")
	cmd.Flags().String("sort", "distance", "sort by distance, price, savings or rating")
	cmd.Flags().Float64("radius", 0, "only deals within this many miles (0 = no limit)")
}

// listRequestFromFlags builds a listing request. The location is only set
// when --lat or --lng was given.
func listRequestFromFlags(cmd *cobra.Command) (deals.ListRequest, error) {
	flags := cmd.Flags()
	var req deals.ListRequest

	sortFlag, _ := flags.GetString("sort")
	key, ok := listing.ParseSortKey(sortFlag)
	if !ok {
		return req, eris.Errorf("unknown sort %q", sortFlag)
	}
	req.Sort = key
	req.Search, _ = flags.GetString("q")

	radius, _ := flags.GetFloat64("radius")
	if radius < 0 {
		return req, eris.New("radius must not be negative")
	}
	req.RadiusMiles = radius

	if flags.Changed("lat") || flags.Changed("lng") {
		lat, _ := flags.GetFloat64("lat")
		lng, _ := flags.GetFloat64("lng")
		req.Location = &model.Location{Latitude: lat, Longitude: lng}
	}
	return req, nil
}

// formatDealsList writes a tabular list of deals to w.
func formatDealsList(out io.Writer, list []model.Deal) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RESTAURANT\tDEAL\tPRICE\tSAVE\tMILES\tSCORE")
	_, _ = fmt.Fprintln(w, "----------\t----\t-----\t----\t-----\t-----")

	for _, d := range list {
		save := ""
		if d.DiscountPercent != nil {
			save = fmt.Sprintf("%d%%", *d.DiscountPercent)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%d\n",
			truncate(d.RestaurantName, 24),
			truncate(d.Title, 40),
			d.DealPrice,
			save,
			d.Distance,
			d.QualityScore,
		)
	}
	_ = w.Flush()
}

// formatSummary writes listing stats to w.
func formatSummary(out io.Writer, s listing.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Deals:\t%d\n", s.TotalDeals)
	_, _ = fmt.Fprintf(w, "Restaurants:\t%d\n", s.Restaurants)
	_, _ = fmt.Fprintf(w, "Avg quality:\t%d\n", s.AverageQuality)
	_ = w.Flush()
}

// formatStatus writes the store status to w.
func formatStatus(out io.Writer, st *deals.Status) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Active deals:\t%d\n", st.TotalActiveDeals)
	_, _ = fmt.Fprintf(w, "Restaurants:\t%d\n", st.Restaurants)
	_, _ = fmt.Fprintf(w, "Sources:\t%d\n", st.Cities)
	last := st.LastGenerated
	if last == "" {
		last = "never"
	}
	_, _ = fmt.Fprintf(w, "Last generated:\t%s\n", last)
	_, _ = fmt.Fprintf(w, "Generation:\t%s\n", enabledLabel(st.GenerationEnabled))
	_ = w.Flush()
}

func enabledLabel(on bool) string {
	if on {
		return "claude"
	}
	return "templates only"
}

// truncate shortens s to n runes with a trailing ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
