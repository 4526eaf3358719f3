package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"radar-scraping/lib/configutil"
	"radar-scraping/lib/scraper"
	"radar-scraping/lib/serviceutil"
	"radar-scraping/services/radar"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeFilters  *[]string
	scrapeSkipSink *bool
	scrapeJobs     *int
)

func init() {
	scrapeFilters = scrapeCmd.Flags().StringArray(
		"filter", nil, "Filter in key=value form, e.g. --filter unit='Escola Politécnica'.")
	scrapeSkipSink = scrapeCmd.Flags().Bool(
		"skip-sink", false, "Extract and validate but do not publish to the radar api.")
	scrapeJobs = scrapeCmd.Flags().Int(
		"jobs", 1, "How many identical jobs to enqueue (load/soak testing).")
	rootCmd.AddCommand(scrapeCmd)
}

func parseFilter(pairs []string) (scraper.Filter, error) {
	filter := scraper.Filter{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("malformed filter %q, want key=value", pair)
		}
		filter[key] = value
	}
	return filter, nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <courses|components|structures> [--filter key=value]... [--skip-sink]",
	Short: "Runs a scrape batch against the portal and reports per-job outcomes.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := scraper.TargetType(args[0])
		if !target.Valid() {
			fmt.Fprintf(os.Stderr, "unknown target type %q\n", args[0])
			os.Exit(1)
		}
		filter, err := parseFilter(*scrapeFilters)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		cfg, err := configutil.ReadConfig[radar.Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		service, err := radar.NewService(radar.ServiceOptions{
			Config:   cfg,
			SkipSink: *scrapeSkipSink,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize service", err)
		}
		defer service.Close()

		if service.Sink != nil {
			err := service.Sink.Health(cmd.Context())
			if err != nil {
				serviceutil.Fatal("radar api health check failed", err)
			}
		}

		var jobs []radar.JobDescriptor
		for i := 0; i < max(*scrapeJobs, 1); i++ {
			jobs = append(jobs, radar.JobDescriptor{
				JobID:       uuid.NewString(),
				Target:      target,
				Filter:      filter,
				MaxAttempts: service.DefaultMaxAttempts(),
				CreatedAt:   time.Now(),
			})
		}

		t1 := time.Now()
		outcomes := service.Scheduler.Run(cmd.Context(), jobs)
		elapsed := time.Since(t1)

		renderOutcomes(outcomes)

		var attempts, failed int
		for _, outcome := range outcomes {
			attempts += len(outcome.Attempts)
			for _, record := range outcome.Attempts {
				if record.Err != nil {
					failed++
				}
			}
		}
		fmt.Printf("scraped %d job(s) in %.1fs: %d attempt(s), %d failed\n",
			len(jobs), elapsed.Seconds(), attempts, failed)

		for _, outcome := range outcomes {
			if outcome.Status != radar.StatusSuccess {
				os.Exit(1)
			}
		}
	},
}

func renderOutcomes(outcomes map[string]radar.JobOutcome) {
	ids := make([]string, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"job", "target", "status", "attempts", "records", "rejected", "error"})

	for _, id := range ids {
		outcome := outcomes[id]
		errText := ""
		if outcome.Err != nil {
			errText = outcome.Err.Error()
		} else if outcome.SinkErr != nil {
			errText = outcome.SinkErr.Error()
		}
		t.AppendRow(table.Row{
			outcome.JobID,
			string(outcome.Target),
			string(outcome.Status),
			len(outcome.Attempts),
			len(outcome.Records),
			len(outcome.RecordErrs),
			errText,
		})
	}
	t.Render()
}
