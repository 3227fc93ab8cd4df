package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/jonathan/exam-automation/internal/orchestration"
	"github.com/jonathan/exam-automation/internal/probe"
	"github.com/jonathan/exam-automation/internal/types"
	"github.com/spf13/cobra"
)

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "Manage exam configurations",
}

var (
	importDatabaseURL string
	importDryRun      bool
)

var examsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create or replace exam configurations from a YAML file",
	Long: `Import exam configurations from a YAML seed file. Each entry is validated
against the same schema as the admin API. An existing configuration with the
same slug has all of its fields replaced; otherwise a new one is created.`,
	Args: cobra.ExactArgs(1),
	RunE: runExamsImport,
}

var (
	probeDatabaseURL string
	probeAll         bool
	probeTimeout     time.Duration
	probeConcurrency int
	probeJSON        bool
	probeVerbose     bool
	probeBrowserOnly bool
)

var examsProbeCmd = &cobra.Command{
	Use:   "probe [slug...]",
	Short: "Check exam field mappings against the live portal pages",
	Long: `Fetch each exam's portal and report field mappings whose destination form
control is missing from the page. Pages whose form is built by scripts are
rendered in headless Chrome, which must be installed. Nothing is submitted.`,
	RunE: runExamsProbe,
}

func init() {
	examsImportCmd.Flags().StringVar(&importDatabaseURL, "db-url", "", "Database URL (overrides DATABASE_URL env var)")
	examsImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate the file without writing to the database")

	examsProbeCmd.Flags().StringVar(&probeDatabaseURL, "db-url", "", "Database URL (overrides DATABASE_URL env var)")
	examsProbeCmd.Flags().BoolVar(&probeAll, "all", false, "Probe every active exam configuration")
	examsProbeCmd.Flags().DurationVar(&probeTimeout, "timeout", probe.DefaultTimeout, "Per-page render timeout")
	examsProbeCmd.Flags().IntVar(&probeConcurrency, "concurrency", probe.DefaultConcurrency, "Number of pages rendered at once")
	examsProbeCmd.Flags().BoolVar(&probeJSON, "json", false, "Print results as JSON")
	examsProbeCmd.Flags().BoolVar(&probeBrowserOnly, "browser-only", false, "Skip the plain HTTP fetch and always render in Chrome")
	examsProbeCmd.Flags().BoolVarP(&probeVerbose, "verbose", "v", false, "Log rendering progress")

	examsCmd.AddCommand(examsImportCmd, examsProbeCmd)
	rootCmd.AddCommand(examsCmd)
}

func runExamsImport(cmd *cobra.Command, args []string) error {
	reqs, err := loadExamFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if importDryRun {
		_, _ = fmt.Fprintf(out, "%d exam configuration(s) are valid\n", len(reqs))
		return nil
	}

	ctx := context.Background()
	database, err := connectDB(ctx, importDatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	return importExams(ctx, orchestration.NewService(database, nil), reqs, out)
}

func importExams(ctx context.Context, service *orchestration.Service, reqs []types.CreateExamConfigRequest, out io.Writer) error {
	var created, replaced int
	for i := range reqs {
		exam, isNew, err := service.ImportExamConfig(ctx, &reqs[i])
		if err != nil {
			return fmt.Errorf("failed to import %q: %w", reqs[i].Slug, err)
		}
		action := "replaced"
		if isNew {
			action = "created"
			created++
		} else {
			replaced++
		}
		_, _ = fmt.Fprintf(out, "%-8s %s (%s)\n", action, exam.Slug, exam.ID)
	}
	_, _ = fmt.Fprintf(out, "Imported %d exam configuration(s): %d created, %d replaced\n", len(reqs), created, replaced)
	return nil
}

func runExamsProbe(cmd *cobra.Command, args []string) error {
	if probeAll == (len(args) > 0) {
		return fmt.Errorf("provide exam slugs or --all, but not both")
	}
	if probeConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	ctx := context.Background()
	database, err := connectDB(ctx, probeDatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	exams, err := selectExams(ctx, orchestration.NewService(database, nil), args)
	if err != nil {
		return err
	}

	render := probe.BrowserRenderer(probeTimeout, probeVerbose)
	if !probeBrowserOnly {
		render = probe.FallbackRenderer(probe.HTTPRenderer(&http.Client{Timeout: probeTimeout}), render)
	}
	prober := &probe.Prober{
		Render:      render,
		Concurrency: probeConcurrency,
		Verbose:     probeVerbose,
	}
	results, err := prober.Run(ctx, exams)
	if err != nil {
		return fmt.Errorf("probe interrupted: %w", err)
	}
	return reportProbe(cmd.OutOrStdout(), results, probeJSON)
}

// selectExams resolves slugs to configurations, or returns every active one when none are given.
func selectExams(ctx context.Context, service *orchestration.Service, slugs []string) ([]types.ExamConfig, error) {
	if len(slugs) == 0 {
		exams, err := service.ListExamConfigs(ctx, true)
		if err != nil {
			return nil, err
		}
		if len(exams) == 0 {
			return nil, fmt.Errorf("no active exam configurations")
		}
		return exams, nil
	}

	exams := make([]types.ExamConfig, 0, len(slugs))
	for _, slug := range slugs {
		exam, err := service.GetExamConfigBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if exam == nil {
			return nil, fmt.Errorf("exam configuration not found: %s", slug)
		}
		exams = append(exams, *exam)
	}
	return exams, nil
}

// reportProbe prints results and returns an error if any exam failed.
func reportProbe(out io.Writer, results []probe.Result, asJSON bool) error {
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	} else {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "SLUG\tSTATUS\tFIELDS\tDETAIL")
		for _, r := range results {
			status, detail := "ok", ""
			switch {
			case r.Error != "":
				status, detail = "error", r.Error
			case len(r.Missing) > 0:
				status = "drift"
				for i, m := range r.Missing {
					if i > 0 {
						detail += ", "
					}
					detail += m.ProfileField + "->" + m.FormField
				}
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Slug, status, r.FieldCount, detail)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d exam(s) failed the probe", failed, len(results))
	}
	return nil
}
