package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Dan9191/loan-assessment/internal/analytics"
	"github.com/Dan9191/loan-assessment/internal/extract"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/pipeline"
	"github.com/Dan9191/loan-assessment/internal/report"
	"github.com/Dan9191/loan-assessment/internal/scoring"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var Version = "dev"

// errAssessmentFailed makes the process exit non-zero after the report is written
var errAssessmentFailed = errors.New("one or more assessments failed")

type assessOptions struct {
	format     string
	partition  bool
	termMonths int
	output     string
	logLevel   string
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "gasp",
		Short:   "GA$P - loan document assessment pipeline",
		Version: Version,
	}
	rootCmd.AddCommand(assessCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func assessCmd() *cobra.Command {
	var opts assessOptions
	cmd := &cobra.Command{
		Use:   "assess [files...]",
		Short: "Assess a loan application from its text documents",
		Long: `Extract the loan profile and bank statements from the given text files,
derive financial metrics and print the risk assessment.

Examples:
  gasp assess profile.txt statement.txt
  gasp assess docs/*.txt --partition --format yaml`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if opts.output != "" {
				f, err := os.Create(opts.output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return runAssess(cmd.Context(), out, cmd.ErrOrStderr(), opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format (json, yaml, xml)")
	cmd.Flags().BoolVarP(&opts.partition, "partition", "p", false, "split a mixed batch by client id")
	cmd.Flags().IntVar(&opts.termMonths, "term", analytics.DefaultTermMonths, "loan term in months")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	return cmd
}

func runAssess(ctx context.Context, out, logOut io.Writer, opts assessOptions, paths []string) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(logOut)
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	docs, err := readDocuments(paths)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(
		extract.NewExtractor(logger),
		analytics.NewAggregator(opts.termMonths),
		scoring.NewScorer(logger),
		logger,
	)

	var results []models.AssessmentResult
	if opts.partition {
		var unassigned []models.Document
		results, unassigned = runner.RunPartitioned(ctx, docs)
		for _, d := range unassigned {
			logger.WithField("document", d.Name).Warn("No client id found, document skipped")
		}
	} else {
		results = []models.AssessmentResult{runner.Run(ctx, docs)}
	}

	if err := report.Write(out, format, results...); err != nil {
		return err
	}
	for _, res := range results {
		if res.Failed() {
			return errAssessmentFailed
		}
	}
	return nil
}

func readDocuments(paths []string) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		docs = append(docs, models.Document{Name: filepath.Base(p), Text: string(b)})
	}
	return docs, nil
}
