package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"screener/internal/config"
	"screener/internal/engine"
	"screener/internal/export"
	"screener/internal/models"
)

type queryOptions struct {
	filters []string
	sort    string
	format  string
	out     string
}

func newQueryCmd(cfg *config.Config) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Load the CSV once, filter and sort it, and print the view",
		Example: `  screener query --filter "P/E=2" --sort "ROCE (%)"
  screener query --source https://example.com/companies_data.csv --format xlsx --out view.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, cfg, opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.filters, "filter", "f", nil, `filter as "COLUMN=TEXT" (repeatable)`)
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", "", "column to sort ascending after filtering")
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: table, csv or xlsx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	return cmd
}

// parseFilters turns COLUMN=TEXT pairs into a FilterSet. TEXT may itself contain '='.
func parseFilters(pairs []string) (engine.FilterSet, error) {
	fs := engine.NewFilterSet()
	for _, p := range pairs {
		col, text, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("filter %q: want COLUMN=TEXT", p)
		}
		if !engine.IsFilterColumn(col) {
			return nil, fmt.Errorf("filter %q: %w", col, engine.ErrUnknownColumn)
		}
		fs[col] = text
	}
	return fs, nil
}

func runQuery(cmd *cobra.Command, cfg *config.Config, opts *queryOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	fs, err := parseFilters(opts.filters)
	if err != nil {
		return err
	}

	store, err := engine.NewLoader(cfg.Data.FetchTimeout).Load(cmd.Context(), cfg.Data.Source)
	if err != nil {
		return err
	}
	defer store.Release()

	s := engine.NewScreener(store)
	if err := s.ApplyFilters(fs); err != nil {
		return err
	}
	if opts.sort != "" {
		if err := s.HandleSort(opts.sort); err != nil {
			return err
		}
	}

	rows := s.Rows()
	write := func(w io.Writer) error { return writeView(w, opts.format, rows) }
	if opts.out == "" {
		return write(cmd.OutOrStdout())
	}
	return writeFile(opts.out, write)
}

func writeView(w io.Writer, format string, rows []models.ViewRow) error {
	switch format {
	case "table":
		_, err := fmt.Fprintln(w, export.Table(rows))
		return err
	case "csv":
		return export.WriteCSV(w, rows)
	case "xlsx":
		return export.WriteXLSX(w, rows)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

var createFile = func(name string) (io.WriteCloser, error) { return os.Create(name) }

// writeFile returns the Close error when write itself succeeded.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}
