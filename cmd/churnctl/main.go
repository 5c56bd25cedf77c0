package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/liamcoop/churn/inference"
	"github.com/liamcoop/churn/internal/logger"
	"github.com/liamcoop/churn/prediction"
	"github.com/liamcoop/churn/schema"
)

// exitMismatch is the process exit status for an unresolved schema.
const exitMismatch = 2

// exitError carries a process exit status. Its output has already been
// written.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

type options struct {
	modelPath   string
	mappingPath string
	format      string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "churnctl",
		Short:         "Score customer CSV files with a churn model bundle",
		Long:          `churnctl runs the churn prediction service offline: it reconciles a CSV with the model's required columns and prints per-customer churn probabilities.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.modelPath, "model", "m", "", "Model bundle JSON file (default: $CHURN_MODEL_PATH)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	predict := &cobra.Command{
		Use:   "predict <file.csv>",
		Short: "Predict churn for every row of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, opts, args[0])
		},
	}
	predict.Flags().StringVar(&opts.mappingPath, "mapping", "", "JSON file mapping required columns to CSV columns")
	predict.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format: json or csv")

	columns := &cobra.Command{
		Use:   "columns",
		Short: "Print the columns the model requires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(opts)
			if err != nil {
				return err
			}
			for _, c := range model.RequiredColumns() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}

	suggest := &cobra.Command{
		Use:   "suggest <file.csv>",
		Short: "Print the suggested column mapping for a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(opts)
			if err != nil {
				return err
			}
			table, err := readTable(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), schema.Suggest(model.RequiredColumns(), table.Columns))
		},
	}

	root.AddCommand(predict, columns, suggest)
	return root
}

func loadModel(opts *options) (*inference.Model, error) {
	path := opts.modelPath
	if path == "" {
		path = os.Getenv("CHURN_MODEL_PATH")
	}
	if path == "" {
		return nil, errors.New("--model or CHURN_MODEL_PATH must be specified")
	}
	return inference.LoadBundle(path)
}

func readTable(path string) (*schema.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	table, err := schema.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("invalid CSV %s: %w", path, err)
	}
	return table, nil
}

func readMapping(path string) (schema.Mapping, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}
	mapping, err := prediction.ParseColumnMapping(string(data))
	if err != nil {
		return nil, fmt.Errorf("invalid mapping %s: %w", path, err)
	}
	if mapping == nil {
		mapping = schema.Mapping{}
	}
	return mapping, nil
}

func runPredict(cmd *cobra.Command, opts *options, csvPath string) error {
	if opts.format != "json" && opts.format != "csv" {
		return fmt.Errorf("invalid format: %s (must be 'json' or 'csv')", opts.format)
	}

	model, err := loadModel(opts)
	if err != nil {
		return err
	}
	explicit, err := readMapping(opts.mappingPath)
	if err != nil {
		return err
	}
	table, err := readTable(csvPath)
	if err != nil {
		return err
	}

	log := logger.NewNoOpLogger()
	if opts.verbose {
		log = logger.NewStructured("debug", "console")
	}

	rows, err := prediction.NewService(model, log).Predict(table, explicit)
	if err != nil {
		var mismatch *prediction.SchemaMismatch
		if errors.As(err, &mismatch) {
			if werr := writeJSON(cmd.OutOrStdout(), mismatch); werr != nil {
				return werr
			}
			return &exitError{code: exitMismatch, err: err}
		}
		return err
	}

	if opts.format == "csv" {
		return writeCSV(cmd.OutOrStdout(), rows)
	}
	return writeJSON(cmd.OutOrStdout(), rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(w io.Writer, rows []prediction.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"customer_id", "churn_probability", "churn_label"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.RowID,
			strconv.FormatFloat(r.Probability, 'f', -1, 64),
			strconv.Itoa(r.Label),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
