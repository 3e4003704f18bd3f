package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/coolbeans/sparqlab/pkg/catalog"
	"github.com/coolbeans/sparqlab/pkg/config"
	"github.com/coolbeans/sparqlab/pkg/examples"
	"github.com/coolbeans/sparqlab/pkg/query"
	"github.com/coolbeans/sparqlab/pkg/render"
	"github.com/coolbeans/sparqlab/pkg/repl"
	"github.com/coolbeans/sparqlab/pkg/store"
)

// errReported marks a failure whose message has already been written.
var errReported = errors.New("query failed")

// app is the state shared by every command once configuration is loaded.
type app struct {
	fs       afero.Fs
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.TripleStore
	executor *query.Executor
	examples *examples.Registry
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}

	rootCmd := &cobra.Command{
		Use:   "sparqlab",
		Short: "SPARQL playground over a small library catalog",
		Long: `Sparqlab evaluates a teaching subset of SPARQL SELECT queries against
a built-in catalog of books and authors.

Supported: SELECT with variables and COUNT aggregates, WHERE basic graph
patterns, FILTER comparisons and CONTAINS, one OPTIONAL block, GROUP BY,
ORDER BY and LIMIT.

Settings are read from sparqlab.yaml (in the working directory or
$HOME/.config/sparqlab), from SPARQLAB_* environment variables and from flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default: sparqlab.yaml in . or $HOME/.config/sparqlab)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("dataset", "", "Turtle or N-Triples file to query instead of the built-in catalog")
	flags.String("examples-dir", "", "Directory of additional example queries (YAML)")
	flags.String("optional", "", "OPTIONAL evaluation: first or expand")
	flags.String("aggregation", "", "COUNT without GROUP BY: strict or lenient")

	rootCmd.AddCommand(queryCmd(a))
	rootCmd.AddCommand(examplesCmd(a))
	rootCmd.AddCommand(datasetCmd(a))
	rootCmd.AddCommand(replCmd(a))

	return rootCmd
}

var boundFlags = map[string]string{
	"log-level":    config.KeyLogLevel,
	"dataset":      config.KeyDataset,
	"examples-dir": config.KeyExamplesDir,
	"optional":     config.KeyOptional,
	"aggregation":  config.KeyAggregation,
}

func (a *app) setup(cmd *cobra.Command) error {
	v := config.NewViper(a.fs)
	for flag, key := range boundFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(a.logger)

	if cfg.Dataset != "" {
		ts, err := store.LoadFile(a.fs, cfg.Dataset)
		if err != nil {
			return err
		}
		a.store = ts
		a.logger.Info("dataset loaded", "path", cfg.Dataset, "triples", ts.Count())
	} else {
		a.store = catalog.Store()
	}

	a.executor = query.NewExecutor(a.store, append(cfg.QueryOptions(), query.WithLogger(a.logger))...)

	opts := []examples.Option{examples.WithFs(a.fs), examples.WithLogger(a.logger)}
	if cfg.ExamplesDir != "" {
		registry, err := examples.NewRegistryWithDirectory(cfg.ExamplesDir, opts...)
		if err != nil {
			return fmt.Errorf("loading examples: %w", err)
		}
		a.examples = registry
	} else {
		a.examples = examples.NewRegistry(opts...)
	}
	return nil
}

func queryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [sparql-query]",
		Short: "Run a SPARQL query against the catalog",
		Long: `Execute a SPARQL SELECT query against the catalog. With no argument
the query is read from standard input.

Examples:
  # Every title
  sparqlab query "SELECT ?title WHERE { ?book dc:title ?title . }"

  # Run a built-in example
  sparqlab query --example subject_count

  # JSON output
  sparqlab query -f json "SELECT ?name WHERE { ?a a :Author . ?a rdfs:label ?name . }"

  # From a file
  sparqlab query < books.rq`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exampleName, _ := cmd.Flags().GetString("example")
			showTiming, _ := cmd.Flags().GetBool("timing")
			listExamples, _ := cmd.Flags().GetBool("list-examples")
			out := cmd.OutOrStdout()

			if listExamples {
				printExamples(out, a.examples.List())
				return nil
			}

			format := a.cfg.OutputFormat()
			if cmd.Flags().Changed("format") {
				formatStr, _ := cmd.Flags().GetString("format")
				f, err := render.ParseFormat(formatStr)
				if err != nil {
					return err
				}
				format = f
			}

			var queryStr string
			switch {
			case exampleName != "":
				ex, err := a.examples.Get(exampleName)
				if err != nil {
					return fmt.Errorf("%w\nUse --list-examples to see available examples", err)
				}
				queryStr = ex.Query
				if format == render.FormatTable {
					fmt.Fprintf(out, "Example: %s\n", ex.Name)
					fmt.Fprintf(out, "Description: %s\n\n", ex.Description)
				}
			case len(args) > 0:
				queryStr = args[0]
			default:
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading query: %w", err)
				}
				queryStr = string(data)
			}
			if strings.TrimSpace(queryStr) == "" {
				return fmt.Errorf("provide a query, pipe one on stdin or use --example")
			}

			result, err := a.executor.Execute(cmd.Context(), queryStr)
			if err != nil {
				if werr := render.WriteError(out, err, format); werr != nil {
					return werr
				}
				return errReported
			}
			if err := render.Write(out, result, format); err != nil {
				return err
			}
			if showTiming {
				fmt.Fprintf(cmd.ErrOrStderr(), "Query time: %v\n", result.Elapsed)
			}
			return nil
		},
	}

	cmd.Flags().StringP("example", "e", "", "Run a named example query")
	cmd.Flags().StringP("format", "f", "table", "Output format (table, json, csv, html)")
	cmd.Flags().Bool("timing", false, "Print the evaluation time on stderr")
	cmd.Flags().Bool("list-examples", false, "List available example queries")

	return cmd
}

func printExamples(w io.Writer, list []*examples.Example) {
	fmt.Fprintf(w, "%-20s %-10s %s\n", "NAME", "CATEGORY", "TITLE")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, ex := range list {
		fmt.Fprintf(w, "%-20s %-10s %s\n", ex.Name, ex.Category, ex.Title)
	}
	fmt.Fprintf(w, "\n%d example(s)\n", len(list))
}

func examplesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Browse the example queries",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List example queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			formatStr, _ := cmd.Flags().GetString("format")

			list := a.examples.List()
			if category != "" {
				filtered := make([]*examples.Example, 0, len(list))
				for _, ex := range list {
					if ex.Category == category {
						filtered = append(filtered, ex)
					}
				}
				list = filtered
			}

			if formatStr == "json" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				encoder.SetEscapeHTML(false)
				return encoder.Encode(list)
			}
			printExamples(cmd.OutOrStdout(), list)
			return nil
		},
	}
	listCmd.Flags().String("category", "", "Only list examples in this category")
	listCmd.Flags().StringP("format", "f", "table", "Output format (table, json)")

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print an example query with its explanation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := a.examples.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", ex.Title)
			if ex.Description != "" {
				fmt.Fprintf(out, "%s\n", ex.Description)
			}
			fmt.Fprintf(out, "\n%s\n", strings.TrimRight(ex.Query, "\n"))
			if ex.Explanation != "" {
				fmt.Fprintf(out, "\n%s\n", strings.TrimRight(ex.Explanation, "\n"))
			}
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func datasetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect the queried dataset",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Export the dataset as RDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			format, err := store.ParseFormat(formatStr)
			if err != nil {
				return err
			}
			return store.Encode(cmd.OutOrStdout(), format, a.store, catalog.Vocabulary())
		},
	}
	showCmd.Flags().StringP("format", "f", "turtle", "RDF format (turtle, ntriples, jsonld)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show triple counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			stats := a.store.Stats()

			if formatStr == "json" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				encoder.SetEscapeHTML(false)
				return encoder.Encode(stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Triples:    %d\n", stats.TotalTriples)
			fmt.Fprintf(out, "Subjects:   %d\n", stats.UniqueSubjects)
			fmt.Fprintf(out, "Predicates: %d\n", stats.UniquePredicates)
			fmt.Fprintf(out, "Objects:    %d\n", stats.UniqueObjects)
			fmt.Fprintln(out, "\nPredicate usage:")
			for _, pred := range a.store.Predicates() {
				fmt.Fprintf(out, "  %-14s %d\n", pred, stats.PredicateCounts[pred])
			}
			return nil
		},
	}
	statsCmd.Flags().StringP("format", "f", "table", "Output format (table, json)")

	cmd.AddCommand(showCmd, statsCmd)
	return cmd
}

func replCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive query prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.WatchExamples {
				if err := a.examples.Watch(); err != nil {
					return err
				}
				defer a.examples.StopWatch()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			session := repl.NewSession(a.executor, a.examples, cmd.OutOrStdout(), a.cfg.OutputFormat())
			err := repl.Run(ctx, session, a.fs, a.cfg.HistoryFile)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	return cmd
}
