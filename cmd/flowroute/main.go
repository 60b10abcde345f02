package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/zen-systems/flowroute/pkg/adapter"
	"github.com/zen-systems/flowroute/pkg/config"
	"github.com/zen-systems/flowroute/pkg/evals"
	"github.com/zen-systems/flowroute/pkg/evidence"
	"github.com/zen-systems/flowroute/pkg/router"
)

// cli holds the persistent flags shared by every command.
type cli struct {
	workDir string
	evalsDB string
	verbose bool
}

var printer = message.NewPrinter(language.English)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "flowroute",
		Short: "Recommend the model to run a task with, based on eval history",
		Long: `Flowroute classifies a task prompt, aggregates historical eval records
per model, and recommends the model and agent most likely to succeed.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.workDir, "dir", ".", "repository directory holding .flowroute/")
	rootCmd.PersistentFlags().StringVar(&c.evalsDB, "evals-db", "", "read eval records from this SQLite database instead of JSONL files")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(c.recommendCmd())
	rootCmd.AddCommand(c.classifyCmd())
	rootCmd.AddCommand(c.statsCmd())
	rootCmd.AddCommand(c.askCmd())
	rootCmd.AddCommand(c.enabledCmd())
	rootCmd.AddCommand(c.validateConfigCmd())
	rootCmd.AddCommand(c.modelsCmd())
	rootCmd.AddCommand(c.evalsCmd())
	rootCmd.AddCommand(c.decisionsCmd())

	return rootCmd
}

// routerFlags are call-site overrides for the router options.
type routerFlags struct {
	evalsDir     string
	defaultModel string
	models       []string
	minRecords   int
	minModels    int
	defaultAgent string
}

func (f *routerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.evalsDir, "evals-dir", "", "directory of *.jsonl eval records")
	cmd.Flags().StringVar(&f.defaultModel, "default-model", "", "model used when eval data is insufficient")
	cmd.Flags().StringSliceVar(&f.models, "model", nil, "restrict candidates to these models (repeatable)")
	cmd.Flags().IntVar(&f.minRecords, "min-records", 0, "minimum eval records required")
	cmd.Flags().IntVar(&f.minModels, "min-models", 0, "minimum distinct models required")
	cmd.Flags().StringVar(&f.defaultAgent, "default-agent", "", "agent used when no rule matches")
}

func (f *routerFlags) options(cmd *cobra.Command) *config.RouterOptions {
	opts := &config.RouterOptions{
		EvalsDir:     f.evalsDir,
		DefaultModel: f.defaultModel,
		Models:       f.models,
		DefaultAgent: f.defaultAgent,
	}
	if cmd.Flags().Changed("min-records") {
		opts.MinRecords = config.Int(f.minRecords)
	}
	if cmd.Flags().Changed("min-models") {
		opts.MinModels = config.Int(f.minModels)
	}
	return opts
}

func (c *cli) recommendCmd() *cobra.Command {
	var flags routerFlags
	var jsonOut bool
	var outDir string

	cmd := &cobra.Command{
		Use:   "recommend [prompt]",
		Short: "Recommend a model and agent for a prompt",
		Long: `Recommends the model to run a prompt with. The prompt is read from stdin
when no argument is given.

Use --out to record the decision under a directory for later attribution.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}

			engine, closeSource, err := c.newEngine()
			if err != nil {
				return err
			}
			defer closeSource()

			rec, err := engine.Recommend(cmd.Context(), prompt, flags.options(cmd))
			if err != nil {
				return err
			}

			if outDir != "" {
				record, err := recordDecision(outDir, prompt, rec, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Decision recorded: %s\n", record.ID)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			return printRecommendation(cmd.OutOrStdout(), rec)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the recommendation as JSON")
	cmd.Flags().StringVar(&outDir, "out", "", "write a decision record to this directory")
	return cmd
}

func (c *cli) classifyCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "classify [prompt]",
		Short: "Show the task type and characteristics of a prompt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}
			chars := router.AnalyzePrompt(prompt)
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), chars)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Task type:\t%s\n", chars.TaskType)
			fmt.Fprintf(w, "Length:\t%s (%s chars)\n", chars.Length, printer.Sprintf("%d", chars.CharCount))
			fmt.Fprintf(w, "Complexity:\t%d\n", chars.ComplexityScore)
			fmt.Fprintf(w, "File types:\t%s\n", formatList(chars.FileTypes))
			fmt.Fprintf(w, "Risk flags:\t%s\n", formatList(chars.RiskFlags))
			fmt.Fprintf(w, "Greenfield:\t%t\n", chars.Greenfield)
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the characteristics as JSON")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	var taskFlag string
	var evalsDir string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregated eval statistics per model",
		RunE: func(cmd *cobra.Command, args []string) error {
			taskType := router.TaskUnknown
			if taskFlag != "" {
				t, ok := router.ParseTaskType(taskFlag)
				if !ok {
					return fmt.Errorf("unknown task type %q", taskFlag)
				}
				taskType = t
			}

			source, closeSource, err := c.openSource()
			if err != nil {
				return err
			}
			defer closeSource()

			opts := config.ResolveRouterOptions(config.RouterOptions{EvalsDir: evalsDir}, config.LoadRouterOptions(c.workDir))
			records, err := source.ReadRecords(cmd.Context(), resolveDir(c.workDir, opts.EvalsDir))
			if err != nil {
				return fmt.Errorf("reading eval records: %w", err)
			}
			stats := router.AggregateEvalHistory(records, taskType)
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), stats)
			}

			out := cmd.OutOrStdout()
			printer.Fprintf(out, "%d records across %d models\n\n", len(records), evals.DistinctModels(records))
			return printStats(out, stats)
		},
	}

	cmd.Flags().StringVar(&taskFlag, "task-type", "", "score task-specific history for this task type")
	cmd.Flags().StringVar(&evalsDir, "evals-dir", "", "directory of *.jsonl eval records")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print statistics as JSON")
	return cmd
}

func (c *cli) askCmd() *cobra.Command {
	var flags routerFlags
	var dryRun bool
	var outDir string

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a prompt to the recommended model",
		Long: `Recommends a model for the prompt and sends the prompt to the provider
serving it. Transient provider errors are retried with backoff.

Use --dry-run to print the route without calling the provider.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			creds, err := config.LoadCredentials(config.DefaultEnvFile(c.workDir))
			if err != nil {
				return fmt.Errorf("failed to load credentials: %w", err)
			}
			adapters, err := createAdapters(ctx, creds)
			if err != nil {
				return fmt.Errorf("failed to create adapters: %w", err)
			}

			engine, closeSource, err := c.newEngine()
			if err != nil {
				return err
			}
			defer closeSource()

			fileCfg := config.LoadFileConfig(c.workDir)
			dispatcher := router.NewDispatcher(engine, adapters,
				router.WithCatalogue(c.aliases()),
				router.WithRetryConfig(fileCfg.Retry),
			)

			if dryRun {
				route, err := dispatcher.Route(ctx, prompt, flags.options(cmd))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), route)
			}

			result, err := dispatcher.Send(ctx, prompt, flags.options(cmd))
			if result != nil && outDir != "" {
				report := result.Report
				if _, recErr := recordDecision(outDir, prompt, result.Route.Recommendation, &report); recErr != nil {
					slog.Warn("failed to record decision", "error", recErr)
				}
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Routing to %s/%s\n", result.Route.Adapter, result.Route.Model)
			fmt.Fprintln(cmd.OutOrStdout(), result.Response.Content)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the route without sending the prompt")
	cmd.Flags().StringVar(&outDir, "out", "", "write a decision record to this directory")
	return cmd
}

func (c *cli) enabledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enabled",
		Short: "Report whether routing is enabled for the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.IsRouterEnabled(c.workDir))
			return nil
		},
	}
}

func (c *cli) validateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config [path]",
		Short: "Validate the routing configuration file",
		Long: `Checks the configuration file against its schema and checks that every
configured model is known to the model catalogue. Without a path, the
repository's .flowroute/config file is validated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigPath(c.workDir)
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No configuration file found - defaults apply.")
				return nil
			}

			problems, err := config.ValidateConfigFile(path)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				for _, err := range c.aliases().ValidateRouterOptions(config.LoadRouterOptions(c.workDir)) {
					problems = append(problems, err.Error())
				}
			}

			if len(problems) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid.\n", path)
				return nil
			}
			errOut := cmd.ErrOrStderr()
			printer.Fprintf(errOut, "Found %d validation errors in %s:\n", len(problems), path)
			for _, p := range problems {
				fmt.Fprintf(errOut, "  - %s\n", p)
			}
			return fmt.Errorf("validation failed")
		},
	}
}

func (c *cli) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List model aliases and providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			aliases := c.aliases()
			out := cmd.OutOrStdout()

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ALIAS\tMODEL\tPROVIDER\tAGENT")
			aliasMap := aliases.ListAliases()
			names := make([]string, 0, len(aliasMap))
			for name := range aliasMap {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				model := aliasMap[name]
				agent := router.ResolveAgent(model, nil, config.DefaultAgent)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, model, aliases.GetProviderForModel(model), agent)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODELS")
			for _, provider := range aliases.ListProviders() {
				fmt.Fprintf(w, "%s\t%s\n", provider, formatList(aliases.GetProviderModels(provider)))
			}
			return w.Flush()
		},
	}
}

func (c *cli) evalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evals",
		Short: "Manage the eval record store",
	}

	var dbPath string
	importCmd := &cobra.Command{
		Use:   "import [file-or-dir...]",
		Short: "Import JSONL eval records into a SQLite database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := dbPath
			if path == "" {
				path = resolveDir(c.workDir, evals.DefaultDatabase)
			}
			store, err := evals.OpenSQLiteStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			total, err := importRecords(ctx, store, args)
			if err != nil {
				return err
			}
			count, err := store.Count(ctx)
			if err != nil {
				return err
			}
			printer.Fprintf(cmd.OutOrStdout(), "Imported %d records into %s (%d total)\n", total, store.Path(), count)
			return nil
		},
	}
	importCmd.Flags().StringVar(&dbPath, "db", "", "database path (default .flowroute/evals.db)")

	cmd.AddCommand(importCmd)
	return cmd
}

func (c *cli) decisionsCmd() *cobra.Command {
	var logDir string

	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Inspect recorded routing decisions",
	}
	cmd.PersistentFlags().StringVar(&logDir, "log", "", "decision directory (default .flowroute/decisions)")

	openLog := func() (*evidence.Writer, error) {
		dir := logDir
		if dir == "" {
			dir = resolveDir(c.workDir, evidence.DefaultDir)
		}
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("no decision log at %s: %w", dir, err)
		}
		return evidence.NewWriter(dir)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded decisions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := openLog()
			if err != nil {
				return err
			}
			records, err := log.List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tMODEL\tAGENT\tCONFIDENCE\tTASK")
			for _, r := range records {
				if r.Recommendation == nil {
					continue
				}
				rec := r.Recommendation
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Timestamp.Format(time.RFC3339), rec.RecommendedModel, rec.RecommendedAgent, rec.Confidence, rec.TaskType)
			}
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a recorded decision as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := openLog()
			if err != nil {
				return err
			}
			record, err := log.Read(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func importRecords(ctx context.Context, store *evals.SQLiteStore, paths []string) (int, error) {
	src := evals.NewJSONLSource("")
	total := 0
	for _, p := range paths {
		records, err := src.ReadRecords(ctx, p)
		if err != nil {
			return total, fmt.Errorf("reading %s: %w", p, err)
		}
		n, err := store.Insert(ctx, records)
		if err != nil {
			return total, fmt.Errorf("importing %s: %w", p, err)
		}
		total += n
	}
	return total, nil
}

// openSource returns the configured record source and a func releasing it.
func (c *cli) openSource() (evals.Source, func(), error) {
	if c.evalsDB == "" {
		return evals.NewJSONLSource(""), func() {}, nil
	}
	store, err := evals.OpenSQLiteStore(resolveDir(c.workDir, c.evalsDB))
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func (c *cli) newEngine() (*router.Engine, func(), error) {
	source, closeSource, err := c.openSource()
	if err != nil {
		return nil, nil, err
	}
	engine := router.NewEngine(evals.NewCachedSource(source),
		router.WithWorkDir(c.workDir),
		router.WithAliases(c.aliases()),
	)
	return engine, closeSource, nil
}

func (c *cli) aliases() *config.ModelAliases {
	aliases, err := config.LoadAliasesForDir(c.workDir)
	if err != nil {
		slog.Warn("failed to load model aliases, using defaults", "error", err)
		return config.DefaultAliases()
	}
	return aliases
}

func createAdapters(ctx context.Context, creds *config.Credentials) (map[string]adapter.Adapter, error) {
	adapters := map[string]adapter.Adapter{
		"mock": adapter.NewMockAdapter(),
	}

	if creds.HasAdapter("anthropic") {
		a, err := adapter.NewAnthropicAdapter(creds.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		adapters[a.Name()] = a
	}
	if creds.HasAdapter("openai") {
		a, err := adapter.NewOpenAIAdapter(creds.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		adapters[a.Name()] = a
	}
	if creds.HasAdapter("google") {
		a, err := adapter.NewGoogleAdapter(ctx, creds.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		adapters[a.Name()] = a
	}

	return adapters, nil
}

func recordDecision(dir, prompt string, rec *router.ModelRecommendation, call *adapter.CallReport) (evidence.DecisionRecord, error) {
	writer, err := evidence.NewWriter(dir)
	if err != nil {
		return evidence.DecisionRecord{}, fmt.Errorf("failed to open decision log: %w", err)
	}
	return writer.Record(prompt, rec, call)
}

func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	return prompt, nil
}

func printRecommendation(out io.Writer, rec *router.ModelRecommendation) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Model:\t%s\n", rec.RecommendedModel)
	fmt.Fprintf(w, "Agent:\t%s\n", rec.RecommendedAgent)
	fmt.Fprintf(w, "Confidence:\t%s\n", rec.Confidence)
	fmt.Fprintf(w, "Task type:\t%s\n", rec.TaskType)
	fmt.Fprintf(w, "Cost:\t%s\n", rec.CostEstimate)
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s\n", rec.Reasoning)

	if len(rec.Candidates) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	return printStats(out, rec.Candidates)
}

func printStats(out io.Writer, stats []router.ModelStats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tRECORDS\tTASK RECORDS\tAVG SCORE\tTASK SCORE\tSUCCESS\tAVG TIME\tINTERVENTIONS\tCOST")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%.0f%%\t%.1fs\t%.2f\t%s\n",
			s.ModelID,
			printer.Sprintf("%d", s.TotalRecords),
			printer.Sprintf("%d", s.TaskTypeRecords),
			s.AvgScore,
			formatOptional(s.TaskTypeAvgScore, "%.2f"),
			s.SuccessRate*100,
			s.AvgTimeSeconds,
			s.AvgInterventionCount,
			formatOptional(s.AvgWorkflowCost, "$%.2f"),
		)
	}
	return w.Flush()
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// resolveDir resolves a relative path against the repository directory.
func resolveDir(workDir, path string) string {
	if path == "" || workDir == "" || workDir == "." || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
