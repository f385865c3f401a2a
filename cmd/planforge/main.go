package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"planforge/internal/analysis"
	"planforge/internal/config"
	"planforge/internal/logging"
	"planforge/internal/orchestrator"
	"planforge/internal/provider"
	"planforge/internal/store"
)

var version = "0.3.0"

var (
	// Global flags
	verbose      bool
	providerName string

	// generate flags
	complexity  string
	maxTasks    int
	withTeam    bool
	saveProject bool
	optionsFile string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "planforge",
	Short: "planforge - turn project descriptions into validated task hierarchies",
	Long: `planforge generates multi-level project task plans from free-text
descriptions using LLM providers (Anthropic, OpenAI, Gemini) with automatic
fallback, response repair, and structural validation.

Configure API keys in .planforge/config.json or via ANTHROPIC_API_KEY,
OPENAI_API_KEY, or GEMINI_API_KEY.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(".")
		if err != nil {
			return err
		}
		logger, err = logging.New(verbose || cfg.Verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [description]",
	Short: "Generate a task hierarchy from a project description",
	Long: `Generates a validated project plan from a free-text description.
The description is read from the arguments, or from stdin when omitted.

Example:
  planforge generate "Sistema de gestión con módulos INTRANET y COMERCIAL"
  cat brief.txt | planforge generate --complexity detailed --save`,
	RunE: runGenerate,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [description]",
	Short: "Show the structural analysis of a description without generating",
	RunE:  runAnalyze,
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect the configured providers",
	RunE:  runProvidersList,
}

var providersTestCmd = &cobra.Command{
	Use:   "test [provider]",
	Short: "Run a connection check against one provider (or all)",
	RunE:  runProvidersTest,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List saved projects",
	RunE:  runProjectsList,
}

var projectsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print one saved project as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsShow,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a saved project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the planforge version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("planforge %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "pin a provider (anthropic, openai, gemini)")

	generateCmd.Flags().StringVar(&complexity, "complexity", "", "detail level: basic, medium, detailed")
	generateCmd.Flags().IntVar(&maxTasks, "max-tasks", 0, "cap on total task count")
	generateCmd.Flags().BoolVar(&withTeam, "team", false, "include suggested team members")
	generateCmd.Flags().BoolVar(&saveProject, "save", false, "persist the project to the local database")
	generateCmd.Flags().StringVar(&optionsFile, "options", "", "YAML file with generation options")

	providersCmd.AddCommand(providersTestCmd)
	projectsCmd.AddCommand(projectsShowCmd, projectsDeleteCmd)
	rootCmd.AddCommand(generateCmd, analyzeCmd, providersCmd, projectsCmd, versionCmd)
}

// generationOptions is the YAML shape accepted by --options. Delays are
// duration strings ("500ms", "2s").
type generationOptions struct {
	Complexity  string `yaml:"complexity"`
	MaxTasks    int    `yaml:"max_tasks"`
	TeamMembers bool   `yaml:"team_members"`
	MaxRetries  int    `yaml:"max_retries"`
	BaseDelay   string `yaml:"base_delay"`
	CapDelay    string `yaml:"cap_delay"`
}

func loadOptions(path string) (provider.GenerateOptions, error) {
	opts := provider.GenerateOptions{
		Complexity:         complexity,
		MaxTasks:           maxTasks,
		IncludeTeamMembers: withTeam,
	}
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options file: %w", err)
	}
	var fileOpts generationOptions
	if err := yaml.Unmarshal(data, &fileOpts); err != nil {
		return opts, fmt.Errorf("parse options file: %w", err)
	}

	// Flags win over the file.
	if opts.Complexity == "" {
		opts.Complexity = fileOpts.Complexity
	}
	if opts.MaxTasks == 0 {
		opts.MaxTasks = fileOpts.MaxTasks
	}
	if !opts.IncludeTeamMembers {
		opts.IncludeTeamMembers = fileOpts.TeamMembers
	}
	opts.MaxRetries = fileOpts.MaxRetries
	if fileOpts.BaseDelay != "" {
		d, err := time.ParseDuration(fileOpts.BaseDelay)
		if err != nil {
			return opts, fmt.Errorf("parse base_delay: %w", err)
		}
		opts.BaseDelay = d
	}
	if fileOpts.CapDelay != "" {
		d, err := time.ParseDuration(fileOpts.CapDelay)
		if err != nil {
			return opts, fmt.Errorf("parse cap_delay: %w", err)
		}
		opts.CapDelay = d
	}
	return opts, nil
}

func readPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("no project description given (pass it as an argument or on stdin)")
	}
	return prompt, nil
}

func newOrchestrator() (*orchestrator.Orchestrator, error) {
	o := orchestrator.New(logger)
	if err := o.Configure(cfg.Credentials()); err != nil {
		logger.Warn("some providers failed to configure", zap.Error(err))
	}
	pin := providerName
	if pin == "" {
		pin = cfg.Provider
	}
	if pin != "" {
		if err := o.SetProvider(pin); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args)
	if err != nil {
		return err
	}
	opts, err := loadOptions(optionsFile)
	if err != nil {
		return err
	}

	o, err := newOrchestrator()
	if err != nil {
		return err
	}

	out := o.GenerateWithFallback(cmd.Context(), prompt, opts)
	if !out.Success {
		for _, e := range out.Errors {
			fmt.Fprintln(os.Stderr, "error:", e)
		}
		return fmt.Errorf("generation failed after %d provider attempts", len(out.Attempts))
	}

	if saveProject {
		if err := saveToStore(cmd.Context(), out.Project, out.Provider); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved project %s\n", out.Project.ID)
	}

	return printJSON(out.Project)
}

func saveToStore(ctx context.Context, p *provider.Project, providerName string) error {
	s, err := store.New(cfg.Database("."))
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SaveProject(ctx, p, providerName)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args)
	if err != nil {
		return err
	}
	an := analysis.Analyze(prompt)
	return printJSON(an)
}

func runProvidersList(cmd *cobra.Command, args []string) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}
	creds := cfg.Credentials()
	for _, name := range o.Providers() {
		state := "no key"
		if _, ok := creds[name]; ok {
			state = "configured"
		}
		marker := " "
		if name == cfg.DefaultProvider() {
			marker = "*"
		}
		fmt.Printf("%s %-10s %s\n", marker, name, state)
	}
	return nil
}

func runProvidersTest(cmd *cobra.Command, args []string) error {
	o, err := newOrchestrator()
	if err != nil {
		return err
	}

	names := o.Providers()
	if len(args) > 0 {
		names = []string{args[0]}
	}

	failed := false
	for _, name := range names {
		status, err := o.TestProvider(cmd.Context(), name)
		switch {
		case err != nil:
			fmt.Printf("%-10s error: %v\n", name, err)
			failed = true
		case status.Success:
			fmt.Printf("%-10s ok: %s\n", name, status.Message)
		default:
			fmt.Printf("%-10s failed: %s\n", name, status.Message)
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("one or more providers are not usable")
	}
	return nil
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	s, err := store.New(cfg.Database("."))
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no saved projects")
		return nil
	}
	for _, p := range list {
		fmt.Printf("%s  %-30s  %3d tasks  %s\n",
			p.ID, p.Name, p.TaskCount, p.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	s, err := store.New(cfg.Database("."))
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.GetProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(p)
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	s, err := store.New(cfg.Database("."))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteProject(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted project %s\n", args[0])
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
