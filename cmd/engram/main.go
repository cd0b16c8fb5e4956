package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/engramdb/engram/internal/cli"
	"github.com/engramdb/engram/internal/config"
	"github.com/engramdb/engram/internal/logger"
	"github.com/engramdb/engram/internal/memory"
)

var (
	version = "0.1.0"
)

func main() {
	var configDir string
	var tagsFlag string
	var contextFlag string
	var limitFlag int
	var minImportanceFlag int

	rootCmd := &cobra.Command{
		Use:   "engram",
		Short: "Engram - file-backed memory store",
		Long: `Engram is a personal memory store backed by plain JSON files.

It can:
  • Save notes with automatic importance scoring
  • Mirror high-importance notes into a highlights area
  • Search by text, tags, importance, and content type
  • Verify that the on-disk records match the cache
  • Journal every write through a transaction log`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configDir != "" {
				config.SetConfigDir(configDir)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cli.Run(cfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ./config)")

	// remember subcommand
	rememberCmd := &cobra.Command{
		Use:   "remember <content>",
		Short: "Save a memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withSystem(cfg, func(sys *memory.System) error {
				id, err := sys.Save(strings.Join(args, " "), splitTags(tagsFlag), contextFlag)
				if err != nil {
					return err
				}
				m, err := sys.Store().Get(id)
				if err != nil {
					return err
				}
				fmt.Printf("Saved %s (importance %d, type %s)\n", m.ID, m.Importance, m.ContentType)
				return nil
			})
		},
	}
	rememberCmd.Flags().StringVarP(&tagsFlag, "tags", "t", "", "comma-separated tags")
	rememberCmd.Flags().StringVarP(&contextFlag, "context", "c", "", "free-text context for the memory")

	// recall subcommand
	recallCmd := &cobra.Command{
		Use:   "recall <text>",
		Short: "Search memories by text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withSystem(cfg, func(sys *memory.System) error {
				results, err := sys.RetrieveRelevant(strings.Join(args, " "), limitFlag)
				if err != nil {
					return err
				}
				printResults(results)
				return nil
			})
		},
	}
	recallCmd.Flags().IntVarP(&limitFlag, "limit", "n", 10, "maximum results")

	// list subcommand
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withSystem(cfg, func(sys *memory.System) error {
				results, err := sys.Retrieve(memory.Query{
					MinImportance: minImportanceFlag,
					SortBy:        memory.SortByDate,
					SortDirection: memory.SortDescending,
					Limit:         limitFlag,
				})
				if err != nil {
					return err
				}
				printResults(results)
				return nil
			})
		},
	}
	listCmd.Flags().IntVarP(&limitFlag, "limit", "n", 10, "maximum results")
	listCmd.Flags().IntVar(&minImportanceFlag, "min-importance", 0, "importance floor")

	// stats subcommand
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withSystem(cfg, func(sys *memory.System) error {
				stats := sys.Maintenance().UpdateStatistics()
				fmt.Printf("Memories: %d (highlights: %d)\n", stats.TotalMemories, stats.TotalHighlights)
				fmt.Printf("Average importance: %.1f\n", stats.AverageImportance)
				fmt.Printf("Content size: %d bytes\n", stats.TotalSizeBytes)
				for ct, count := range stats.ByContentType {
					fmt.Printf("  %s: %d\n", ct, count)
				}
				return nil
			})
		},
	}

	// verify subcommand
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check cache/disk consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withSystem(cfg, func(sys *memory.System) error {
				report, err := sys.Maintenance().VerifyConsistency()
				if err != nil {
					return err
				}
				fmt.Printf("Cached: %d, files: %d\n", report.TotalCached, report.TotalFiles)
				if report.IsConsistent() {
					fmt.Println("Store is consistent")
					return nil
				}
				for _, f := range report.Findings {
					fmt.Printf("  %s: %s\n", f.ID, f.Problem)
				}
				return fmt.Errorf("%d consistency finding(s)", len(report.Findings))
			})
		},
	}

	// reindex subcommand
	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild all secondary indices from disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withSystem(cfg, func(sys *memory.System) error {
				sys.Indexer().ForceDrain()
				sys.Indexes().RebuildAll()
				fmt.Println("Indices rebuilt")
				return nil
			})
		},
	}

	// config subcommand
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Println(cfg.String())

			path, _ := config.ConfigPath()
			fmt.Printf("\nConfig file path: %s\n", path)
			return nil
		},
	}

	// version subcommand
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Engram v%s\n", version)
		},
	}

	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		LogDir:     config.LogDir(),
		Level:      parseLogLevel(cfg.Log.Level),
		MaxDays:    cfg.Log.MaxDays,
		ConsoleOut: cfg.Log.ConsoleOut,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// withSystem opens the memory system for one command and closes it after.
func withSystem(cfg *config.Config, fn func(*memory.System) error) error {
	sys, err := memory.Open(memory.Options{
		Root:          cfg.Store.Root,
		DrainInterval: time.Duration(cfg.Indexer.DrainIntervalMs) * time.Millisecond,
		Catalog:       cfg.Catalog.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to open memory store: %w", err)
	}
	defer sys.Close()

	return fn(sys)
}

// printResults renders a result list for one-shot commands.
func printResults(results []*memory.Memory) {
	if len(results) == 0 {
		fmt.Println("No memories found")
		return
	}
	for _, m := range results {
		content := strings.ReplaceAll(m.Content, "\n", " ")
		if len(content) > 80 {
			content = content[:80] + "..."
		}
		fmt.Printf("[%3d] %s  %s\n", m.Importance, m.ID, content)
		if len(m.Tags) > 0 {
			fmt.Printf("      tags: %s\n", strings.Join(m.Tags, ", "))
		}
	}
}

// parseLogLevel maps the config string to a logger level.
func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG
	case "warn":
		return logger.WARN
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

// splitTags splits a comma-separated tag list, dropping empties.
func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
