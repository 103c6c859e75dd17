package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Napageneral/transcript/internal/chatdb"
	"github.com/Napageneral/transcript/internal/config"
	"github.com/Napageneral/transcript/internal/export"
	"github.com/Napageneral/transcript/internal/live"
	"github.com/Napageneral/transcript/internal/oracle"
)

var (
	version    = "dev"
	commit     = "none"
	buildDate  = "unknown"
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "transcript",
		Short: "iMessage history extractor",
		Long: `Transcript extracts your complete iMessage history from the local
Messages database into a single JSON snapshot, with contact name
resolution, incremental updates, and conversation statistics.`,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	// version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
			} else {
				fmt.Printf("transcript %s (%s, %s)\n", version, commit, buildDate)
			}
		},
	})

	// export command
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Run a full export of the message history",
		Run: func(cmd *cobra.Command, args []string) {
			opts, _, err := buildOptions(cmd)
			if err != nil {
				fail(err)
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				opts.MessageLimit = limit
			}
			res, err := export.Full(signalContext(), opts)
			if err != nil {
				fail(err)
			}
			printResult(res, opts.DatasetPath)
		},
	}
	exportCmd.Flags().Int("limit", 0, "Maximum number of messages to extract")
	exportCmd.Flags().String("chat-db", "", "Path to chat.db (overrides config)")
	exportCmd.Flags().Bool("no-resolve", false, "Skip contact directory lookups")
	rootCmd.AddCommand(exportCmd)

	// update command
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Merge messages newer than the last snapshot",
		Run: func(cmd *cobra.Command, args []string) {
			opts, _, err := buildOptions(cmd)
			if err != nil {
				fail(err)
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				opts.UpdateLimit = limit
			}
			res, err := export.Update(signalContext(), opts)
			if err != nil {
				fail(err)
			}
			printResult(res, opts.DatasetPath)
		},
	}
	updateCmd.Flags().Int("limit", 0, "Maximum number of new messages to extract")
	updateCmd.Flags().String("chat-db", "", "Path to chat.db (overrides config)")
	updateCmd.Flags().Bool("no-resolve", false, "Skip contact directory lookups")
	rootCmd.AddCommand(updateCmd)

	// contacts command
	contactsCmd := &cobra.Command{
		Use:   "contacts",
		Short: "Re-resolve contact names in the existing snapshot",
		Run: func(cmd *cobra.Command, args []string) {
			opts, _, err := buildOptions(cmd)
			if err != nil {
				fail(err)
			}
			if opts.Oracle == nil {
				fail(fmt.Errorf("no contact directory available (enable the oracle in config)"))
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				opts.SweepLimit = limit
			}
			res, err := export.Contacts(signalContext(), opts)
			if err != nil {
				fail(err)
			}
			printResult(res, opts.DatasetPath)
		},
	}
	contactsCmd.Flags().Int("limit", 0, "Maximum number of contacts to look up")
	rootCmd.AddCommand(contactsCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch chat.db and update the snapshot on changes",
		Run: func(cmd *cobra.Command, args []string) {
			opts, cfg, err := buildOptions(cmd)
			if err != nil {
				fail(err)
			}
			debounce := time.Duration(cfg.Watch.DebounceSeconds) * time.Second
			if secs, _ := cmd.Flags().GetInt("debounce"); secs > 0 {
				debounce = time.Duration(secs) * time.Second
			}
			w := live.New(opts, debounce, func(format string, args ...any) {
				fmt.Printf(format+"\n", args...)
			})
			if err := w.Run(signalContext()); err != nil {
				fail(err)
			}
		},
	}
	watchCmd.Flags().Int("debounce", 0, "Seconds to wait after the last change before updating")
	watchCmd.Flags().String("chat-db", "", "Path to chat.db (overrides config)")
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildOptions assembles run options from config plus shared flags.
func buildOptions(cmd *cobra.Command) (export.Options, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return export.Options{}, nil, fmt.Errorf("load config: %w", err)
	}

	chatDBPath := cfg.ChatDBPath
	if override, _ := cmd.Flags().GetString("chat-db"); override != "" {
		chatDBPath = override
	}
	if chatDBPath == "" {
		chatDBPath = chatdb.DefaultPath()
	}

	datasetPath, err := config.DatasetPath()
	if err != nil {
		return export.Options{}, nil, err
	}
	mappingsPath, err := config.MappingsPath()
	if err != nil {
		return export.Options{}, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(datasetPath), 0755); err != nil {
		return export.Options{}, nil, fmt.Errorf("create data directory: %w", err)
	}

	opts := export.Options{
		ChatDBPath:   chatDBPath,
		DatasetPath:  datasetPath,
		MappingsPath: mappingsPath,
		MessageLimit: cfg.MessageLimit,
		UpdateLimit:  cfg.UpdateLimit,
		SweepLimit:   cfg.Oracle.SweepLimit,
		SweepWorkers: cfg.Oracle.Workers,
		Logf: func(format string, args ...any) {
			if !jsonOutput {
				fmt.Printf(format+"\n", args...)
			}
		},
	}

	noResolve, _ := cmd.Flags().GetBool("no-resolve")
	if cfg.Oracle.Enabled && !noResolve {
		opts.Oracle = buildOracle(cfg)
	}
	return opts, cfg, nil
}

// buildOracle chains the AddressBook database (fast, read-only) ahead of
// the per-contact AppleScript fallback.
func buildOracle(cfg *config.Config) oracle.Oracle {
	var chain oracle.Chain
	if path := oracle.FindAddressBookPath(); path != "" {
		if ab, err := oracle.OpenAddressBook(path); err == nil {
			chain = append(chain, ab)
		}
	}
	chain = append(chain, oracle.AppleScript{
		Timeout: time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
	})
	return chain
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func printResult(res export.Result, datasetPath string) {
	if jsonOutput {
		printJSON(res)
		return
	}
	fmt.Printf("\n%s run complete in %s\n", res.Mode, res.Duration.Round(time.Millisecond))
	fmt.Printf("  Messages: %d total, %d new\n", res.TotalMessages, res.NewMessages)
	fmt.Printf("  Contacts: %d (%d resolved this run)\n", res.Contacts, res.Resolved)
	fmt.Printf("  Snapshot: %s\n", datasetPath)
}

func fail(err error) {
	if jsonOutput {
		printJSON(map[string]any{"ok": false, "message": err.Error()})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
