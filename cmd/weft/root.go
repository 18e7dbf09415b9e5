package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	weft "github.com/loomworks/weft"
	"github.com/loomworks/weft/internal/adapters/agent"
	"github.com/loomworks/weft/internal/adapters/file"
	redisstore "github.com/loomworks/weft/internal/adapters/redis"
	"github.com/loomworks/weft/internal/logging"
	"github.com/loomworks/weft/pkg/bridge"
)

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "Weft is a workflow graph editor engine",
	Long:  `Weft manages workflow graphs of agent-backed nodes: wiring, execution state and templates, over HTTP, MCP or the terminal.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("templates", "", "Directory containing template YAML files")
	rootCmd.PersistentFlags().String("snapshots", "", "Directory for snapshot files (in-memory when empty)")
	rootCmd.PersistentFlags().String("redis", "", "Redis address for snapshot storage (overrides --snapshots)")
	rootCmd.PersistentFlags().String("agent", "", "Agent backend base URL (local echo when empty)")
}

// newEngine assembles an engine from the persistent flags, plus any extra
// options the command wants to add (e.g. SSE hooks for serve).
func newEngine(cmd *cobra.Command, extra ...weft.Option) (*weft.Engine, error) {
	levelStr, _ := cmd.Flags().GetString("log-level")
	logger := logging.New(logging.ParseLevel(levelStr))

	opts := []weft.Option{weft.WithLogger(logger)}

	if dir, _ := cmd.Flags().GetString("templates"); dir != "" {
		opts = append(opts, weft.WithTemplateSource(file.NewTemplateSource(dir)))
	}

	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		opts = append(opts, weft.WithSnapshotStore(redisstore.New(addr, "", 0)))
	} else if dir, _ := cmd.Flags().GetString("snapshots"); dir != "" {
		opts = append(opts, weft.WithSnapshotStore(file.NewStore(dir)))
	}

	if agentURL, _ := cmd.Flags().GetString("agent"); agentURL != "" {
		br := bridge.New(bridge.WithLogger(logger))
		opts = append(opts,
			weft.WithBridge(br),
			weft.WithDispatcher(agent.NewDispatcher(agentURL, br, agent.WithLogger(logger))),
		)
	}

	opts = append(opts, extra...)
	return weft.New(opts...), nil
}

// loadTemplateIfSet instantiates --template into a fresh engine's graph.
func loadTemplateIfSet(cmd *cobra.Command, eng *weft.Engine) error {
	name, _ := cmd.Flags().GetString("template")
	if name == "" {
		return nil
	}
	if _, err := eng.LoadTemplate(cmd.Context(), name); err != nil {
		return fmt.Errorf("failed to load template %q: %w", name, err)
	}
	return nil
}

func exitErr(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
