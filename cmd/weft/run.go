package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loomworks/weft/internal/presentation/tui"
	"github.com/loomworks/weft/pkg/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Instantiate a template and run its root nodes",
	Long:  `Loads a template into a fresh graph, dispatches every queued root node and prints the resulting statuses.`,
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := newEngine(cmd)
		if err != nil {
			exitErr("Error initializing weft: %v", err)
		}
		defer engine.Close()

		if interactive() {
			tui.PrintBanner()
		}

		name, _ := cmd.Flags().GetString("template")
		if name == "" && len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			exitErr("a template name is required (weft run <template>)")
		}

		if _, err := engine.LoadTemplate(cmd.Context(), name); err != nil {
			exitErr("Error loading template: %v", err)
		}

		if err := engine.RunAll(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Some nodes were not dispatched: %v\n", err)
		}

		// Give asynchronous completions a moment to land before reporting.
		wait, _ := cmd.Flags().GetDuration("wait")
		deadline := time.Now().Add(wait)
		for time.Now().Before(deadline) {
			if allSettled(engine.Graph().Statuses) {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}

		fmt.Print(tui.RenderStatusBoard(engine.Graph()))
	},
}

func allSettled(statuses map[string]domain.ExecutionStatus) bool {
	for _, st := range statuses {
		if st == domain.StatusRunning {
			return false
		}
	}
	return true
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("template", "", "Template to instantiate")
	runCmd.Flags().Duration("wait", 30*time.Second, "How long to wait for running nodes to settle")
}
