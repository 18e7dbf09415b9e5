package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pres "github.com/loomworks/weft/internal/presentation/graph"
	"github.com/loomworks/weft/internal/presentation/tui"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the flow graph visualization",
	Long:  `Instantiates a template and outputs a Mermaid diagram (graph TD) representing the flow.`,
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := newEngine(cmd)
		if err != nil {
			exitErr("Error initializing weft: %v", err)
		}
		defer engine.Close()

		name, _ := cmd.Flags().GetString("template")
		if name == "" && len(args) > 0 {
			name = args[0]
		}
		if name != "" {
			if _, err := engine.LoadTemplate(cmd.Context(), name); err != nil {
				exitErr("Error loading template: %v", err)
			}
		} else if snap, _ := cmd.Flags().GetString("snapshot"); snap != "" {
			if err := engine.LoadSnapshot(cmd.Context(), snap); err != nil {
				exitErr("Error loading snapshot: %v", err)
			}
		}

		mermaid := pres.GenerateMermaid(engine.Graph())

		if pretty, _ := cmd.Flags().GetBool("pretty"); pretty && interactive() {
			render := tui.NewRenderer()
			out, err := render("```mermaid\n" + mermaid + "```\n")
			if err == nil {
				fmt.Print(out)
				return
			}
		}
		fmt.Print(mermaid)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("template", "", "Template to visualize")
	graphCmd.Flags().String("snapshot", "", "Stored snapshot to visualize")
	graphCmd.Flags().Bool("pretty", false, "Render through the terminal markdown renderer")
}
