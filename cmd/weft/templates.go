package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available templates",
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := newEngine(cmd)
		if err != nil {
			exitErr("Error initializing weft: %v", err)
		}
		defer engine.Close()

		defs, err := engine.Templates(cmd.Context())
		if err != nil {
			exitErr("Error listing templates: %v", err)
		}
		if len(defs) == 0 {
			fmt.Println("No templates found (set --templates to a directory of YAML definitions)")
			return
		}

		for _, def := range defs {
			line := def.Name
			if def.Description != "" {
				line += ": " + def.Description
			}
			fmt.Printf("  %s (%d nodes, %d connections)\n", line, len(def.Nodes), len(def.Connections))
		}
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
