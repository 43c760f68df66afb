package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"archie/internal/conversation"
	"archie/internal/llm"
	"archie/internal/llmclient"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printComponents(components []conversation.Component) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Value", "Category"})
	for _, c := range components {
		tw.AppendRow(table.Row{c.ID, c.Name, c.Value, c.Category})
	}
	tw.Render()
}

func printProviders(profiles []llm.ProviderProfile) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Provider", "High", "Low", "RPS"})
	for _, p := range profiles {
		rps := "-"
		if p.RateLimit != nil && p.RateLimit.RPS > 0 {
			rps = fmt.Sprintf("%.1f", p.RateLimit.RPS)
		}
		tw.AppendRow(table.Row{p.Name, p.Models[llmclient.ModelLevelHigh], p.Models[llmclient.ModelLevelLow], rps})
	}
	tw.Render()
}

func printDiagram(d *conversation.Diagram) {
	switch {
	case d == nil:
		fmt.Println(color.YellowString("No diagram was produced"))
		return
	case d.Degraded:
		fmt.Println(color.YellowString("Diagram (fallback: %s)", d.Reason))
	case d.Repaired:
		fmt.Println(color.CyanString("Diagram (repaired)"))
	default:
		fmt.Println(color.CyanString("Diagram"))
	}
	fmt.Println(d.Text)
}
