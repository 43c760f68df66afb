package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"archie/internal/conversation"
	"archie/internal/orchestrator"
)

func addFormFlags(cmd *cobra.Command) {
	cmd.Flags().String("idea", "", "what you want to build")
	cmd.Flags().String("users", "", "expected user count")
	cmd.Flags().String("compliance", "None", "compliance requirement")
	cmd.Flags().String("skill", "", "team skill level")
	cmd.Flags().String("timeline", "", "delivery timeline")
	cmd.Flags().String("cloud", "No Preference", "preferred cloud platform")
	cmd.Flags().StringSlice("providers", nil, "providers to consult (default: all enabled)")
	cmd.Flags().StringToString("model", nil, "per-provider model override, e.g. gemini=gemini-2.5-pro")
}

func formFromFlags(cmd *cobra.Command) conversation.FormInputs {
	str := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return strings.TrimSpace(v)
	}
	providers, _ := cmd.Flags().GetStringSlice("providers")
	models, _ := cmd.Flags().GetStringToString("model")
	return conversation.FormInputs{
		Idea:           str("idea"),
		UserCount:      str("users"),
		Compliance:     str("compliance"),
		SkillLevel:     str("skill"),
		Timeline:       str("timeline"),
		CloudPlatform:  str("cloud"),
		AIProviders:    providers,
		ProviderModels: models,
	}
}

var designCmd = &cobra.Command{
	Use:   "design",
	Short: "Run a full design conversation: discover, refine, approve, deep dive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		core, err := buildCore(ctx)
		if err != nil {
			return err
		}
		defer core.Close()
		o := core.Orchestrator

		created, err := o.CreateSession(ctx, formFromFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Println(color.CyanString("Session %s", created.SessionID))
		fmt.Println(created.Message)
		printComponents(created.Components)

		messages, _ := cmd.Flags().GetStringArray("message")
		if useStdin, _ := cmd.Flags().GetBool("stdin"); useStdin {
			lines, err := readLines(os.Stdin)
			if err != nil {
				return err
			}
			messages = append(messages, lines...)
		}
		for _, m := range messages {
			fmt.Println(color.CyanString("> %s", m))
			res, err := o.SendMessage(ctx, created.SessionID, m)
			if err != nil {
				return err
			}
			printComponents(res.Components)
		}

		approved, err := o.Approve(ctx, created.SessionID)
		if err != nil {
			return err
		}
		fmt.Println(approved.Message)

		events, err := o.StreamDeepDive(ctx, created.SessionID)
		if err != nil {
			return err
		}
		for ev := range events {
			printProgress(ev)
		}

		view, err := o.GetDiagram(ctx, created.SessionID)
		if err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(view)
		}
		printDiagram(view.Diagram)
		return nil
	},
}

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Generate a one-shot architecture blueprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		core, err := buildCore(ctx)
		if err != nil {
			return err
		}
		defer core.Close()

		bp, err := core.Orchestrator.GenerateBlueprint(ctx, formFromFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(bp)
	},
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return out, nil
}

func printProgress(ev orchestrator.ProgressEvent) {
	switch ev.Status {
	case conversation.StatusComplete:
		fmt.Printf("  %s %s\n", color.GreenString("✓"), ev.Component)
	case conversation.StatusFailed:
		fmt.Printf("  %s %s: %s\n", color.RedString("✗"), ev.Component, ev.Error)
	case conversation.StatusFetching:
		fmt.Printf("  %s %s\n", color.YellowString("…"), ev.Component)
	case orchestrator.StatusAllComplete:
		fmt.Println(color.GreenString("Deep dive complete"))
	case orchestrator.StatusError:
		fmt.Println(color.RedString("Deep dive failed: %s", ev.Error))
	}
}
