package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var opts benchOptions

var rootCmd = &cobra.Command{
	Use:          "chatbench",
	Short:        "Run scripted conversations against an in-process engine and report latencies",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := runBench(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), report, opts.Format)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&opts.Personality, "personality", "p", "technical_expert", "personality used for the scripted sessions")
	rootCmd.Flags().IntVarP(&opts.Sessions, "sessions", "s", 1, "number of sessions replaying the script")
	rootCmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "j", 4, "sessions run at the same time")
	rootCmd.Flags().BoolVar(&opts.Compare, "compare", false, "also run compare for every scripted message")
	rootCmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "output format: text, json or yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writeReport(w io.Writer, report Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(report)
	case "text", "":
		fmt.Fprintf(w, "sessions: %d  exchanges: %d  total: %.2fms  avg: %.3fms\n",
			report.Sessions, report.Exchanges, report.TotalMs, report.AvgMs)
		for _, r := range report.Results {
			fmt.Fprintf(w, "  %-18s %-40q %8.3fms %5d chars\n", r.Technique, r.Message, r.LatencyMs, r.ResponseLength)
		}
		if report.Comparisons > 0 {
			fmt.Fprintf(w, "comparisons: %d\n", report.Comparisons)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
