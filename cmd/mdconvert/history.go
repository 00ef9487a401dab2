// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mdconvert/internal/store"
	"github.com/pdiddy/mdconvert/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the conversion history",
	Long: `History queries the SQLite database that batch conversion uses to
skip unchanged inputs. Subcommands list, export, and prune records.`,
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("source", "", "exact source path or URL")
		c.Flags().String("contains", "", "substring of the source")
		c.Flags().String("status", "", "filter by status: converted, failed")
	}
	historyListCmd.Flags().Int("max-results", 50, "maximum number of records")
	historyListCmd.Flags().Bool("json", false, "output as JSON")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "remove records older than this")

	historyCmd.AddCommand(historyListCmd, historyExportCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.NewStore(cfg.Store)
}

func queryOptsFromFlags(cmd *cobra.Command) store.QueryOptions {
	source, _ := cmd.Flags().GetString("source")
	contains, _ := cmd.Flags().GetString("contains")
	status, _ := cmd.Flags().GetString("status")
	opts := store.QueryOptions{
		Source:   source,
		Contains: contains,
		Status:   types.ConversionStatus(status),
	}
	if cmd.Flags().Lookup("max-results") != nil {
		opts.MaxResults, _ = cmd.Flags().GetInt("max-results")
	}
	return opts
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent conversions, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.List(cmd.Context(), queryOptsFromFlags(cmd))
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistory(cmd.OutOrStdout(), recs, jsonOutput)
}

func formatHistory(w io.Writer, recs []types.ConversionRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-20s  %-9s  %-10s  %-50s  %s\n",
		"Converted At", "Status", "Converter", "Source", "Output")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range recs {
		fmt.Fprintf(w, "%-20s  %-9s  %-10s  %-50s  %s\n",
			r.ConvertedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status, r.Converter, truncate(r.Source, 50), r.OutputPath)
	}

	fmt.Fprintf(w, "\n%d records\n", len(recs))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the conversion history to YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}
	if err := s.Export(cmd.Context(), w, format, queryOptsFromFlags(cmd)); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported history to %s\n", output)
	}
	return nil
}

// --- prune subcommand ---

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old history records",
	RunE:  runHistoryPrune,
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.Prune(cmd.Context(), time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d records\n", n)
	return nil
}
