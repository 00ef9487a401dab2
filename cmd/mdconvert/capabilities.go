// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mdconvert/internal/capability"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Report which optional backends are available",
	Long: `Capabilities probes the environment the same way conversion does and
prints each capability flag, the registered converters in dispatch order,
and any configuration advisories.`,
	RunE: runCapabilities,
}

func init() {
	capabilitiesCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(capabilitiesCmd)
}

type capabilitiesReport struct {
	Flags      map[string]bool       `json:"flags"`
	Converters []string              `json:"converters"`
	Advisories []capability.Advisory `json:"advisories"`
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	report := capabilitiesReport{
		Flags:      a.caps.Flags(),
		Converters: a.engine.Converters(),
		Advisories: a.caps.Advisories,
	}
	if report.Advisories == nil {
		report.Advisories = []capability.Advisory{}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatCapabilities(cmd.OutOrStdout(), a.caps, report, jsonOutput)
}

func formatCapabilities(w io.Writer, caps capability.Set, report capabilitiesReport, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "%-26s  %-9s  %s\n", "Capability", "Available", "Detail")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, name := range caps.Names() {
		avail := "no"
		if report.Flags[name] {
			avail = "yes"
		}
		fmt.Fprintf(w, "%-26s  %-9s  %s\n", name, avail, capabilityDetail(caps, name))
	}

	fmt.Fprintf(w, "\nConverters: %s\n", strings.Join(report.Converters, ", "))

	if len(report.Advisories) > 0 {
		fmt.Fprintln(w, "\nAdvisories:")
		for _, adv := range report.Advisories {
			fmt.Fprintf(w, "  %s: %s\n", adv.Capability, adv.Message)
		}
	}
	return nil
}

func capabilityDetail(caps capability.Set, name string) string {
	switch name {
	case capability.FlagLocalTranscription:
		if caps.LocalTranscription {
			return caps.WhisperBinary + " (" + caps.WhisperModel + ")"
		}
	case capability.FlagMetadataTool:
		return caps.MetadataToolPath
	case capability.FlagContainerRuntime:
		if caps.Runtime != nil {
			return caps.Runtime.Name()
		}
	case capability.FlagPDFText:
		return caps.PDFTextBinary
	}
	return ""
}
