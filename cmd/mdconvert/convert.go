// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/internal/store"
	"github.com/pdiddy/mdconvert/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [inputs...]",
	Short: "Convert files, URLs, or stdin to Markdown",
	Long: `Convert a single input (file path, http(s) URL, or "-" for stdin) and
print the Markdown to stdout, or write it with --output.

With several inputs, a directory, or --batch, each input is written to
<output-dir>/<name>.md. Batch runs record every conversion in the history
database and skip local files whose content is unchanged since the last
successful conversion (use --force to reconvert).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", "write Markdown to this file instead of stdout")
	convertCmd.Flags().String("ext", "", "extension hint, e.g. .docx")
	convertCmd.Flags().String("mime", "", "MIME type hint, e.g. text/csv")
	convertCmd.Flags().String("url", "", "source URL hint for stdin input")
	convertCmd.Flags().String("charset", "", "character set hint for text input")
	convertCmd.Flags().StringToString("style", nil, "converter style directives, e.g. track-changes=accept")

	convertCmd.Flags().Bool("batch", false, "write each input to the output directory")
	convertCmd.Flags().String("output-dir", "", "batch output directory (default from config)")
	convertCmd.Flags().Int("jobs", 0, "parallel batch conversions (default from config)")
	convertCmd.Flags().Bool("force", false, "reconvert inputs that are unchanged since the last run")
	convertCmd.Flags().Bool("no-frontmatter", false, "omit the YAML header in batch output")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}

	batch, _ := cmd.Flags().GetBool("batch")
	if !batch && len(args) == 1 {
		if fi, err := os.Stat(args[0]); err == nil && fi.IsDir() {
			batch = true
		}
	}
	if batch || len(args) > 1 {
		return runBatch(cmd, a, args)
	}

	info := hintsFromFlags(cmd)
	var res *types.Result
	if args[0] == "-" {
		res, err = a.engine.ConvertStream(ctx, cmd.InOrStdin(), info)
	} else {
		res, err = a.engine.Convert(ctx, args[0], info)
	}
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Markdown)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(res.Markdown+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	a.logger.Info("converted", "input", args[0], "output", out, "converter", res.Converter)
	return nil
}

func hintsFromFlags(cmd *cobra.Command) types.StreamInfo {
	ext, _ := cmd.Flags().GetString("ext")
	mimeType, _ := cmd.Flags().GetString("mime")
	url, _ := cmd.Flags().GetString("url")
	charset, _ := cmd.Flags().GetString("charset")
	style, _ := cmd.Flags().GetStringToString("style")

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return types.StreamInfo{
		Extension: ext,
		MIMEType:  mimeType,
		URL:       url,
		Charset:   charset,
		StyleMap:  style,
	}
}

func runBatch(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()

	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs to convert")
	}

	opts := convert.BatchOptions{
		OutputDir:   a.cfg.Batch.OutputDir,
		Jobs:        a.cfg.Batch.Jobs,
		Frontmatter: a.cfg.Batch.Frontmatter,
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		opts.OutputDir = v
	}
	if v, _ := cmd.Flags().GetInt("jobs"); v > 0 {
		opts.Jobs = v
	}
	if v, _ := cmd.Flags().GetBool("no-frontmatter"); v {
		opts.Frontmatter = false
	}
	opts.Force, _ = cmd.Flags().GetBool("force")

	s, err := store.NewStore(a.cfg.Store)
	if err != nil {
		a.logger.Warn("history unavailable, converting without it", "error", err)
	} else {
		defer s.Close()
		opts.History = s
	}

	result := a.engine.ConvertBatch(ctx, inputs, opts, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d of %d inputs failed", result.Failed, result.Total())
	}
	return nil
}

// expandInputs replaces directories with the regular files beneath them,
// skipping hidden entries. URLs and files pass through unchanged.
func expandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil || !fi.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != arg && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return out, nil
}
