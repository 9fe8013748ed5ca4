// Command mapper is the CLI front-end for the mapping engine: generate a
// script from a mapper document, run it against an input document,
// transpile a standalone legacy-dialect fragment, or migrate a legacy
// document to the current format.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/oxhq/mapperengine/internal/core"
	"github.com/oxhq/mapperengine/internal/emitter"
	"github.com/oxhq/mapperengine/internal/executor"
	"github.com/oxhq/mapperengine/internal/migrator"
	"github.com/oxhq/mapperengine/internal/serialize"
	"github.com/oxhq/mapperengine/internal/store"
	"github.com/oxhq/mapperengine/internal/transpiler"
)

var (
	storeDSN     string
	debugComment bool
	jsonOutput   bool
)

func main() {
	// Ignore the error: an absent .env is the common case, not a failure.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "mapper",
		Short: "Visual data-mapping engine CLI",
		Long:  "Generate, run, transpile, and migrate mapper documents from the command line.",
	}
	fs := rootCmd.PersistentFlags()
	fs.StringVarP(&storeDSN, "store", "s", os.Getenv("MAPPER_STORE"), "path to a run-history sqlite database; omit to disable recording (default from $MAPPER_STORE)")
	fs.BoolVarP(&debugComment, "debug-comment", "d", false, "force-enable emitted debug comments regardless of the document's preference")
	fs.BoolVarP(&jsonOutput, "json", "j", false, "emit machine-readable JSON instead of human-readable text")

	rootCmd.AddCommand(generateCmd(), runCmd(), transpileCmd(), migrateCmd(), diffCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "generate <mapper.json>",
		Short: "Emit the JavaScript mapping script for a mapper document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadState(args[0])
			if err != nil {
				return err
			}
			script, diags, err := emitter.Generate(state)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]any{"script": script, "diagnostics": diags})
			}
			if outPath != "" {
				return os.WriteFile(outPath, []byte(script), 0o644)
			}
			fmt.Println(script)
			printDiagnosticsText(diags)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the generated script to this file instead of stdout")
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <mapper.json> <input>",
		Short: "Generate and execute a mapper document against an input document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadState(args[0])
			if err != nil {
				return err
			}
			input, err := readArgOrFile(args[1])
			if err != nil {
				return err
			}

			script, diags, err := emitter.Generate(state)
			if err != nil {
				return err
			}

			res, err := executor.Execute(script, input, executor.Options{InjectShimLibrary: true})
			if err != nil {
				return err
			}

			if rec, err := openRecorder(); err == nil && rec != nil {
				if err := rec.RecordRun(state.ID, script, input, res, diags); err != nil {
					fmt.Fprintln(os.Stderr, "store: failed to record run:", err)
				}
			}

			if jsonOutput {
				return printJSON(res)
			}
			fmt.Println(res.Output)
			if res.Error != "" {
				fmt.Fprintln(os.Stderr, "error:", res.Error)
			}
			for _, l := range res.Logs {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", l.Severity, l.Message)
			}
			fmt.Fprintf(os.Stderr, "duration: %dms\n", res.DurationMs)
			return nil
		},
	}
	return cmd
}

func transpileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transpile <fragment.groovy>",
		Short: "Rewrite a standalone legacy-dialect script fragment to the executor's dialect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fragment, err := readArgOrFile(args[0])
			if err != nil {
				return err
			}
			result, err := transpiler.Transpile(fragment)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(result)
			}
			fmt.Println(result.Code)
			for _, w := range result.Warnings {
				fmt.Fprintf(os.Stderr, "[%s] line %d: %s (%q)\n", w.Severity, w.Line, w.Message, w.Original)
			}
			fmt.Fprintf(os.Stderr, "confidence: %.2f\n", result.Confidence)
			return nil
		},
	}
	return cmd
}

func migrateCmd() *cobra.Command {
	var glob string
	cmd := &cobra.Command{
		Use:   "migrate [legacy.json]",
		Short: "Rebuild a legacy-serialised mapper document into the current format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if glob != "" {
				return migrateGlob(glob)
			}
			if len(args) != 1 {
				return fmt.Errorf("migrate requires a <legacy.json> path, or --glob for batch mode")
			}
			return migrateOne(args[0])
		},
	}
	cmd.Flags().StringVarP(&glob, "glob", "g", "", "batch-migrate every file matching this doublestar pattern (e.g. 'legacy/**/*.json') instead of a single file")
	return cmd
}

func migrateOne(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var legacy map[string]any
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return core.Wrap(core.ErrMalformedJSON, "document is not valid JSON", err)
	}
	state, err := migrator.Migrate(legacy)
	if err != nil {
		return err
	}
	out, err := serialize.Serialize(state)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// migrateGlob resolves pattern against the local filesystem and migrates
// every match in turn, writing each alongside the original with a
// ".migrated.json" suffix. A single bad file is reported but does not abort
// the rest of the batch.
func migrateGlob(pattern string) error {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		fmt.Fprintf(os.Stderr, "no files matched %q\n", pattern)
		return nil
	}
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		var legacy map[string]any
		if err := json.Unmarshal(raw, &legacy); err != nil {
			fmt.Fprintf(os.Stderr, "%s: not valid JSON: %v\n", path, err)
			continue
		}
		state, err := migrator.Migrate(legacy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		out, err := serialize.Serialize(state)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		dest := path + ".migrated.json"
		if err := os.WriteFile(dest, out, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: writing %s: %v\n", path, dest, err)
			continue
		}
		fmt.Println(dest)
	}
	return nil
}

// diffCmd prints a unified diff between the scripts generated from two
// mapper documents, useful for reviewing what a document edit changed about
// its emitted script before running it.
func diffCmd() *cobra.Command {
	var context int
	cmd := &cobra.Command{
		Use:   "diff <old.json> <new.json>",
		Short: "Show a unified diff between the scripts generated from two mapper documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldState, err := loadState(args[0])
			if err != nil {
				return err
			}
			newState, err := loadState(args[1])
			if err != nil {
				return err
			}
			oldScript, _, err := emitter.Generate(oldState)
			if err != nil {
				return fmt.Errorf("generating %s: %w", args[0], err)
			}
			newScript, _, err := emitter.Generate(newState)
			if err != nil {
				return fmt.Errorf("generating %s: %w", args[1], err)
			}
			text, err := unifiedScriptDiff(oldScript, newScript, args[0], args[1], context)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
	cmd.Flags().IntVarP(&context, "context", "c", 3, "number of context lines around each change")
	return cmd
}

func unifiedScriptDiff(oldScript, newScript, fromFile, toFile string, context int) (string, error) {
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldScript),
		B:        difflib.SplitLines(newScript),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  context,
	}
	return difflib.GetUnifiedDiffString(d)
}

func loadState(path string) (*core.MapperState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	state, err := serialize.Deserialize(raw)
	if err != nil {
		return nil, err
	}
	if debugComment {
		state.MapperPreferences.DebugComment = true
	}
	return state, nil
}

// readArgOrFile treats arg as a file path if it names an existing file,
// otherwise as literal content (useful for ad hoc input on the command
// line without a scratch file).
func readArgOrFile(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		b, err := os.ReadFile(arg)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", arg, err)
		}
		return string(b), nil
	}
	return arg, nil
}

func openRecorder() (*store.Recorder, error) {
	if storeDSN == "" {
		return nil, nil
	}
	db, err := store.Connect(storeDSN, false)
	if err != nil {
		return nil, err
	}
	return store.NewRecorder(db), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDiagnosticsText(diags []core.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", d.Severity, d.Message)
	}
}
