// Package commands provides the CLI commands for the go-flow-obfuscator tool.
package commands

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kairos-sec/go-flow-obfuscator/internal/config"
	"github.com/kairos-sec/go-flow-obfuscator/internal/log"
	"github.com/kairos-sec/go-flow-obfuscator/pkg/extractor"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "gfo",
	Short: "go-flow-obfuscator - Source-level control flow obfuscation for C/C++",
	Long: `go-flow-obfuscator rewrites C/C++ functions to resist static analysis.

Commands:
  flatten     Rewrite a function's control flow into a state machine
  inject      Inject opaque predicates into a function
  protect     Flatten and inject in one pass, optionally for all functions
  functions   List function definitions in a source file
  init        Create a configuration file interactively
  doctor      Check effective configuration and cache health

Use "gfo [command] --help" for more information about a command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig loads the effective configuration and applies verbosity.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Verbose {
		log.Default().SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

// newRNG builds the engine's random source. A zero seed means a fresh
// time-based seed, i.e. non-reproducible output.
func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// readSource loads a source file, rejecting directories.
func readSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, expected a file: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return content, nil
}

// notFoundWithSuggestion decorates a function-not-found failure with the
// names actually defined in the file.
func notFoundWithSuggestion(src []byte, lang extractor.Language, name, path string) error {
	if defined := extractor.ListFunctions(src, lang); len(defined) > 0 {
		names := make([]string, 0, len(defined))
		for _, fn := range defined {
			names = append(names, fn.Name)
		}
		return fmt.Errorf("function %q not found in %s\nDefined functions: %v", name, path, names)
	}
	return fmt.Errorf("function %q not found in %s", name, path)
}

// splice replaces the span of src with replacement.
func splice(src []byte, span extractor.Span, replacement string) []byte {
	out := make([]byte, 0, len(src)-(span.End-span.Start)+len(replacement))
	out = append(out, src[:span.Start]...)
	out = append(out, replacement...)
	out = append(out, src[span.End:]...)
	return out
}

// writeResult writes full-file content to path, or prints text to stdout
// when no destination was requested.
func writeResult(content []byte, outPath string, inPlace bool, srcPath string) error {
	switch {
	case inPlace:
		return os.WriteFile(srcPath, content, 0644)
	case outPath != "":
		return os.WriteFile(outPath, content, 0644)
	default:
		fmt.Print(string(content))
		return nil
	}
}
