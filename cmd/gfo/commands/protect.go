package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/spf13/cobra"

	"github.com/kairos-sec/go-flow-obfuscator/internal/log"
	"github.com/kairos-sec/go-flow-obfuscator/pkg/cache"
	"github.com/kairos-sec/go-flow-obfuscator/pkg/extractor"
	"github.com/kairos-sec/go-flow-obfuscator/pkg/flatten"
	"github.com/kairos-sec/go-flow-obfuscator/pkg/predicate"
)

// protectFunctionReport summarizes the protection of one function.
type protectFunctionReport struct {
	Name               string `json:"name"`
	TotalBlocks        int    `json:"total_blocks"`
	FakeBlocks         int    `json:"fake_blocks"`
	PredicatesInjected int    `json:"predicates_injected"`
	Cached             bool   `json:"cached"`
}

// protectReport aggregates per-function results for one protect run.
type protectReport struct {
	Functions               []protectFunctionReport `json:"functions"`
	TotalBlocks             int                     `json:"total_blocks"`
	TotalFakeBlocks         int                     `json:"total_fake_blocks"`
	TotalPredicatesInjected int                     `json:"total_predicates_injected"`
	CacheHits               int                     `json:"cache_hits"`
}

// protectCmd represents the protect command
var protectCmd = &cobra.Command{
	Use:   "protect <file> [function]",
	Short: "Flatten control flow and inject opaque predicates",
	Long: `Applies both transforms in sequence: the function is flattened into a
state-machine dispatcher, then the flattened text is re-scanned and opaque
predicates are injected around its comparisons, returns, and critical
operations.

With --all (or when no function is named) every function definition in the
file is protected. Results are cached per function when a fixed seed is
configured, so unchanged inputs are skipped on repeated runs.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fakeBlocks := cfg.FakeBlocks
		if cmd.Flags().Changed("fake-blocks") {
			fakeBlocks, _ = cmd.Flags().GetInt("fake-blocks")
		}
		complexity := cfg.Complexity
		if cmd.Flags().Changed("complexity") {
			complexity, _ = cmd.Flags().GetString("complexity")
		}
		if !predicate.Tier(complexity).Valid() {
			return fmt.Errorf("invalid complexity: %s (must be 'low', 'medium' or 'high')", complexity)
		}
		perBranch := cfg.PredicatesPerBranch
		if cmd.Flags().Changed("predicates-per-branch") {
			perBranch, _ = cmd.Flags().GetInt("predicates-per-branch")
		}
		seed := cfg.Seed
		if cmd.Flags().Changed("seed") {
			seed, _ = cmd.Flags().GetInt64("seed")
		}

		content, err := readSource(filePath)
		if err != nil {
			return err
		}
		lang := extractor.LanguageForFile(filePath)

		all, _ := cmd.Flags().GetBool("all")
		var targets []string
		if len(args) == 2 && !all {
			targets = []string{args[1]}
		} else {
			for _, fn := range extractor.ListFunctions(content, lang) {
				targets = append(targets, fn.Name)
			}
			if len(targets) == 0 {
				return fmt.Errorf("no function definitions found in %s", filePath)
			}
		}

		// The cached output is only valid when the transform is
		// reproducible, which requires a fixed seed.
		noCache, _ := cmd.Flags().GetBool("no-cache")
		var store *cache.Store
		if !noCache && seed != 0 && cfg.CacheDir != "" {
			store, err = cache.New(cfg.CacheDir)
			if err != nil {
				log.Default().Warn("cache disabled", "error", err)
				store = nil
			}
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		outPath, _ := cmd.Flags().GetString("output")
		inPlace, _ := cmd.Flags().GetBool("in-place")

		var spinner *log.ProgressSpinner
		if len(targets) > 1 && (outPath != "" || inPlace) && !jsonOutput {
			spinner = log.NewProgressSpinner("Protecting functions...")
			spinner.Start()
			defer spinner.Stop()
		}

		optionsHash, err := hashstructure.Hash(struct {
			FakeBlocks int
			Complexity string
			PerBranch  int
			Seed       int64
		}{fakeBlocks, complexity, perBranch, seed}, hashstructure.FormatV2, nil)
		if err != nil {
			return fmt.Errorf("hashing options: %w", err)
		}
		optionsKey := strconv.FormatUint(optionsHash, 10)

		summary := &protectReport{}
		current := content

		for _, name := range targets {
			if spinner != nil {
				spinner.Message("Protecting " + name)
			}

			span, err := extractor.Locate(current, lang, name)
			if err != nil {
				var notFound *extractor.FunctionNotFoundError
				if errors.As(err, &notFound) {
					return notFoundWithSuggestion(current, lang, name, filePath)
				}
				return fmt.Errorf("locating %s: %w", name, err)
			}
			functionText := string(current[span.Start:span.End])

			key := cache.Key(functionText, name, optionsKey)
			if store != nil {
				if cached, ok := store.Get(key); ok {
					current = splice(current, span, cached.Output)
					summary.add(protectFunctionReport{
						Name:               name,
						TotalBlocks:        cached.TotalBlocks,
						FakeBlocks:         cached.FakeBlocks,
						PredicatesInjected: cached.PredicatesInjected,
						Cached:             true,
					})
					log.Default().Debug("cache hit", "function", name)
					continue
				}
			}

			result, err := protectFunction(functionText, lang, name, fakeBlocks, complexity, perBranch, seed)
			if err != nil {
				return fmt.Errorf("protecting %s: %w", name, err)
			}

			current = splice(current, span, result.Output)
			summary.add(protectFunctionReport{
				Name:               name,
				TotalBlocks:        result.TotalBlocks,
				FakeBlocks:         result.FakeBlocks,
				PredicatesInjected: result.PredicatesInjected,
			})

			if store != nil {
				if err := store.Put(key, result); err != nil {
					log.Default().Warn("cache write failed", "function", name, "error", err)
				}
			}
		}

		if spinner != nil {
			spinner.Stop()
			spinner = nil
		}

		if err := writeResult(current, outPath, inPlace, filePath); err != nil {
			return err
		}

		if jsonOutput {
			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
		} else {
			printProtectReport(summary)
		}

		return nil
	},
}

// protectFunction runs both transforms over one function's text. Each
// function gets a fresh random source so output does not depend on the
// order functions are processed in.
func protectFunction(functionText string, lang extractor.Language, name string,
	fakeBlocks int, complexity string, perBranch int, seed int64) (*cache.Result, error) {

	flattener := flatten.New(flatten.Options{
		FakeBlocks: fakeBlocks,
		Rand:       newRNG(seed),
	})
	flattened, flatReport, err := flattener.Flatten([]byte(functionText), lang, name)
	if err != nil {
		return nil, err
	}

	injector := predicate.New(predicate.Options{
		Complexity:          predicate.Tier(complexity),
		PredicatesPerBranch: perBranch,
		Rand:                newRNG(seed),
	})
	protected, injectReport, err := injector.Inject(flattened, name)
	if err != nil {
		return nil, err
	}

	return &cache.Result{
		Function:           name,
		Output:             protected,
		TotalBlocks:        flatReport.TotalBlocks,
		FakeBlocks:         flatReport.FakeBlocks,
		PredicatesInjected: injectReport.TotalPredicatesInjected,
	}, nil
}

func (r *protectReport) add(fn protectFunctionReport) {
	r.Functions = append(r.Functions, fn)
	r.TotalBlocks += fn.TotalBlocks
	r.TotalFakeBlocks += fn.FakeBlocks
	r.TotalPredicatesInjected += fn.PredicatesInjected
	if fn.Cached {
		r.CacheHits++
	}
}

// printProtectReport prints the aggregate report in human-readable format.
func printProtectReport(report *protectReport) {
	fmt.Println("=== Protection Report ===")
	for _, fn := range report.Functions {
		cached := ""
		if fn.Cached {
			cached = " (cached)"
		}
		fmt.Printf("  %s: %d blocks (%d fake), %d predicates%s\n",
			fn.Name, fn.TotalBlocks, fn.FakeBlocks, fn.PredicatesInjected, cached)
	}
	fmt.Printf("Functions protected: %d\n", len(report.Functions))
	fmt.Printf("Total blocks: %d (%d fake)\n", report.TotalBlocks, report.TotalFakeBlocks)
	fmt.Printf("Total predicates injected: %d\n", report.TotalPredicatesInjected)
	if report.CacheHits > 0 {
		fmt.Printf("Cache hits: %d\n", report.CacheHits)
	}
}

func init() {
	protectCmd.Flags().Bool("all", false, "Protect every function definition in the file")
	protectCmd.Flags().Int("fake-blocks", 5, "Number of fake unreachable blocks per function")
	protectCmd.Flags().String("complexity", "medium", "Injection tier: low, medium, or high")
	protectCmd.Flags().Int("predicates-per-branch", 2, "Guard nesting depth for critical operations")
	protectCmd.Flags().Int64("seed", 0, "Random seed for reproducible output (0 = random)")
	protectCmd.Flags().Bool("no-cache", false, "Bypass the result cache")
	protectCmd.Flags().StringP("output", "o", "", "Write the transformed file to this path")
	protectCmd.Flags().Bool("in-place", false, "Rewrite the source file in place")
	protectCmd.Flags().BoolP("json", "j", false, "Output the report as JSON")
	RootCmd.AddCommand(protectCmd)
}
