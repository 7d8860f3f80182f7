package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kairos-sec/go-flow-obfuscator/pkg/extractor"
	"github.com/kairos-sec/go-flow-obfuscator/pkg/predicate"
)

// injectCmd represents the inject command
var injectCmd = &cobra.Command{
	Use:   "inject <file> <function>",
	Short: "Inject opaque predicates into a function",
	Long: `Surrounds comparisons, returns, and critical operations of a C/C++
function with opaque predicate guards; at medium complexity and above it
also inserts dead-code branches behind always-false guards.

By default the transformed function is printed to stdout; --output or
--in-place splices it back into the surrounding file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]
		functionName := args[1]

		cfg, err := loadConfig()
		if err != nil {
			return err
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

		span, err := extractor.Locate(content, lang, functionName)
		if err != nil {
			var notFound *extractor.FunctionNotFoundError
			if errors.As(err, &notFound) {
				return notFoundWithSuggestion(content, lang, functionName, filePath)
			}
			return fmt.Errorf("locating %s: %w", functionName, err)
		}

		injector := predicate.New(predicate.Options{
			Complexity:          predicate.Tier(complexity),
			PredicatesPerBranch: perBranch,
			Rand:                newRNG(seed),
		})

		functionText := string(content[span.Start:span.End])
		protected, report, err := injector.Inject(functionText, functionName)
		if err != nil {
			return fmt.Errorf("injecting predicates into %s: %w", functionName, err)
		}

		outPath, _ := cmd.Flags().GetString("output")
		inPlace, _ := cmd.Flags().GetBool("in-place")

		if outPath != "" || inPlace {
			if err := writeResult(splice(content, span, protected), outPath, inPlace, filePath); err != nil {
				return err
			}
		} else {
			fmt.Println(protected)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
		} else {
			printInjectReport(report)
		}

		return nil
	},
}

// printInjectReport prints the injection report in human-readable format.
func printInjectReport(report *predicate.Report) {
	fmt.Println("=== Opaque Predicate Injection Report ===")
	fmt.Printf("Total predicates injected: %d\n", report.TotalPredicatesInjected)
	fmt.Printf("Complexity: %s\n", report.Complexity)
	fmt.Printf("Predicates per branch: %d\n", report.PredicatesPerBranch)
}

func init() {
	injectCmd.Flags().String("complexity", "medium", "Injection tier: low, medium, or high")
	injectCmd.Flags().Int("predicates-per-branch", 2, "Guard nesting depth for critical operations")
	injectCmd.Flags().Int64("seed", 0, "Random seed for reproducible output (0 = random)")
	injectCmd.Flags().StringP("output", "o", "", "Write the spliced file to this path")
	injectCmd.Flags().Bool("in-place", false, "Rewrite the source file in place")
	injectCmd.Flags().BoolP("json", "j", false, "Output the report as JSON")
	RootCmd.AddCommand(injectCmd)
}
