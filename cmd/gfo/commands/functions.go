package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kairos-sec/go-flow-obfuscator/pkg/extractor"
)

// functionsCmd represents the functions command
var functionsCmd = &cobra.Command{
	Use:   "functions <file>",
	Short: "List function definitions in a source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		content, err := readSource(filePath)
		if err != nil {
			return err
		}

		infos := extractor.ListFunctions(content, extractor.LanguageForFile(filePath))

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(infos, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(infos) == 0 {
			fmt.Printf("No function definitions found in %s\n", filePath)
			return nil
		}

		fmt.Printf("=== Functions in %s ===\n", filePath)
		for _, fn := range infos {
			ret := fn.ReturnType
			if ret == "" {
				ret = "?"
			}
			fmt.Printf("  %s %s%s (line %d)\n", ret, fn.Name, fn.Params, fn.LineNumber)
		}

		return nil
	},
}

func init() {
	functionsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(functionsCmd)
}
