package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kairos-sec/go-flow-obfuscator/internal/config"
	"github.com/kairos-sec/go-flow-obfuscator/internal/healthcheck"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check effective configuration and cache health",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Skip validation here: an invalid config is exactly what doctor
		// exists to report.
		cfg, err := config.LoadUnchecked()
		if err != nil {
			return err
		}

		result, err := healthcheck.Check(cfg, config.EffectivePath())
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}

		printDoctorResult(result)

		if result.Config.Status != "ok" || result.Cache.Status != "ok" || result.Grammars.Status != "ok" {
			return fmt.Errorf("health check found problems")
		}
		return nil
	},
}

func printDoctorResult(result *healthcheck.Result) {
	fmt.Println("=== gfo doctor ===")
	if result.ConfigPath != "" {
		fmt.Printf("Config file: %s (%s)\n", result.ConfigPath, result.ConfigScope)
	} else {
		fmt.Println("Config file: none (using defaults)")
	}

	for _, status := range []healthcheck.Status{result.Config, result.Cache, result.Grammars} {
		marker := "✓"
		if status.Status != "ok" {
			marker = "✗"
		}
		fmt.Printf("%s %s: %s\n", marker, status.Name, status.Detail)
		if status.Error != "" {
			fmt.Printf("    %s\n", status.Error)
		}
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
