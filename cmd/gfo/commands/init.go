package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/kairos-sec/go-flow-obfuscator/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create gfo configuration interactively",
	Long: `Guides you through setting up gfo configuration step by step.
Creates a config file with the flattening and predicate injection settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	cfg := config.DefaultConfig()

	complexity := cfg.Complexity
	fakeBlocksStr := strconv.Itoa(cfg.FakeBlocks)
	perBranchStr := strconv.Itoa(cfg.PredicatesPerBranch)
	seedStr := ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Predicate complexity").
				Description("How aggressively opaque predicates are injected").
				Options(
					huh.NewOption("Low - comparisons and returns only", "low"),
					huh.NewOption("Medium - plus dead-code branches", "medium"),
					huh.NewOption("High - plus layered critical-operation guards", "high"),
				).
				Value(&complexity),

			huh.NewInput().
				Title("Fake blocks").
				Description("Number of fake unreachable states added while flattening").
				Value(&fakeBlocksStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 {
						return fmt.Errorf("must be a non-negative integer")
					}
					return nil
				}),

			huh.NewInput().
				Title("Predicates per branch").
				Description("Guard nesting depth around critical operations (high tier)").
				Value(&perBranchStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n <= 0 {
						return fmt.Errorf("must be a positive integer")
					}
					return nil
				}),

			huh.NewInput().
				Title("Seed (optional)").
				Description("Fixed random seed for reproducible output; empty for random").
				Value(&seedStr).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					if _, err := strconv.ParseInt(s, 10, 64); err != nil {
						return fmt.Errorf("must be an integer")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	cfg.Complexity = complexity
	cfg.FakeBlocks, _ = strconv.Atoi(fakeBlocksStr)
	cfg.PredicatesPerBranch, _ = strconv.Atoi(perBranchStr)
	if seedStr != "" {
		cfg.Seed, _ = strconv.ParseInt(seedStr, 10, 64)
	}

	scope := "project"
	scopeForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should the configuration be saved?").
				Options(
					huh.NewOption("Project (./.gfo/config.yaml)", "project"),
					huh.NewOption("Global (~/.gfo/config.yaml)", "global"),
				).
				Value(&scope),
		),
	)
	if err := scopeForm.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	path := filepath.Join(".gfo", "config.yaml")
	if scope == "global" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, ".gfo", "config.yaml")
	}

	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Printf("Configuration saved to %s\n", path)
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
