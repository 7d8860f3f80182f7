// Package healthcheck inspects the effective gfo configuration and cache
// directory for the doctor command.
package healthcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kairos-sec/go-flow-obfuscator/internal/config"
	"github.com/kairos-sec/go-flow-obfuscator/pkg/cache"
	"github.com/kairos-sec/go-flow-obfuscator/pkg/extractor"
)

// Status reports one checked component.
type Status struct {
	Name   string // "config" or "cache"
	Status string // "ok" or "error"
	Detail string
	Error  string
}

// Result contains the full health check output for display.
type Result struct {
	ConfigPath  string
	ConfigScope string // "global", "project", or "defaults"
	Config      Status
	Cache       Status
	Grammars    Status
}

// Check validates cfg and probes the cache directory for writability.
// configPath is the config file actually in use (empty when running on
// defaults).
func Check(cfg *config.Config, configPath string) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &Result{
		ConfigPath:  configPath,
		ConfigScope: scopeFromPath(configPath),
	}

	result.Config = checkConfig(cfg)
	result.Cache = checkCacheDir(cfg.CacheDir)
	result.Grammars = checkGrammars()

	return result, nil
}

// checkGrammars runs a throwaway parse per language to confirm the
// tree-sitter grammars are functional.
func checkGrammars() Status {
	s := Status{Name: "grammars", Detail: "c, cpp"}

	probe := []byte("int main(void) { return 0; }\n")
	for _, lang := range []extractor.Language{extractor.C, extractor.CPP} {
		if fns := extractor.ListFunctions(probe, lang); len(fns) != 1 || fns[0].Name != "main" {
			s.Status = "error"
			s.Error = fmt.Sprintf("%s grammar failed to parse probe source", lang)
			return s
		}
	}

	s.Status = "ok"
	return s
}

// scopeFromPath determines "global" or "project" scope from a config file
// path. Returns "defaults" if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return "defaults"
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".gfo")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

func checkConfig(cfg *config.Config) Status {
	s := Status{
		Name: "config",
		Detail: fmt.Sprintf("fake_blocks=%d complexity=%s predicates_per_branch=%d seed=%d",
			cfg.FakeBlocks, cfg.Complexity, cfg.PredicatesPerBranch, cfg.Seed),
	}

	if err := cfg.Validate(); err != nil {
		s.Status = "error"
		s.Error = err.Error()
		return s
	}

	s.Status = "ok"
	return s
}

func checkCacheDir(dir string) Status {
	s := Status{Name: "cache", Detail: dir}

	if dir == "" {
		s.Status = "ok"
		s.Detail = "disabled"
		return s
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		s.Status = "error"
		s.Error = fmt.Sprintf("cannot create cache dir: %v", err)
		return s
	}

	probe := filepath.Join(dir, ".gfo-doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		s.Status = "error"
		s.Error = fmt.Sprintf("cache dir not writable: %v", err)
		return s
	}
	_ = os.Remove(probe)

	if store, err := cache.New(dir); err == nil {
		entries, size := store.Stats()
		s.Detail = fmt.Sprintf("%s (%d entries, %s)", dir, entries, humanize.Bytes(uint64(size)))
	}

	s.Status = "ok"
	return s
}
