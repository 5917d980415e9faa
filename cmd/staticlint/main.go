// Command staticlint is the project's multichecker. It bundles a set of
// go/analysis passes, ineffassign, nilerr, selected staticcheck analyzers
// and two project analyzers:
//
//   - noosexit forbids os.Exit in main.main, so deferred cleanup always runs;
//   - nopasswordlog forbids handing password variables or fields to zap.
//
// The staticcheck analyzers are chosen by config.json next to the binary:
//
//	{"staticcheck": ["SA1000", "SA4006"]}
//
// Without the file, every SA (bug-finding) analyzer is enabled.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/catfinder/cmd/staticlint/noosexit"
	"github.com/patric-chuzhbe/catfinder/cmd/staticlint/nopasswordlog"
)

// Config is the name of the JSON file listing the enabled staticcheck analyzers.
const Config = `config.json`

type ConfigData struct {
	Staticcheck []string `json:"staticcheck"`
}

func loadConfig() (*ConfigData, error) {
	appfile, err := os.Executable()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg ConfigData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", Config, err)
	}

	return &cfg, nil
}

func staticcheckAnalyzers(cfg *ConfigData) []*analysis.Analyzer {
	enabled := func(name string) bool {
		return strings.HasPrefix(name, "SA")
	}
	if cfg != nil {
		names := make(map[string]bool, len(cfg.Staticcheck))
		for _, name := range cfg.Staticcheck {
			names[name] = true
		}
		enabled = func(name string) bool {
			return names[name]
		}
	}

	var result []*analysis.Analyzer
	for _, v := range staticcheck.Analyzers {
		if enabled(v.Analyzer.Name) {
			result = append(result, v.Analyzer)
		}
	}

	return result
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
		nopasswordlog.Analyzer,
	}
	checks = append(checks, staticcheckAnalyzers(cfg)...)

	multichecker.Main(checks...)
}
