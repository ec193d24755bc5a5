package pagesort

import (
	"fmt"
	"os"

	"github.com/phuslu/log"
)

// Config holds configuration settings for pagesort
type Config struct {
	MergeBudget    int         // pages resident during a merge pass, 0 to use the run size; fan-in is MergeBudget-1
	TempNamePrefix string      // name prefix for temporary run tables
	CleanupWorkers int         // maximum number of temporary tables dropped concurrently
	Distinct       bool        // drop records equal to the previous one during the final merge
	Logger         *log.Logger // nil for DefaultLogger()
}

// DefaultConfig returns the default configuration options used if none provided
func DefaultConfig() *Config {
	return &Config{
		MergeBudget:    0,
		TempNamePrefix: fmt.Sprintf("pagesort_%d_", os.Getpid()),
		CleanupWorkers: 4,
		Distinct:       false,
		Logger:         DefaultLogger(),
	}
}

// DefaultLogger returns a console logger that only reports warnings and errors
func DefaultLogger() *log.Logger {
	return &log.Logger{
		Level:  log.WarnLevel,
		Caller: 0,
		Writer: &log.ConsoleWriter{
			ColorOutput:    false,
			EndWithMessage: true,
		},
	}
}

// mergeConfig takes a provided config and replaces any values not set with the defaults.
// The provided config is not modified.
func mergeConfig(c *Config) *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	m := *c
	if m.MergeBudget < 0 {
		m.MergeBudget = d.MergeBudget
	}
	if m.TempNamePrefix == "" {
		m.TempNamePrefix = d.TempNamePrefix
	}
	if m.CleanupWorkers < 1 {
		m.CleanupWorkers = d.CleanupWorkers
	}
	if m.Logger == nil {
		m.Logger = d.Logger
	}
	return &m
}

// fanIn returns how many runs one merge pass may read at once for the given run size.
// One page of the budget is left for the destination's output page.
func (c *Config) fanIn(runSize int) int {
	budget := c.MergeBudget
	if budget == 0 {
		budget = runSize
	}
	return max(budget-1, 2)
}
