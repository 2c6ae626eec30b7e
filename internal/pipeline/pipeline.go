// Package pipeline runs the matching engine over a spreadsheet and writes the
// results back out. It is shared by the command line and the job server.
package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"shop-dedup/internal/calculator"
	"shop-dedup/internal/excel"
	"shop-dedup/internal/models"
)

// Mode selects which report a run produces.
type Mode string

const (
	ModeMatch Mode = "match"
	ModeAudit Mode = "audit"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMatch:
		return ModeMatch, nil
	case ModeAudit:
		return ModeAudit, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Input locates the records to read.
type Input struct {
	Path    string
	Sheet   string
	Columns excel.Columns
}

type Summary struct {
	Mode      Mode
	Read      int
	Skipped   int
	Secured   int
	Unsecured int
	Rows      int // rows written to the output
	Sheet     string
	Output    string
	Counts    map[models.Recommendation]int
	Elapsed   time.Duration
}

func load(in Input, log *zap.Logger) ([]models.Shop, excel.ReadStats, error) {
	f, err := excel.OpenFile(in.Path)
	if err != nil {
		return nil, excel.ReadStats{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	shops, stats, err := excel.ReadShops(f, in.Sheet, in.Columns)
	if err != nil {
		return nil, stats, fmt.Errorf("reading shops: %w", err)
	}
	log.Info("shops loaded",
		zap.String("path", in.Path),
		zap.Int("rows", stats.Rows),
		zap.Int("skipped", stats.Skipped),
	)
	return shops, stats, nil
}

// Run dispatches on mode.
func Run(mode Mode, in Input, output string, opts calculator.Options) (*Summary, error) {
	if mode == ModeAudit {
		return RunAudit(in, output, opts)
	}
	return RunMatch(in, output, opts)
}

// RunMatch classifies every unsecured shop and writes the Results sheet.
func RunMatch(in Input, output string, opts calculator.Options) (*Summary, error) {
	log := logger(opts)
	start := time.Now()

	shops, stats, err := load(in, log)
	if err != nil {
		return nil, err
	}
	secured, unsecured := calculator.Split(shops)
	sum := &Summary{
		Mode:      ModeMatch,
		Read:      stats.Rows,
		Skipped:   stats.Skipped,
		Secured:   len(secured),
		Unsecured: len(unsecured),
		Sheet:     excel.ResultsSheet,
		Output:    output,
	}
	if len(unsecured) == 0 {
		log.Warn("no unsecured shops to process")
	}

	results, err := calculator.ClassifyUnsecured(secured, unsecured, opts)
	if err != nil {
		return nil, fmt.Errorf("classifying: %w", err)
	}
	if err := excel.WriteMatchResults(output, results); err != nil {
		return nil, fmt.Errorf("writing results: %w", err)
	}

	sum.Rows = len(results)
	sum.Counts = calculator.CountRecommendations(results)
	sum.Elapsed = time.Since(start)
	log.Info("results saved", zap.String("output", output), zap.Int("rows", sum.Rows), zap.Duration("elapsed", sum.Elapsed))
	return sum, nil
}

// RunAudit writes the suspicious duplicate pairs among secured shops.
func RunAudit(in Input, output string, opts calculator.Options) (*Summary, error) {
	log := logger(opts)
	start := time.Now()

	shops, stats, err := load(in, log)
	if err != nil {
		return nil, err
	}
	secured, unsecured := calculator.Split(shops)

	pairs, err := calculator.AuditSecured(secured, opts)
	if err != nil {
		return nil, fmt.Errorf("auditing: %w", err)
	}
	if err := excel.WriteDuplicatePairs(output, pairs); err != nil {
		return nil, fmt.Errorf("writing pairs: %w", err)
	}

	sum := &Summary{
		Mode:      ModeAudit,
		Read:      stats.Rows,
		Skipped:   stats.Skipped,
		Secured:   len(secured),
		Unsecured: len(unsecured),
		Rows:      len(pairs),
		Sheet:     excel.AuditSheet,
		Output:    output,
		Elapsed:   time.Since(start),
	}
	log.Info("suspicious pairs saved", zap.String("output", output), zap.Int("pairs", sum.Rows), zap.Duration("elapsed", sum.Elapsed))
	return sum, nil
}

func logger(opts calculator.Options) *zap.Logger {
	if opts.Logger == nil {
		return zap.NewNop()
	}
	return opts.Logger
}
