package worker

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
)

// Analyzer analyzes one document source (file path or URL)
type Analyzer interface {
	AnalyzeSource(ctx context.Context, source string) (*model.Analysis, error)
}

// AnalyzeJob represents one document analysis
type AnalyzeJob struct {
	Source   string
	Analyzer Analyzer
	Limiter  *Limiter // nil when unthrottled
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Source); err != nil {
			return &AnalyzeResult{Source: j.Source, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}

	analysis, err := j.Analyzer.AnalyzeSource(ctx, j.Source)
	if err != nil {
		return &AnalyzeResult{Source: j.Source, Error: err}
	}
	return &AnalyzeResult{Source: j.Source, Analysis: analysis}
}

// AnalyzeResult represents the result of an analysis job
type AnalyzeResult struct {
	Source   string
	Analysis *model.Analysis
	Error    error
}

// GetError returns the error from the analysis result
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes multiple documents concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a new batch processor. A positive
// requestsPerSecond throttles sources per host.
func NewBatchProcessor(analyzer Analyzer, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
	if requestsPerSecond > 0 {
		b.limiter = NewLimiter(requestsPerSecond, burst)
	}
	return b
}

// ProcessSources analyzes sources concurrently. Results follow the input order.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*AnalyzeResult {
	if len(sources) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPoolContext(ctx, b.concurrency)
	pool.Start()

	for _, source := range sources {
		pool.Submit(&AnalyzeJob{
			Source:   source,
			Analyzer: b.analyzer,
			Limiter:  b.limiter,
		})
	}

	bySource := make(map[string]*AnalyzeResult, len(sources))
	for _, result := range pool.Wait() {
		r := result.(*AnalyzeResult)
		bySource[r.Source] = r
	}

	ordered := make([]*AnalyzeResult, 0, len(sources))
	for _, source := range sources {
		r, ok := bySource[source]
		if !ok {
			// Cancelled before the job ran
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("not processed")
			}
			r = &AnalyzeResult{Source: source, Error: err}
		}
		ordered = append(ordered, r)
	}

	return ordered
}

// ProcessFile reads sources from a list file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads sources from a file (one per line).
// Blank lines and '#' comments are skipped; duplicates are dropped.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}

// documentExtensions are the file types a directory expansion picks up
var documentExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".html": true, ".htm": true,
}

// ExpandSources replaces directory arguments with the documents they
// contain, in lexical order. URLs and plain files pass through.
func ExpandSources(args []string) ([]string, error) {
	var sources []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}

	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			add(arg)
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && documentExtensions[strings.ToLower(filepath.Ext(path))] {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}

	return sources, nil
}
