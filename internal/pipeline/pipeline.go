package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/covenant/internal/cache"
	"github.com/ppiankov/covenant/internal/classify"
	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/ingest"
	"github.com/ppiankov/covenant/internal/llm"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/resolve"
	"github.com/ppiankov/covenant/internal/score"
	"github.com/ppiankov/covenant/internal/slots"
	"github.com/ppiankov/covenant/internal/store"
	"github.com/ppiankov/covenant/internal/validate"
	"github.com/ppiankov/covenant/internal/worker"
)

// Pipeline orchestrates the complete analysis of one document
type Pipeline struct {
	registry   *ingest.Registry
	fetcher    *ingest.Fetcher
	patterns   *extract.PatternLibrary
	extractor  *extract.FactExtractor
	classifier *classify.Classifier
	resolver   *resolve.Resolver
	checker    *slots.Checker
	validator  *validate.Validator
	scorer     *score.Scorer
	reviewer   *llm.Reviewer // Optional judgment collaborator (nil if disabled)
	playbook   *model.Playbook
	cache      *cache.AnalysisCache // nil when caching is disabled
	store      store.Store          // nil when persistence is disabled
	locks      *keyedMutex
	config     *model.Config
	newID      model.IDFunc
	now        func() time.Time
}

// NewPipeline creates a new pipeline with the given configuration.
// Collaborators that fail to initialize are disabled with a warning.
func NewPipeline(cfg *model.Config) *Pipeline {
	patterns := extract.NewPatternLibrary()

	p := &Pipeline{
		registry: ingest.NewRegistry(),
		fetcher: ingest.NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
			cfg.HTTP.RespectRobots, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		patterns:   patterns,
		extractor:  extract.NewFactExtractor(patterns),
		classifier: classify.NewClassifier(),
		resolver:   resolve.NewResolver(patterns),
		checker:    slots.NewChecker(slots.DefaultRegistry(), patterns),
		validator:  validate.NewValidator(cfg.Concurrency.Workers * 2),
		scorer:     score.NewScorer(),
		locks:      newKeyedMutex(),
		config:     cfg,
		newID:      model.NewID,
		now:        func() time.Time { return time.Now().UTC() },
	}

	if cfg.LLM.Provider != "" {
		reviewer, err := llm.NewReviewer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize LLM provider: %v\n", err)
		} else {
			limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
			p.reviewer = reviewer.WithLimiter(limiter)
		}
	}

	if cfg.PlaybookPath != "" {
		pb, err := LoadPlaybook(cfg.PlaybookPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load playbook: %v\n", err)
		} else {
			p.WithPlaybook(pb)
		}
	}

	if cfg.Cache.Enabled {
		layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		p.cache = cache.NewAnalysisCache(layered, cfg.Cache.DiskTTL)
	}

	return p
}

// WithStore enables persistence of every completed analysis
func (p *Pipeline) WithStore(s store.Store) *Pipeline {
	p.store = s
	return p
}

// WithReviewer replaces the judgment collaborator
func (p *Pipeline) WithReviewer(r *llm.Reviewer) *Pipeline {
	p.reviewer = r
	return p
}

// WithPlaybook sets the policy positions and extends the slot registry with
// the playbook's required facts
func (p *Pipeline) WithPlaybook(pb *model.Playbook) *Pipeline {
	p.playbook = pb
	p.checker = slots.NewChecker(slots.DefaultRegistry().WithPlaybook(pb), p.patterns)
	return p
}

// WithCache replaces the analysis cache; nil disables caching
func (p *Pipeline) WithCache(c *cache.AnalysisCache) *Pipeline {
	p.cache = c
	return p
}

// WithIDFunc overrides identifier minting in every stage
func (p *Pipeline) WithIDFunc(fn model.IDFunc) *Pipeline {
	p.newID = fn
	p.extractor.WithIDFunc(fn)
	p.classifier.WithIDFunc(fn)
	p.resolver.WithIDFunc(fn)
	return p
}

// Playbook returns the playbook in use, or nil
func (p *Pipeline) Playbook() *model.Playbook {
	return p.playbook
}

// Reviewer returns the judgment collaborator, or nil
func (p *Pipeline) Reviewer() *llm.Reviewer {
	return p.reviewer
}

// Close releases the store, if any
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// AnalyzeSource reads a local file or fetches a URL and analyzes it
func (p *Pipeline) AnalyzeSource(ctx context.Context, source string) (*model.Analysis, error) {
	doc, err := p.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.Analyze(ctx, doc)
}

// Load parses a document from a path or http(s) URL
func (p *Pipeline) Load(ctx context.Context, source string) (model.Document, error) {
	if !isURL(source) {
		doc, err := p.registry.ReadFile(source)
		if err != nil {
			return model.Document{}, fmt.Errorf("ingest: %w", err)
		}
		return doc, nil
	}

	fetched, err := p.fetcher.FetchWithRetry(ctx, source)
	if err != nil {
		return model.Document{}, fmt.Errorf("fetch: %w", err)
	}
	doc, err := p.registry.Read(ingest.DocumentID(fetched.FinalURL), fetched.FinalURL, fetched.ContentType, fetched.Body)
	if err != nil {
		return model.Document{}, fmt.Errorf("ingest: %w", err)
	}
	return doc, nil
}

// ParseText parses raw content supplied by a caller (API, tool server)
func (p *Pipeline) ParseText(id, source, contentType, content string) (model.Document, error) {
	if id == "" {
		id = ingest.DocumentID(source)
	}
	return p.registry.Read(id, source, contentType, []byte(content))
}

// Analyze runs the full resolution over a parsed document. Runs for the
// same document version are serialized; a cached or stored analysis of the
// version is returned instead of re-running. Runs whose judgment came back
// incomplete are neither cached nor stored, so a later run retries them.
func (p *Pipeline) Analyze(ctx context.Context, doc model.Document) (*model.Analysis, error) {
	version := p.runVersion(doc)
	unlock := p.locks.Lock(doc.ID + "@" + version)
	defer unlock()

	if p.cache != nil {
		if cached, ok := p.cache.Get(doc.ID, version); ok {
			if p.config.Output.Verbose {
				fmt.Fprintf(os.Stderr, "✓ Cache hit: %s@%s\n", doc.ID, version)
			}
			return cached, nil
		}
	}

	if p.store != nil {
		stored, err := p.store.LoadAnalysis(ctx, doc.ID, version)
		if err == nil {
			p.remember(stored)
			return stored, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load stored analysis: %v\n", err)
		}
	}

	a, err := p.Resolve(ctx, doc)
	if err != nil {
		return nil, err
	}

	if err := p.validator.Check(ctx, *a, doc.Text); err != nil {
		return nil, fmt.Errorf("validate analysis: %w", err)
	}

	if incompleteJudgment(a) {
		fmt.Fprintf(os.Stderr, "Warning: Judgment incomplete for %s (%d of %d clauses), not caching\n",
			doc.ID, a.Judgment.Received, a.Judgment.Requested)
		return a, nil
	}

	p.remember(a)
	if p.store != nil {
		if err := p.store.SaveAnalysis(ctx, a); err != nil && !errors.Is(err, store.ErrExists) {
			fmt.Fprintf(os.Stderr, "Warning: Failed to persist analysis: %v\n", err)
		}
	}

	return a, nil
}

// runVersion is the document content hash, suffixed with a fingerprint of
// the judgment configuration when findings can be produced. Rule-only runs
// use the bare content hash.
func (p *Pipeline) runVersion(doc model.Document) string {
	version := doc.Version()
	if !p.reviewer.IsEnabled() || p.playbook == nil {
		return version
	}

	playbook, err := json.Marshal(p.playbook)
	if err != nil {
		playbook = []byte(p.playbook.Name)
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", p.reviewer.ProviderName(), p.reviewer.Model())
	h.Write(playbook)
	return version + "-" + hex.EncodeToString(h.Sum(nil))[:8]
}

func incompleteJudgment(a *model.Analysis) bool {
	return a.Judgment != nil && a.Judgment.Received < a.Judgment.Requested
}

func (p *Pipeline) remember(a *model.Analysis) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Put(a); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to cache analysis: %v\n", err)
	}
}

// Resolve builds every layer for a document without caching or persisting.
// Deterministic layers come first; judgment runs last and never rewrites
// them.
func (p *Pipeline) Resolve(ctx context.Context, doc model.Document) (*model.Analysis, error) {
	verbose := p.config.Output.Verbose

	// 1. Facts
	facts, err := p.extractor.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extract facts: %w", err)
	}

	// 2. Clauses
	clauses, err := p.classifier.ClassifyParagraphs(doc.ID, doc.Text, doc.Paragraphs, facts)
	if err != nil {
		return nil, fmt.Errorf("classify clauses: %w", err)
	}

	// 3. Bindings: aliases first so restated definitions never override them
	aliases, err := p.resolver.DetectAliases(doc.Text, doc.ID, facts)
	if err != nil {
		return nil, fmt.Errorf("detect aliases: %w", err)
	}
	bindings, err := p.resolver.ResolveBindings(facts, aliases, doc.Text, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve bindings: %w", err)
	}

	// 4. Cross-references
	var xrefs []model.CrossReference
	for i, c := range clauses {
		refs, err := p.resolver.ExtractClauseReferences(doc.Text, c, clauses, facts, p.config.Engine.ContextWindow)
		if err != nil {
			return nil, fmt.Errorf("cross-references of %s: %w", c.ID, err)
		}
		ids := make([]string, len(refs))
		for j, r := range refs {
			ids[j] = r.ID
		}
		clauses[i] = c.WithCrossReferences(ids)
		xrefs = append(xrefs, refs...)
	}

	// 5. Slots
	var allSlots []model.ClauseFactSlot
	for _, c := range clauses {
		checked, err := p.checker.Check(c, classify.ClauseText(doc.Text, c), factsIn(facts, c))
		if err != nil {
			return nil, fmt.Errorf("check slots of %s: %w", c.ID, err)
		}
		allSlots = append(allSlots, checked...)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d facts, %d bindings\n", len(facts), len(bindings))
		fmt.Fprintf(os.Stderr, "✓ Classified %d clauses, %d cross-references\n", len(clauses), len(xrefs))
	}

	a := &model.Analysis{
		DocumentID:      doc.ID,
		Source:          doc.Source,
		Version:         p.runVersion(doc),
		Facts:           nonNil(facts),
		Bindings:        nonNil(bindings),
		Clauses:         nonNil(clauses),
		CrossReferences: nonNil(xrefs),
		Slots:           nonNil(allSlots),
		Findings:        []model.Finding{},
		Principles:      model.DefaultPrinciples(),
	}

	// 6. Judgment (AFTER deterministic layers, never alters them)
	findings, meta, err := p.review(ctx, doc, a)
	if err != nil {
		return nil, err
	}
	a.Findings = findings
	a.Judgment = meta

	if err := score.ValidateFindings(a.Findings); err != nil {
		return nil, fmt.Errorf("validate findings: %w", err)
	}

	// 7. Score
	a.Profile, a.Signals = p.scorer.Calculate(*a)
	a.AnalyzedAt = p.now()

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Overall risk: %s (%d)\n", a.Profile.OverallLevel, a.Profile.OverallScore)
	}

	return a, nil
}

// factsIn returns the facts whose evidence lies inside the clause extent
func factsIn(facts []model.Fact, c model.Clause) []model.Fact {
	var out []model.Fact
	for _, f := range facts {
		if f.Evidence.Start >= c.Start && f.Evidence.End <= c.End {
			out = append(out, f)
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
