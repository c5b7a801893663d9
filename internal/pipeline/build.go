package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/quaestio/internal/cache"
	"github.com/ppiankov/quaestio/internal/classify"
	"github.com/ppiankov/quaestio/internal/delta"
	"github.com/ppiankov/quaestio/internal/embedding"
	"github.com/ppiankov/quaestio/internal/execute"
	"github.com/ppiankov/quaestio/internal/extract"
	"github.com/ppiankov/quaestio/internal/golden"
	"github.com/ppiankov/quaestio/internal/kb"
	"github.com/ppiankov/quaestio/internal/llm"
	"github.com/ppiankov/quaestio/internal/logging"
	"github.com/ppiankov/quaestio/internal/model"
	"github.com/ppiankov/quaestio/internal/route"
)

// System is a resolver wired from configuration together with the stores
// it owns
type System struct {
	Resolver  *Resolver
	Golden    *golden.SQLiteStore // Nil when the curated store is disabled
	Corpus    *kb.Corpus          // Nil when no corpus is configured
	Providers llm.Registry
}

// Close releases the stores
func (s *System) Close() error {
	if s.Golden != nil {
		return s.Golden.Close()
	}
	return nil
}

// Build wires every component from cfg. Providers that cannot be created
// are logged and left out of routing; an unusable embedding engine only
// disables semantic search.
func Build(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*System, error) {
	logger = logging.OrNop(logger)
	sys := &System{}

	engine, err := embedding.NewEngine(cfg.Golden.Embedding)
	if err != nil {
		logger.Warn("embedding engine disabled", zap.Error(err))
		engine = nil
	}

	if cfg.Golden.Enabled && cfg.Golden.DBPath != "" {
		store, err := golden.Open(cfg.Golden.DBPath, engine, logger)
		if err != nil {
			return nil, fmt.Errorf("open curated store: %w", err)
		}
		sys.Golden = store
	}

	if cfg.KB.CorpusPath != "" {
		corpus, err := kb.LoadCorpus(cfg.KB.CorpusPath)
		if err != nil {
			_ = sys.Close()
			return nil, fmt.Errorf("load knowledge base: %w", err)
		}
		sys.Corpus = corpus
	}

	retriever, err := kb.NewFromConfig(cfg.KB, sys.Corpus, engine, logger)
	if err != nil {
		_ = sys.Close()
		return nil, err
	}

	registry, failures := llm.NewRegistry(cfg.Routing.Providers, cfg.Budget.OutputTokens)
	for _, f := range failures {
		logger.Warn("provider unavailable", zap.Error(f))
	}
	sys.Providers = registry

	limiter := execute.NewLimiter(0, cfg.Retry.Burst)
	var routable []model.ProviderProfile
	for _, p := range cfg.Routing.Providers {
		if _, ok := registry[p.ID]; !ok {
			continue
		}
		routable = append(routable, p)
		if p.RequestsPerSec > 0 {
			limiter.SetProviderRate(p.ID, p.RequestsPerSec, cfg.Retry.Burst)
		}
	}

	var secondary classify.Secondary
	if id := cfg.Classifier.SecondaryProvider; id != "" {
		if p, ok := registry[id]; ok {
			secondary = classify.NewLLMClassifier(p)
		} else {
			logger.Warn("secondary classifier provider not available", zap.String("provider", id))
		}
	}

	deps := Deps{
		Config:     cfg,
		Detector:   delta.NewDetector(cfg.Delta, logger),
		KB:         retriever,
		Documents:  extract.NewRegistry(),
		Classifier: classify.New(cfg.Thresholds.Classifier, secondary, classify.NewLogObserver(logger), logger),
		Router:     route.NewRouter(cfg.Routing, routable, logger),
		Executor:   execute.New(registry, cfg.Retry, cfg.IsProduction(), limiter, logger),
		Epochs:     newEpochResolver(ctx, cfg, sys, logger),
		Logger:     logger,
	}

	if sys.Golden != nil {
		deps.Matcher = golden.NewMatcher(sys.Golden, cfg.Thresholds, cfg.Golden.TopK, logger)
	}
	if store := cache.NewFromConfig(cfg.Cache); store != nil {
		deps.Cache = cache.NewResponseCache(store, cfg.Cache.SchemaVersion, cfg.Cache.ResponseTTL, logger)
	}

	sys.Resolver = New(deps)
	return sys, nil
}

// newEpochResolver picks the epoch sources: the epoch file for KB and CCNL
// when configured (the corpus epoch otherwise), and the curated store for
// the golden epoch
func newEpochResolver(_ context.Context, cfg *model.Config, sys *System, logger *zap.Logger) *cache.EpochResolver {
	var kbSrc, goldenSrc, ccnlSrc cache.EpochSource
	if cfg.Cache.EpochFile != "" {
		kbSrc = cache.FileEpoch(cfg.Cache.EpochFile, cache.EpochFieldKB)
		ccnlSrc = cache.FileEpoch(cfg.Cache.EpochFile, cache.EpochFieldCCNL)
	} else if sys.Corpus != nil {
		kbSrc = cache.StaticEpoch(sys.Corpus.Epoch)
	}
	if sys.Golden != nil {
		goldenSrc = sys.Golden
	}
	return cache.NewEpochResolver(kbSrc, goldenSrc, ccnlSrc, cfg.Cache.ParserVersion, logger)
}
