package kb

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/quaestio/internal/embedding"
	"github.com/ppiankov/quaestio/internal/model"
)

// NewFromConfig builds a retriever over corpus with the configured
// strategies. The vector strategy is skipped when no engine is available.
func NewFromConfig(cfg model.KBConfig, corpus *Corpus, engine embedding.Engine, logger *zap.Logger) (*Retriever, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if corpus == nil {
		corpus = &Corpus{}
	}

	var strategies []Strategy
	for _, name := range cfg.Strategies {
		switch name {
		case "bm25":
			strategies = append(strategies, Strategy{Name: name, Searcher: NewBM25Searcher(corpus)})
		case "entity":
			strategies = append(strategies, Strategy{Name: name, Searcher: NewEntitySearcher(corpus)})
		case "vector":
			if engine == nil {
				logger.Info("vector KB strategy disabled: no embedding engine")
				continue
			}
			strategies = append(strategies, Strategy{Name: name, Searcher: NewVectorSearcher(corpus, engine)})
		default:
			return nil, fmt.Errorf("unknown KB strategy: %s (use 'bm25', 'vector' or 'entity')", name)
		}
	}

	return NewRetriever(strategies, cfg.BranchTimeout, logger), nil
}
