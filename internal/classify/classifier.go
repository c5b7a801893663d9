package classify

import (
	"context"

	"github.com/ppiankov/quaestio/internal/logging"
	"github.com/ppiankov/quaestio/internal/model"
	"go.uber.org/zap"
)

// DefaultThreshold is the rule confidence above which no escalation happens
const DefaultThreshold = 0.60

// Secondary is a slower classifier consulted for low-confidence queries
type Secondary interface {
	Name() string
	Classify(ctx context.Context, query string) (model.Classification, error)
}

// Outcome is what the observer sees for each classified query
type Outcome struct {
	Query     string
	Rule      model.Classification
	Secondary *model.Classification // Nil when not escalated or the secondary failed
	Chosen    model.Classification
	Escalated bool
}

// Observer receives every classification outcome, typically to track
// rule accuracy against the secondary classifier
type Observer interface {
	Observe(ctx context.Context, outcome Outcome)
}

// Classifier combines the keyword rules with an optional secondary
type Classifier struct {
	threshold float64
	secondary Secondary
	observer  Observer
	logger    *zap.Logger
}

// New creates a classifier. Secondary and observer may be nil.
func New(threshold float64, secondary Secondary, observer Observer, logger *zap.Logger) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Classifier{
		threshold: threshold,
		secondary: secondary,
		observer:  observer,
		logger:    logging.OrNop(logger),
	}
}

// Classify labels a query. Rule output is used when it clears the
// threshold; otherwise the secondary's answer replaces it only when it is
// more confident. A failing secondary leaves the rule result in place.
func (c *Classifier) Classify(ctx context.Context, query string, facts []model.AtomicFact) model.Classification {
	rule := Rules(query, facts)
	outcome := Outcome{Query: query, Rule: rule, Chosen: rule}

	if rule.Confidence < c.threshold && c.secondary != nil && ctx.Err() == nil {
		outcome.Escalated = true
		sec, err := c.secondary.Classify(ctx, query)
		if err != nil {
			c.logger.Warn("secondary classifier failed",
				zap.String("classifier", c.secondary.Name()),
				zap.Error(err))
		} else {
			outcome.Secondary = &sec
			if sec.Confidence > rule.Confidence {
				outcome.Chosen = sec
			}
		}
	}

	if c.observer != nil {
		c.observer.Observe(ctx, outcome)
	}
	return outcome.Chosen
}

// LogObserver writes outcomes as structured log entries
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates an observer backed by logger
func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logging.OrNop(logger)}
}

// Observe logs the rule and secondary labels side by side
func (o *LogObserver) Observe(_ context.Context, out Outcome) {
	fields := []zap.Field{
		zap.String("rule_domain", out.Rule.Domain),
		zap.String("rule_action", out.Rule.Action),
		zap.Float64("rule_confidence", out.Rule.Confidence),
		zap.Bool("escalated", out.Escalated),
		zap.String("chosen_method", out.Chosen.Method),
	}
	if out.Secondary != nil {
		fields = append(fields,
			zap.String("secondary_domain", out.Secondary.Domain),
			zap.String("secondary_action", out.Secondary.Action),
			zap.Float64("secondary_confidence", out.Secondary.Confidence),
			zap.Bool("agree", out.Secondary.Domain == out.Rule.Domain && out.Secondary.Action == out.Rule.Action),
		)
	}
	o.logger.Info("classification", fields...)
}
