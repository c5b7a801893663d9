package cache

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ppiankov/quaestio/internal/logging"
	"github.com/ppiankov/quaestio/internal/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EpochSource reports the current epoch of one upstream data set
type EpochSource interface {
	Epoch(ctx context.Context) (int64, error)
}

// EpochFunc adapts a function to EpochSource
type EpochFunc func(ctx context.Context) (int64, error)

// Epoch calls f
func (f EpochFunc) Epoch(ctx context.Context) (int64, error) {
	return f(ctx)
}

// StaticEpoch is a fixed epoch, for example the one a loaded KB corpus
// declares
type StaticEpoch int64

// Epoch returns the fixed value
func (e StaticEpoch) Epoch(context.Context) (int64, error) {
	return int64(e), nil
}

// epochFile is the on-disk format of the epoch file
type epochFile struct {
	KB   *int64 `yaml:"kb_epoch"`
	CCNL *int64 `yaml:"ccnl_epoch"`
}

// Epoch file fields
const (
	EpochFieldKB   = "kb"
	EpochFieldCCNL = "ccnl"
)

// FileEpoch reads one field of a YAML epoch file on every call, so epoch
// bumps published by other processes are picked up without a restart
func FileEpoch(path, field string) EpochSource {
	return EpochFunc(func(ctx context.Context) (int64, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read epoch file: %w", err)
		}

		var f epochFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return 0, fmt.Errorf("parse epoch file: %w", err)
		}

		var v *int64
		switch field {
		case EpochFieldKB:
			v = f.KB
		case EpochFieldCCNL:
			v = f.CCNL
		default:
			return 0, fmt.Errorf("unknown epoch field: %s", field)
		}
		if v == nil {
			return 0, fmt.Errorf("epoch file %s has no %s_epoch", path, field)
		}
		return *v, nil
	})
}

// EpochResolver snapshots all epochs at the start of a request
type EpochResolver struct {
	kb, golden, ccnl EpochSource
	parserVersion    string
	logger           *zap.Logger
}

// NewEpochResolver creates a resolver. Nil sources resolve to 0.
func NewEpochResolver(kb, golden, ccnl EpochSource, parserVersion string, logger *zap.Logger) *EpochResolver {
	return &EpochResolver{
		kb:            kb,
		golden:        golden,
		ccnl:          ccnl,
		parserVersion: NormalizeVersion(parserVersion),
		logger:        logging.OrNop(logger),
	}
}

// Resolve reads every source. Missing or failing sources contribute the
// sentinel 0; resolution itself never fails.
func (r *EpochResolver) Resolve(ctx context.Context) model.Epochs {
	return model.Epochs{
		KB:            r.read(ctx, "kb", r.kb),
		Golden:        r.read(ctx, "golden", r.golden),
		CCNL:          r.read(ctx, "ccnl", r.ccnl),
		ParserVersion: r.parserVersion,
	}
}

func (r *EpochResolver) read(ctx context.Context, name string, src EpochSource) int64 {
	if src == nil {
		return 0
	}
	v, err := src.Epoch(ctx)
	if err != nil {
		r.logger.Warn("epoch unavailable, using 0", zap.String("source", name), zap.Error(err))
		return 0
	}
	if v < 0 {
		return 0
	}
	return v
}

// NormalizeVersion renders a semantic version canonically ("v1.2" becomes
// "1.2.0"). Empty input is "0"; input that is not a version is kept as is.
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "0"
	}
	sv, err := semver.NewVersion(v)
	if err != nil {
		return v
	}
	return sv.String()
}
