package golden

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ppiankov/quaestio/internal/embedding"
	"github.com/ppiankov/quaestio/internal/facts"
	"github.com/ppiankov/quaestio/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps curated answers in SQLite with optional embeddings for
// semantic search
type SQLiteStore struct {
	db     *sql.DB
	engine embedding.Engine
	logger *zap.Logger
}

// Open creates or opens a curated-answer database at path.
// engine may be nil, in which case semantic search returns no candidates.
func Open(path string, engine embedding.Engine, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer; a single connection also keeps :memory: shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, engine: engine, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

const selectColumns = `id, epoch, signature, question, answer, citations, tags, updated_at`

// LookupBySignature returns the latest curated answer for sig
func (s *SQLiteStore) LookupBySignature(ctx context.Context, sig model.QuerySignature) (*model.CuratedAnswer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM latest_answers WHERE signature = ? ORDER BY updated_at DESC, id LIMIT 1`,
		string(sig))

	answer, _, err := scanAnswer(row.Scan, false)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup by signature: %w", err)
	}
	return answer, nil
}

// SemanticSearch embeds text and ranks stored answers by cosine similarity
func (s *SQLiteStore) SemanticSearch(ctx context.Context, text string, topK int) ([]model.ScoredAnswer, error) {
	if s.engine == nil || topK <= 0 {
		return nil, nil
	}

	query, err := s.engine.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+`, embedding FROM latest_answers WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scored []model.ScoredAnswer
	for rows.Next() {
		answer, vec, err := scanAnswer(rows.Scan, true)
		if err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		sim, err := embedding.CosineSimilarity(query, vec)
		if err != nil {
			s.logger.Warn("skipping curated answer with mismatched embedding",
				zap.String("id", answer.ID), zap.Error(err))
			continue
		}
		scored = append(scored, model.ScoredAnswer{Answer: *answer, Score: math.Max(0, sim)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Upsert publishes a curated answer. An unchanged answer is a no-op; a
// changed one is stored as a new row with the next epoch. The signature is
// derived from the question when not set. Returns the stored epoch.
func (s *SQLiteStore) Upsert(ctx context.Context, a model.CuratedAnswer) (int64, error) {
	if a.ID == "" {
		return 0, fmt.Errorf("curated answer id is required")
	}
	if a.Signature == "" {
		a.Signature = facts.Signature(facts.Parse(a.Question))
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}

	current, err := latestByID(ctx, s.db, a.ID)
	if err != nil {
		return 0, err
	}
	if current != nil && sameContent(*current, a) {
		return current.Epoch, nil
	}

	var blob []byte
	if s.engine != nil {
		vec, err := s.engine.Embed(ctx, a.Question)
		if err != nil {
			return 0, fmt.Errorf("embed question %s: %w", a.ID, err)
		}
		blob = encodeVector(vec)
	}

	citations, _ := json.Marshal(nonNil(a.Citations))
	tags, _ := json.Marshal(nonNil(a.Tags))

	// The epoch read and the insert share a transaction so concurrent
	// publishers never store the same epoch
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin publish %s: %w", a.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err = latestByID(ctx, tx, a.ID)
	if err != nil {
		return 0, err
	}
	if current != nil && sameContent(*current, a) {
		return current.Epoch, nil
	}

	epoch, err := readEpoch(ctx, tx)
	if err != nil {
		return 0, err
	}
	epoch++

	_, err = tx.ExecContext(ctx,
		`INSERT INTO curated_answers (id, epoch, signature, question, answer, citations, tags, updated_at, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, epoch, string(a.Signature), a.Question, a.Answer,
		string(citations), string(tags), a.UpdatedAt.UTC().Format(time.RFC3339Nano), blob)
	if err != nil {
		return 0, fmt.Errorf("insert curated answer %s: %w", a.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit curated answer %s: %w", a.ID, err)
	}

	s.logger.Debug("curated answer published",
		zap.String("id", a.ID),
		zap.Int64("epoch", epoch),
		zap.String("signature", a.Signature.Short()))

	return epoch, nil
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Epoch returns the current golden epoch: the highest row epoch, 0 if empty
func (s *SQLiteStore) Epoch(ctx context.Context) (int64, error) {
	return readEpoch(ctx, s.db)
}

func readEpoch(ctx context.Context, q rowQuerier) (int64, error) {
	var epoch sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(epoch) FROM curated_answers`).Scan(&epoch); err != nil {
		return 0, fmt.Errorf("read golden epoch: %w", err)
	}
	return epoch.Int64, nil
}

// Count returns the number of distinct curated answers
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM latest_answers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count curated answers: %w", err)
	}
	return n, nil
}

func latestByID(ctx context.Context, q rowQuerier, id string) (*model.CuratedAnswer, error) {
	row := q.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM latest_answers WHERE id = ?`, id)
	answer, _, err := scanAnswer(row.Scan, false)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	return answer, nil
}

func scanAnswer(scan func(dest ...any) error, withEmbedding bool) (*model.CuratedAnswer, []float32, error) {
	var (
		a                          model.CuratedAnswer
		sig, citations, tags, when string
		blob                       []byte
	)

	dest := []any{&a.ID, &a.Epoch, &sig, &a.Question, &a.Answer, &citations, &tags, &when}
	if withEmbedding {
		dest = append(dest, &blob)
	}
	if err := scan(dest...); err != nil {
		return nil, nil, err
	}

	a.Signature = model.QuerySignature(sig)
	if err := json.Unmarshal([]byte(citations), &a.Citations); err != nil {
		return nil, nil, fmt.Errorf("decode citations: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, nil, fmt.Errorf("decode tags: %w", err)
	}
	if when != "" {
		t, err := time.Parse(time.RFC3339Nano, when)
		if err != nil {
			return nil, nil, fmt.Errorf("decode updated_at: %w", err)
		}
		a.UpdatedAt = t
	}

	return &a, decodeVector(blob), nil
}

func sameContent(a, b model.CuratedAnswer) bool {
	return a.Signature == b.Signature &&
		a.Question == b.Question &&
		a.Answer == b.Answer &&
		slices.Equal(nonNil(a.Citations), nonNil(b.Citations)) &&
		slices.Equal(nonNil(a.Tags), nonNil(b.Tags))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// encodeVector stores float32 values little-endian
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
