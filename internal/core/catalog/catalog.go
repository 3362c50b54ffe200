// Package catalog persists rule-set snapshots and the analysis runs
// recorded against them.
//
// Snapshots are append-only: saving the same document twice yields two
// records with distinct IDs, so a run always points at the exact bytes it
// analyzed. Verdicts are stored as JSON blobs; the catalog never interprets
// them.
package catalog

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/ruleproof/internal/core/db"
	"github.com/solatis/ruleproof/internal/types"
)

// Analysis run kinds.
const (
	RunFeasibility   = "feasibility"
	RunLocalization  = "localization"
	RunImplication   = "implication"
	RunContradiction = "contradiction"
	RunSimplify      = "simplify"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("catalog: record not found")

// RuleSetRecord is one stored rule-set snapshot.
type RuleSetRecord struct {
	SetID     types.SetID `db:"set_id"`
	Name      string      `db:"name"`
	Document  string      `db:"document"`
	Checksum  string      `db:"checksum"`
	RuleCount int         `db:"rule_count"`
	CreatedAt string      `db:"created_at"`
}

// RunRecord is one recorded analysis run.
type RunRecord struct {
	RunID      types.RunID `db:"run_id"`
	SetID      types.SetID `db:"set_id"`
	Kind       string      `db:"kind"`
	Verdict    string      `db:"verdict"`
	DurationMs int64       `db:"duration_ms"`
	CreatedAt  string      `db:"created_at"`
}

// Store reads and writes the catalog through named queries.
type Store struct {
	queries *db.Queries
}

func NewStore(queries *db.Queries) *Store {
	return &Store{queries: queries}
}

// SaveRuleSet stores a new snapshot of the given document.
func (s *Store) SaveRuleSet(name, document string, ruleCount int) (RuleSetRecord, error) {
	rec := RuleSetRecord{
		SetID:     types.NewSetID(),
		Name:      name,
		Document:  document,
		Checksum:  checksum(document),
		RuleCount: ruleCount,
		CreatedAt: now(),
	}
	_, err := s.queries.Exec("insert-rule-set",
		rec.SetID, rec.Name, rec.Document, rec.Checksum, rec.RuleCount, rec.CreatedAt)
	if err != nil {
		return RuleSetRecord{}, fmt.Errorf("failed to save rule set %q: %w", name, err)
	}
	return rec, nil
}

// GetRuleSet retrieves one snapshot by ID.
func (s *Store) GetRuleSet(id types.SetID) (RuleSetRecord, error) {
	var rec RuleSetRecord
	if err := s.queries.Get("get-rule-set", &rec, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RuleSetRecord{}, ErrNotFound
		}
		return RuleSetRecord{}, fmt.Errorf("failed to get rule set %s: %w", id, err)
	}
	return rec, nil
}

// LatestRuleSet retrieves the most recent snapshot with the given name.
func (s *Store) LatestRuleSet(name string) (RuleSetRecord, error) {
	var rec RuleSetRecord
	if err := s.queries.Get("get-latest-rule-set", &rec, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RuleSetRecord{}, ErrNotFound
		}
		return RuleSetRecord{}, fmt.Errorf("failed to get latest rule set %q: %w", name, err)
	}
	return rec, nil
}

// ListRuleSets returns every snapshot, newest first.
func (s *Store) ListRuleSets() ([]RuleSetRecord, error) {
	var recs []RuleSetRecord
	if err := s.queries.Select("list-rule-sets", &recs); err != nil {
		return nil, fmt.Errorf("failed to list rule sets: %w", err)
	}
	return recs, nil
}

// RecordRun stores one analysis verdict against a snapshot. The verdict may
// be any JSON-marshalable value; query answers are maps and name slices.
func (s *Store) RecordRun(setID types.SetID, kind string, verdict any, took time.Duration) (RunRecord, error) {
	blob, err := json.Marshal(verdict)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to encode %s verdict: %w", kind, err)
	}
	rec := RunRecord{
		RunID:      types.NewRunID(),
		SetID:      setID,
		Kind:       kind,
		Verdict:    string(blob),
		DurationMs: took.Milliseconds(),
		CreatedAt:  now(),
	}
	_, err = s.queries.Exec("insert-analysis-run",
		rec.RunID, rec.SetID, rec.Kind, rec.Verdict, rec.DurationMs, rec.CreatedAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to record %s run: %w", kind, err)
	}
	return rec, nil
}

// RunsForSet returns every run recorded against a snapshot, newest first.
func (s *Store) RunsForSet(setID types.SetID) ([]RunRecord, error) {
	var recs []RunRecord
	if err := s.queries.Select("list-runs-for-set", &recs, setID); err != nil {
		return nil, fmt.Errorf("failed to list runs for %s: %w", setID, err)
	}
	return recs, nil
}

func checksum(document string) string {
	sum := sha256.Sum256([]byte(document))
	return fmt.Sprintf("%x", sum)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
