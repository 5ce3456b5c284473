package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/parley-group/negotiation-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	deal        TEXT NOT NULL,
	provider_id TEXT NOT NULL DEFAULT '',
	phase       TEXT NOT NULL DEFAULT 'preliminary_assessment',
	difficulty  TEXT NOT NULL DEFAULT 'standard',
	assessment  TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS clause_positions (
	session_id   TEXT NOT NULL REFERENCES sessions(id),
	clause_id    TEXT NOT NULL,
	clause_name  TEXT NOT NULL DEFAULT '',
	provider_pos INTEGER NOT NULL,
	customer_pos INTEGER NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (session_id, clause_id)
);

CREATE TABLE IF NOT EXISTS clause_priorities (
	session_id   TEXT NOT NULL REFERENCES sessions(id),
	clause_id    TEXT NOT NULL,
	party        TEXT NOT NULL,
	weight       INTEGER NOT NULL,
	committed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (session_id, clause_id, party)
);

CREATE INDEX IF NOT EXISTS idx_sessions_phase ON sessions(phase);
CREATE INDEX IF NOT EXISTS idx_clause_positions_session ON clause_positions(session_id);
CREATE INDEX IF NOT EXISTS idx_clause_priorities_session_party ON clause_priorities(session_id, party);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, deal model.DealContext, difficulty model.Difficulty) (*model.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if difficulty == "" {
		difficulty = model.DifficultyStandard
	}

	dealJSON, err := json.Marshal(deal)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal deal")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, deal, phase, difficulty, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(dealJSON), string(model.PhasePreliminary), string(difficulty), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert session")
	}

	return &model.Session{
		ID:           id,
		Deal:         deal,
		Phase:        model.PhasePreliminary,
		PhaseHistory: PhaseHistory(model.PhasePreliminary),
		Difficulty:   difficulty,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, deal, provider_id, phase, difficulty, assessment, created_at, updated_at
		 FROM sessions WHERE id = ?`,
		sessionID,
	)
	return scanSession(row)
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	query := `SELECT id, deal, provider_id, phase, difficulty, assessment, created_at, updated_at
		FROM sessions WHERE 1=1`
	var args []any

	if filter.Phase != "" {
		query += ` AND phase = ?`
		args = append(args, string(filter.Phase))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) SelectProvider(ctx context.Context, sessionID, providerID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET provider_id = ?, updated_at = ? WHERE id = ? AND phase = ?`,
		providerID, time.Now().UTC(), sessionID, string(model.PhasePreliminary),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: select provider for session %s", sessionID)
	}
	return s.checkSessionMutation(ctx, res, sessionID)
}

func (s *SQLiteStore) UpdateDealContext(ctx context.Context, sessionID string, deal model.DealContext) error {
	dealJSON, err := json.Marshal(deal)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal deal")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET deal = ?, updated_at = ? WHERE id = ? AND phase = ?`,
		string(dealJSON), time.Now().UTC(), sessionID, string(model.PhasePreliminary),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update deal for session %s", sessionID)
	}
	return s.checkSessionMutation(ctx, res, sessionID)
}

func (s *SQLiteStore) SaveAssessment(ctx context.Context, sessionID string, a model.Assessment) error {
	assessmentJSON, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal assessment")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET assessment = ?, updated_at = ? WHERE id = ? AND phase = ?`,
		string(assessmentJSON), time.Now().UTC(), sessionID, string(model.PhasePreliminary),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save assessment for session %s", sessionID)
	}
	return s.checkSessionMutation(ctx, res, sessionID)
}

func (s *SQLiteStore) AdvancePhase(ctx context.Context, sessionID string, from, to model.Phase) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET phase = ?, updated_at = ? WHERE id = ? AND phase = ?`,
		string(to), time.Now().UTC(), sessionID, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: advance session %s", sessionID)
	}
	return s.checkSessionMutation(ctx, res, sessionID)
}

func (s *SQLiteStore) InitClausePositions(ctx context.Context, sessionID string, positions []model.ClausePosition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin clause init")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, p := range positions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO clause_positions (session_id, clause_id, clause_name, provider_pos, customer_pos, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (session_id, clause_id) DO NOTHING`,
			sessionID, p.ClauseID, p.ClauseName, p.ProviderPos, p.CustomerPos, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: init clause %s", p.ClauseID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit clause init")
}

func (s *SQLiteStore) GetClausePositions(ctx context.Context, sessionID string) ([]model.ClausePosition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, clause_id, clause_name, provider_pos, customer_pos
		 FROM clause_positions WHERE session_id = ? ORDER BY clause_id`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get clause positions")
	}
	defer rows.Close()

	var positions []model.ClausePosition
	for rows.Next() {
		var p model.ClausePosition
		if err := rows.Scan(&p.SessionID, &p.ClauseID, &p.ClauseName, &p.ProviderPos, &p.CustomerPos); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan clause position")
		}
		positions = append(positions, p)
	}
	return positions, eris.Wrap(rows.Err(), "sqlite: clause positions iterate")
}

func (s *SQLiteStore) SetPosition(ctx context.Context, sessionID, clauseID string, party model.Party, value int) error {
	if !party.Valid() {
		return eris.Errorf("sqlite: unknown party %q", party)
	}
	value = clampPosition(value)

	column := "customer_pos"
	if party == model.PartyProvider {
		column = "provider_pos"
	}

	// Positions are mutable from Foundation onward; the phase check rides in
	// the same statement so the write is a single read-modify-write.
	res, err := s.db.ExecContext(ctx,
		`UPDATE clause_positions SET `+column+` = ?, updated_at = ?
		 WHERE session_id = ? AND clause_id = ?
		   AND EXISTS (SELECT 1 FROM sessions WHERE id = ? AND phase != ?)`,
		value, time.Now().UTC(), sessionID, clauseID, sessionID, string(model.PhasePreliminary),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set %s position for clause %s", party, clauseID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		if exists, err := s.clauseExists(ctx, sessionID, clauseID); err != nil {
			return err
		} else if exists {
			return ErrPhaseConflict
		}
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Gap(ctx context.Context, sessionID, clauseID string) (int, error) {
	var gap int
	err := s.db.QueryRowContext(ctx,
		`SELECT ABS(provider_pos - customer_pos) FROM clause_positions
		 WHERE session_id = ? AND clause_id = ?`,
		sessionID, clauseID,
	).Scan(&gap)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: gap for clause %s", clauseID)
	}
	return gap, nil
}

func (s *SQLiteStore) Prioritize(ctx context.Context, sessionID, clauseID string, party model.Party, weight, budget int) error {
	if !party.Valid() {
		return eris.Errorf("sqlite: unknown party %q", party)
	}
	if weight < 1 {
		return eris.Errorf("sqlite: priority weight must be >= 1, got %d", weight)
	}

	// One atomic statement: the budget check (excluding any prior weight on
	// the same clause, which this write replaces) and the phase check both
	// gate the insert. Zero rows affected means a precondition failed and
	// nothing was mutated.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clause_priorities (session_id, clause_id, party, weight, committed_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE EXISTS (
		     SELECT 1 FROM sessions WHERE id = ? AND phase NOT IN (?, ?)
		 )
		 AND (
		     SELECT COALESCE(SUM(weight), 0) FROM clause_priorities
		     WHERE session_id = ? AND party = ? AND clause_id != ?
		 ) + ? <= ?
		 ON CONFLICT (session_id, clause_id, party)
		 DO UPDATE SET weight = excluded.weight, committed_at = excluded.committed_at`,
		sessionID, clauseID, string(party), weight, time.Now().UTC(),
		sessionID, string(model.PhasePreliminary), string(model.PhaseFinalReview),
		sessionID, string(party), clauseID,
		weight, budget,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prioritize clause %s", clauseID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return s.classifyPrioritizeFailure(ctx, sessionID)
	}
	return nil
}

func (s *SQLiteStore) CommittedWeight(ctx context.Context, sessionID string, party model.Party) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(weight), 0) FROM clause_priorities WHERE session_id = ? AND party = ?`,
		sessionID, string(party),
	).Scan(&total)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: committed weight for session %s", sessionID)
	}
	return total, nil
}

func (s *SQLiteStore) ListPriorities(ctx context.Context, sessionID string) ([]model.ClausePriority, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, clause_id, party, weight FROM clause_priorities
		 WHERE session_id = ? ORDER BY clause_id, party`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list priorities")
	}
	defer rows.Close()

	var priorities []model.ClausePriority
	for rows.Next() {
		var p model.ClausePriority
		var party string
		if err := rows.Scan(&p.SessionID, &p.ClauseID, &party, &p.Weight); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan priority")
		}
		p.Party = model.Party(party)
		priorities = append(priorities, p)
	}
	return priorities, eris.Wrap(rows.Err(), "sqlite: priorities iterate")
}

// helpers

// checkSessionMutation maps a zero-rows-affected session update to the right
// sentinel: the session is either missing or past the phase the mutation
// requires.
func (s *SQLiteStore) checkSessionMutation(ctx context.Context, res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: check session %s", sessionID)
	}
	return ErrPhaseConflict
}

// classifyPrioritizeFailure distinguishes why an atomic prioritize matched
// nothing. The write already declined; this read is only for the error.
func (s *SQLiteStore) classifyPrioritizeFailure(ctx context.Context, sessionID string) error {
	var phase string
	err := s.db.QueryRowContext(ctx, `SELECT phase FROM sessions WHERE id = ?`, sessionID).Scan(&phase)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: check session %s", sessionID)
	}
	if phase == string(model.PhasePreliminary) || phase == string(model.PhaseFinalReview) {
		return ErrPhaseConflict
	}
	return ErrInsufficientBudget
}

func (s *SQLiteStore) clauseExists(ctx context.Context, sessionID, clauseID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM clause_positions WHERE session_id = ? AND clause_id = ?`,
		sessionID, clauseID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: check clause %s", clauseID)
	}
	return true, nil
}

func clampPosition(v int) int {
	if v < model.MinPosition {
		return model.MinPosition
	}
	if v > model.MaxPosition {
		return model.MaxPosition
	}
	return v
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*model.Session, error) {
	var sess model.Session
	var dealJSON, phase, difficulty string
	var assessmentJSON sql.NullString

	err := row.Scan(&sess.ID, &dealJSON, &sess.ProviderID, &phase, &difficulty, &assessmentJSON, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan session")
	}

	if err := json.Unmarshal([]byte(dealJSON), &sess.Deal); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal deal")
	}
	sess.Phase = model.Phase(phase)
	sess.PhaseHistory = PhaseHistory(sess.Phase)
	sess.Difficulty = model.Difficulty(difficulty)
	if assessmentJSON.Valid {
		sess.Assessment = &model.Assessment{}
		if err := json.Unmarshal([]byte(assessmentJSON.String), sess.Assessment); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal assessment")
		}
	}
	return &sess, nil
}
