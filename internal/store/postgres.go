package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/parley-group/negotiation-cli/internal/db"
	"github.com/parley-group/negotiation-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for the
// hot mutation paths shared by both negotiating parties.
var preparedStatements = map[string]string{
	"get_session":      `SELECT id, deal, provider_id, phase, difficulty, assessment, created_at, updated_at FROM sessions WHERE id = $1`,
	"advance_phase":    `UPDATE sessions SET phase = $1, updated_at = $2 WHERE id = $3 AND phase = $4`,
	"set_customer_pos": `UPDATE clause_positions SET customer_pos = $1, updated_at = $2 WHERE session_id = $3 AND clause_id = $4 AND EXISTS (SELECT 1 FROM sessions WHERE id = $3 AND phase != $5)`,
	"set_provider_pos": `UPDATE clause_positions SET provider_pos = $1, updated_at = $2 WHERE session_id = $3 AND clause_id = $4 AND EXISTS (SELECT 1 FROM sessions WHERE id = $3 AND phase != $5)`,
	"committed_weight": `SELECT COALESCE(SUM(weight), 0) FROM clause_priorities WHERE session_id = $1 AND party = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	deal        JSONB NOT NULL,
	provider_id TEXT NOT NULL DEFAULT '',
	phase       TEXT NOT NULL DEFAULT 'preliminary_assessment',
	difficulty  TEXT NOT NULL DEFAULT 'standard',
	assessment  JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clause_positions (
	session_id   TEXT NOT NULL REFERENCES sessions(id),
	clause_id    TEXT NOT NULL,
	clause_name  TEXT NOT NULL DEFAULT '',
	provider_pos INTEGER NOT NULL,
	customer_pos INTEGER NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, clause_id)
);

CREATE TABLE IF NOT EXISTS clause_priorities (
	session_id   TEXT NOT NULL REFERENCES sessions(id),
	clause_id    TEXT NOT NULL,
	party        TEXT NOT NULL,
	weight       INTEGER NOT NULL,
	committed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, clause_id, party)
);

CREATE INDEX IF NOT EXISTS idx_sessions_phase ON sessions(phase);
CREATE INDEX IF NOT EXISTS idx_clause_positions_session ON clause_positions(session_id);
CREATE INDEX IF NOT EXISTS idx_clause_priorities_session_party ON clause_priorities(session_id, party);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, deal model.DealContext, difficulty model.Difficulty) (*model.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if difficulty == "" {
		difficulty = model.DifficultyStandard
	}

	dealJSON, err := json.Marshal(deal)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal deal")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, deal, phase, difficulty, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, dealJSON, string(model.PhasePreliminary), string(difficulty), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert session")
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

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, deal, provider_id, phase, difficulty, assessment, created_at, updated_at FROM sessions WHERE id = $1`,
		sessionID,
	)
	return scanPgSession(row)
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	query := `SELECT id, deal, provider_id, phase, difficulty, assessment, created_at, updated_at FROM sessions WHERE 1=1`
	var args []any
	argNum := 1

	if filter.Phase != "" {
		query += ` AND phase = $1`
		args = append(args, string(filter.Phase))
		argNum++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT $` + strconv.Itoa(argNum)
	args = append(args, limit)
	argNum++

	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(argNum)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanPgSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresStore) SelectProvider(ctx context.Context, sessionID, providerID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET provider_id = $1, updated_at = $2 WHERE id = $3 AND phase = $4`,
		providerID, time.Now().UTC(), sessionID, string(model.PhasePreliminary),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: select provider for session %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return s.sessionMutationFailure(ctx, sessionID)
	}
	return nil
}

func (s *PostgresStore) UpdateDealContext(ctx context.Context, sessionID string, deal model.DealContext) error {
	dealJSON, err := json.Marshal(deal)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal deal")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET deal = $1, updated_at = $2 WHERE id = $3 AND phase = $4`,
		dealJSON, time.Now().UTC(), sessionID, string(model.PhasePreliminary),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update deal for session %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return s.sessionMutationFailure(ctx, sessionID)
	}
	return nil
}

func (s *PostgresStore) SaveAssessment(ctx context.Context, sessionID string, a model.Assessment) error {
	assessmentJSON, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal assessment")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET assessment = $1, updated_at = $2 WHERE id = $3 AND phase = $4`,
		assessmentJSON, time.Now().UTC(), sessionID, string(model.PhasePreliminary),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save assessment for session %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return s.sessionMutationFailure(ctx, sessionID)
	}
	return nil
}

func (s *PostgresStore) AdvancePhase(ctx context.Context, sessionID string, from, to model.Phase) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET phase = $1, updated_at = $2 WHERE id = $3 AND phase = $4`,
		string(to), time.Now().UTC(), sessionID, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: advance session %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return s.sessionMutationFailure(ctx, sessionID)
	}
	return nil
}

func (s *PostgresStore) InitClausePositions(ctx context.Context, sessionID string, positions []model.ClausePosition) error {
	// Skip when the clause set already exists; instantiation happens once per
	// session, right after the advance into Foundation.
	var existing int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM clause_positions WHERE session_id = $1`, sessionID,
	).Scan(&existing)
	if err != nil {
		return eris.Wrapf(err, "postgres: count clauses for session %s", sessionID)
	}
	if existing > 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, []any{sessionID, p.ClauseID, p.ClauseName, p.ProviderPos, p.CustomerPos, now})
	}

	_, err = db.CopyFrom(ctx, s.pool, "clause_positions",
		[]string{"session_id", "clause_id", "clause_name", "provider_pos", "customer_pos", "updated_at"},
		rows,
	)
	return eris.Wrapf(err, "postgres: init clauses for session %s", sessionID)
}

func (s *PostgresStore) GetClausePositions(ctx context.Context, sessionID string) ([]model.ClausePosition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, clause_id, clause_name, provider_pos, customer_pos
		 FROM clause_positions WHERE session_id = $1 ORDER BY clause_id`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get clause positions")
	}
	defer rows.Close()

	var positions []model.ClausePosition
	for rows.Next() {
		var p model.ClausePosition
		if err := rows.Scan(&p.SessionID, &p.ClauseID, &p.ClauseName, &p.ProviderPos, &p.CustomerPos); err != nil {
			return nil, eris.Wrap(err, "postgres: scan clause position")
		}
		positions = append(positions, p)
	}
	return positions, eris.Wrap(rows.Err(), "postgres: clause positions iterate")
}

func (s *PostgresStore) SetPosition(ctx context.Context, sessionID, clauseID string, party model.Party, value int) error {
	if !party.Valid() {
		return eris.Errorf("postgres: unknown party %q", party)
	}
	value = clampPosition(value)

	stmt := "set_customer_pos"
	if party == model.PartyProvider {
		stmt = "set_provider_pos"
	}

	tag, err := s.pool.Exec(ctx, preparedStatements[stmt],
		value, time.Now().UTC(), sessionID, clauseID, string(model.PhasePreliminary),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set %s position for clause %s", party, clauseID)
	}
	if tag.RowsAffected() == 0 {
		var one int
		err := s.pool.QueryRow(ctx,
			`SELECT 1 FROM clause_positions WHERE session_id = $1 AND clause_id = $2`,
			sessionID, clauseID,
		).Scan(&one)
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return eris.Wrapf(err, "postgres: check clause %s", clauseID)
		}
		return ErrPhaseConflict
	}
	return nil
}

func (s *PostgresStore) Gap(ctx context.Context, sessionID, clauseID string) (int, error) {
	var gap int
	err := s.pool.QueryRow(ctx,
		`SELECT ABS(provider_pos - customer_pos) FROM clause_positions
		 WHERE session_id = $1 AND clause_id = $2`,
		sessionID, clauseID,
	).Scan(&gap)
	if err == pgx.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: gap for clause %s", clauseID)
	}
	return gap, nil
}

func (s *PostgresStore) Prioritize(ctx context.Context, sessionID, clauseID string, party model.Party, weight, budget int) error {
	if !party.Valid() {
		return eris.Errorf("postgres: unknown party %q", party)
	}
	if weight < 1 {
		return eris.Errorf("postgres: priority weight must be >= 1, got %d", weight)
	}

	// Single atomic statement: phase and budget preconditions gate the
	// insert, so a rejected prioritize mutates nothing.
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO clause_priorities (session_id, clause_id, party, weight, committed_at)
		 SELECT $1, $2, $3, $4, $5
		 WHERE EXISTS (
		     SELECT 1 FROM sessions WHERE id = $1 AND phase NOT IN ($6, $7)
		 )
		 AND (
		     SELECT COALESCE(SUM(weight), 0) FROM clause_priorities
		     WHERE session_id = $1 AND party = $3 AND clause_id != $2
		 ) + $4 <= $8
		 ON CONFLICT (session_id, clause_id, party)
		 DO UPDATE SET weight = EXCLUDED.weight, committed_at = EXCLUDED.committed_at`,
		sessionID, clauseID, string(party), weight, time.Now().UTC(),
		string(model.PhasePreliminary), string(model.PhaseFinalReview), budget,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: prioritize clause %s", clauseID)
	}
	if tag.RowsAffected() == 0 {
		var phase string
		err := s.pool.QueryRow(ctx, `SELECT phase FROM sessions WHERE id = $1`, sessionID).Scan(&phase)
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return eris.Wrapf(err, "postgres: check session %s", sessionID)
		}
		if phase == string(model.PhasePreliminary) || phase == string(model.PhaseFinalReview) {
			return ErrPhaseConflict
		}
		return ErrInsufficientBudget
	}
	return nil
}

func (s *PostgresStore) CommittedWeight(ctx context.Context, sessionID string, party model.Party) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, preparedStatements["committed_weight"], sessionID, string(party)).Scan(&total)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: committed weight for session %s", sessionID)
	}
	return total, nil
}

func (s *PostgresStore) ListPriorities(ctx context.Context, sessionID string) ([]model.ClausePriority, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, clause_id, party, weight FROM clause_priorities
		 WHERE session_id = $1 ORDER BY clause_id, party`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list priorities")
	}
	defer rows.Close()

	var priorities []model.ClausePriority
	for rows.Next() {
		var p model.ClausePriority
		var party string
		if err := rows.Scan(&p.SessionID, &p.ClauseID, &party, &p.Weight); err != nil {
			return nil, eris.Wrap(err, "postgres: scan priority")
		}
		p.Party = model.Party(party)
		priorities = append(priorities, p)
	}
	return priorities, eris.Wrap(rows.Err(), "postgres: priorities iterate")
}

// sessionMutationFailure maps a zero-rows-affected session update to the
// right sentinel.
func (s *PostgresStore) sessionMutationFailure(ctx context.Context, sessionID string) error {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM sessions WHERE id = $1`, sessionID).Scan(&one)
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: check session %s", sessionID)
	}
	return ErrPhaseConflict
}

func scanPgSession(row pgx.Row) (*model.Session, error) {
	var sess model.Session
	var dealJSON []byte
	var phase, difficulty string
	var assessmentJSON []byte

	err := row.Scan(&sess.ID, &dealJSON, &sess.ProviderID, &phase, &difficulty, &assessmentJSON, &sess.CreatedAt, &sess.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan session")
	}

	if err := json.Unmarshal(dealJSON, &sess.Deal); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal deal")
	}
	sess.Phase = model.Phase(phase)
	sess.PhaseHistory = PhaseHistory(sess.Phase)
	sess.Difficulty = model.Difficulty(difficulty)
	if len(assessmentJSON) > 0 {
		sess.Assessment = &model.Assessment{}
		if err := json.Unmarshal(assessmentJSON, sess.Assessment); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal assessment")
		}
	}
	return &sess, nil
}
