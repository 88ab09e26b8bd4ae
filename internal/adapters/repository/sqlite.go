package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/okian/rice/internal/adapters/repository/migrations"
	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
)

// SQLiteStore implements Store over a single SQLite file. The pool holds one
// connection, so transactions never interleave.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// OpenSQLite opens the database at path (":memory:" for a private in-memory
// database) and applies the bundled migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrUnavailable)
	}
	if path != ":memory:" {
		path = filepath.Clean(path)
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %w", ErrUnavailable, err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database answers.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return unavailable(tx.Commit())
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const sessionColumns = `id, name, catalog_id, record_id, local_market, status, stage, revealed, force_seq, created_at, updated_at`

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		sess               model.Session
		status, stage      string
		revealed           string
		created, updated   int64
	)
	if err := row.Scan(&sess.ID, &sess.Name, &sess.CatalogID, &sess.RecordID, &sess.LocalMarket,
		&status, &stage, &revealed, &sess.ForceSeq, &created, &updated); err != nil {
		return nil, err
	}
	sess.Status = model.Status(status)
	sess.Stage = model.Stage(stage)
	if err := json.Unmarshal([]byte(revealed), &sess.Revealed); err != nil {
		return nil, fmt.Errorf("decode revealed: %w", err)
	}
	if sess.Revealed == nil {
		sess.Revealed = []model.Dimension{}
	}
	sess.CreatedAt = fromMillis(created)
	sess.UpdatedAt = fromMillis(updated)
	return &sess, nil
}

func getSession(ctx context.Context, q queryer, id string) (*model.Session, error) {
	sess, err := scanSession(q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("session", id)
	}
	return sess, unavailable(err)
}

func revealedJSON(s *model.Session) (string, error) {
	revealed := s.Revealed
	if revealed == nil {
		revealed = []model.Dimension{}
	}
	raw, err := json.Marshal(revealed)
	return string(raw), err
}

// CreateSession implements SessionStore.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) (err error) {
	defer func(start time.Time) { observe("create_session", start, err) }(time.Now())
	revealed, err := revealedJSON(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.CatalogID, sess.RecordID, sess.LocalMarket, string(sess.Status), string(sess.Stage),
		revealed, sess.ForceSeq, toMillis(sess.CreatedAt), toMillis(sess.UpdatedAt))
	if err != nil && isUniqueViolation(err) {
		return ErrConflict
	}
	return unavailable(err)
}

// GetSession implements SessionStore.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (sess *model.Session, err error) {
	defer func(start time.Time) { observe("get_session", start, err) }(time.Now())
	return getSession(ctx, s.db, id)
}

// UpdateSession implements SessionStore.
func (s *SQLiteStore) UpdateSession(ctx context.Context, id string, fn func(*model.Session) error) (out *model.Session, err error) {
	defer func(start time.Time) { observe("update_session", start, err) }(time.Now())
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		sess, err := getSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		revealed, err := revealedJSON(sess)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE sessions
SET name = ?, catalog_id = ?, record_id = ?, local_market = ?, status = ?, stage = ?, revealed = ?, force_seq = ?, updated_at = ?
WHERE id = ?`,
			sess.Name, sess.CatalogID, sess.RecordID, sess.LocalMarket, string(sess.Status), string(sess.Stage),
			revealed, sess.ForceSeq, toMillis(sess.UpdatedAt), id); err != nil {
			return unavailable(err)
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListSessions implements SessionStore, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) (out []*model.Session, err error) {
	defer func(start time.Time) { observe("list_sessions", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()
	out = []*model.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, sess)
	}
	return out, unavailable(rows.Err())
}

// DeleteSession implements SessionStore. Foreign keys cascade to the
// participants, votes and result.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_session", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("session", id)
	}
	return nil
}

const participantColumns = `id, session_id, name, identity, role, joined_at`

func scanParticipant(row rowScanner) (model.Participant, error) {
	var (
		p      model.Participant
		role   string
		joined int64
	)
	if err := row.Scan(&p.ID, &p.SessionID, &p.Name, &p.Identity, &role, &joined); err != nil {
		return model.Participant{}, err
	}
	p.Role = model.Role(role)
	p.JoinedAt = fromMillis(joined)
	return p, nil
}

// AddParticipant implements ParticipantStore. The role check and insert
// share a transaction; the partial unique index on facilitators backs it.
func (s *SQLiteStore) AddParticipant(ctx context.Context, p model.Participant) (out model.Participant, err error) {
	defer func(start time.Time) { observe("add_participant", start, err) }(time.Now())
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getSession(ctx, tx, p.SessionID); err != nil {
			return err
		}
		if p.Identity != "" {
			existing, err := scanParticipant(tx.QueryRowContext(ctx,
				`SELECT `+participantColumns+` FROM participants WHERE session_id = ? AND identity = ?`, p.SessionID, p.Identity))
			switch {
			case err == nil:
				out = existing
				return nil
			case !errors.Is(err, sql.ErrNoRows):
				return unavailable(err)
			}
		}

		var facilitators int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM participants WHERE session_id = ? AND role = 'facilitator'`, p.SessionID).Scan(&facilitators); err != nil {
			return unavailable(err)
		}
		p.Role = model.RoleVoter
		if facilitators == 0 {
			p.Role = model.RoleFacilitator
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO participants (`+participantColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.SessionID, p.Name, p.Identity, string(p.Role), toMillis(p.JoinedAt)); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %w", ErrConflict, err)
			}
			return unavailable(err)
		}
		out = p
		return nil
	})
	return out, err
}

// GetParticipant implements ParticipantStore.
func (s *SQLiteStore) GetParticipant(ctx context.Context, sessionID, participantID string) (model.Participant, error) {
	p, err := scanParticipant(s.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE session_id = ? AND id = ?`, sessionID, participantID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Participant{}, notFound("participant", participantID)
	}
	return p, unavailable(err)
}

// ListParticipants implements ParticipantStore.
func (s *SQLiteStore) ListParticipants(ctx context.Context, sessionID string) (out []model.Participant, err error) {
	defer func(start time.Time) { observe("list_participants", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE session_id = ? ORDER BY rowid ASC`, sessionID)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()
	out = []model.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, p)
	}
	return out, unavailable(rows.Err())
}

// CountParticipants implements ParticipantStore.
func (s *SQLiteStore) CountParticipants(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants WHERE session_id = ?`, sessionID).Scan(&n)
	return n, unavailable(err)
}

func (s *SQLiteStore) upsertVote(ctx context.Context, op, query string, args ...any) (err error) {
	defer func(start time.Time) { observe(op, start, err) }(time.Now())
	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil && isForeignKeyViolation(err) {
		return notFound("session", fmt.Sprint(args[0]))
	}
	return unavailable(err)
}

// UpsertReachVote implements VoteStore.
func (s *SQLiteStore) UpsertReachVote(ctx context.Context, sessionID string, v model.ReachVote) error {
	return s.upsertVote(ctx, "upsert_reach_vote", `INSERT INTO reach_votes (session_id, participant_id, category_id, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (session_id, participant_id) DO UPDATE SET category_id = excluded.category_id, updated_at = excluded.updated_at`,
		sessionID, v.ParticipantID, v.CategoryID, toMillis(v.UpdatedAt))
}

// UpsertImpactVote implements VoteStore.
func (s *SQLiteStore) UpsertImpactVote(ctx context.Context, sessionID string, v model.ImpactVote) error {
	metricsJSON, err := json.Marshal(v.Metrics)
	if err != nil {
		return err
	}
	return s.upsertVote(ctx, "upsert_impact_vote", `INSERT INTO impact_votes (session_id, participant_id, metrics, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (session_id, participant_id) DO UPDATE SET metrics = excluded.metrics, updated_at = excluded.updated_at`,
		sessionID, v.ParticipantID, string(metricsJSON), toMillis(v.UpdatedAt))
}

// UpsertConfidenceVote implements VoteStore.
func (s *SQLiteStore) UpsertConfidenceVote(ctx context.Context, sessionID string, v model.ConfidenceVote) error {
	v.SourceIDs = append([]string{}, v.SourceIDs...)
	v.Normalize()
	sources, err := json.Marshal(v.SourceIDs)
	if err != nil {
		return err
	}
	return s.upsertVote(ctx, "upsert_confidence_vote", `INSERT INTO confidence_votes (session_id, participant_id, source_ids, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (session_id, participant_id) DO UPDATE SET source_ids = excluded.source_ids, updated_at = excluded.updated_at`,
		sessionID, v.ParticipantID, string(sources), toMillis(v.UpdatedAt))
}

// UpsertEffortVote implements VoteStore.
func (s *SQLiteStore) UpsertEffortVote(ctx context.Context, sessionID string, v model.EffortVote) error {
	return s.upsertVote(ctx, "upsert_effort_vote", `INSERT INTO effort_votes (session_id, participant_id, dev_size_id, design_size_id, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (session_id, participant_id) DO UPDATE SET dev_size_id = excluded.dev_size_id, design_size_id = excluded.design_size_id, updated_at = excluded.updated_at`,
		sessionID, v.ParticipantID, v.DevSizeID, v.DesignSizeID, toMillis(v.UpdatedAt))
}

func listRows[V any](ctx context.Context, s *SQLiteStore, op, query, sessionID string, scan func(rowScanner) (V, error)) (out []V, err error) {
	defer func(start time.Time) { observe(op, start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()
	out = []V{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, v)
	}
	return out, unavailable(rows.Err())
}

// ListReachVotes implements VoteStore.
func (s *SQLiteStore) ListReachVotes(ctx context.Context, sessionID string) ([]model.ReachVote, error) {
	return listRows(ctx, s, "list_reach_votes",
		`SELECT participant_id, category_id, updated_at FROM reach_votes WHERE session_id = ? ORDER BY participant_id`,
		sessionID, func(row rowScanner) (model.ReachVote, error) {
			var v model.ReachVote
			var updated int64
			err := row.Scan(&v.ParticipantID, &v.CategoryID, &updated)
			v.UpdatedAt = fromMillis(updated)
			return v, err
		})
}

// ListImpactVotes implements VoteStore.
func (s *SQLiteStore) ListImpactVotes(ctx context.Context, sessionID string) ([]model.ImpactVote, error) {
	return listRows(ctx, s, "list_impact_votes",
		`SELECT participant_id, metrics, updated_at FROM impact_votes WHERE session_id = ? ORDER BY participant_id`,
		sessionID, func(row rowScanner) (model.ImpactVote, error) {
			var v model.ImpactVote
			var raw string
			var updated int64
			if err := row.Scan(&v.ParticipantID, &raw, &updated); err != nil {
				return v, err
			}
			v.UpdatedAt = fromMillis(updated)
			return v, json.Unmarshal([]byte(raw), &v.Metrics)
		})
}

// ListConfidenceVotes implements VoteStore.
func (s *SQLiteStore) ListConfidenceVotes(ctx context.Context, sessionID string) ([]model.ConfidenceVote, error) {
	return listRows(ctx, s, "list_confidence_votes",
		`SELECT participant_id, source_ids, updated_at FROM confidence_votes WHERE session_id = ? ORDER BY participant_id`,
		sessionID, func(row rowScanner) (model.ConfidenceVote, error) {
			var v model.ConfidenceVote
			var raw string
			var updated int64
			if err := row.Scan(&v.ParticipantID, &raw, &updated); err != nil {
				return v, err
			}
			v.UpdatedAt = fromMillis(updated)
			return v, json.Unmarshal([]byte(raw), &v.SourceIDs)
		})
}

// ListEffortVotes implements VoteStore.
func (s *SQLiteStore) ListEffortVotes(ctx context.Context, sessionID string) ([]model.EffortVote, error) {
	return listRows(ctx, s, "list_effort_votes",
		`SELECT participant_id, dev_size_id, design_size_id, updated_at FROM effort_votes WHERE session_id = ? ORDER BY participant_id`,
		sessionID, func(row rowScanner) (model.EffortVote, error) {
			var v model.EffortVote
			var updated int64
			err := row.Scan(&v.ParticipantID, &v.DevSizeID, &v.DesignSizeID, &updated)
			v.UpdatedAt = fromMillis(updated)
			return v, err
		})
}

var voteTables = map[model.Dimension]string{
	model.DimensionReach:      "reach_votes",
	model.DimensionImpact:     "impact_votes",
	model.DimensionConfidence: "confidence_votes",
	model.DimensionEffort:     "effort_votes",
}

// CountDistinctVoters implements VoteStore.
func (s *SQLiteStore) CountDistinctVoters(ctx context.Context, d model.Dimension, sessionID string) (int, error) {
	table, ok := voteTables[d]
	if !ok {
		return 0, notFound("dimension", string(d))
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT participant_id) FROM `+table+` WHERE session_id = ?`, sessionID).Scan(&n)
	return n, unavailable(err)
}

const resultColumns = `session_id, reach_score, impact_score, confidence_score, effort_score, rice_score, priority, partial, formula, computed_at`

func scanResult(row rowScanner) (model.RiceResult, error) {
	var (
		r        model.RiceResult
		priority string
		computed int64
	)
	if err := row.Scan(&r.SessionID, &r.ReachScore, &r.ImpactScore, &r.ConfidenceScore, &r.EffortScore,
		&r.RiceScore, &priority, &r.Partial, &r.Formula, &computed); err != nil {
		return model.RiceResult{}, err
	}
	r.Priority = model.Priority(priority)
	r.ComputedAt = fromMillis(computed)
	return r, nil
}

// UpsertResult implements ResultStore.
func (s *SQLiteStore) UpsertResult(ctx context.Context, r model.RiceResult) (err error) {
	defer func(start time.Time) { observe("upsert_result", start, err) }(time.Now())
	_, err = s.db.ExecContext(ctx, `INSERT INTO results (`+resultColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET
    reach_score = excluded.reach_score,
    impact_score = excluded.impact_score,
    confidence_score = excluded.confidence_score,
    effort_score = excluded.effort_score,
    rice_score = excluded.rice_score,
    priority = excluded.priority,
    partial = excluded.partial,
    formula = excluded.formula,
    computed_at = excluded.computed_at`,
		r.SessionID, r.ReachScore, r.ImpactScore, r.ConfidenceScore, r.EffortScore, r.RiceScore,
		string(r.Priority), r.Partial, r.Formula, toMillis(r.ComputedAt))
	if err != nil && isForeignKeyViolation(err) {
		return notFound("session", r.SessionID)
	}
	return unavailable(err)
}

// GetResult implements ResultStore.
func (s *SQLiteStore) GetResult(ctx context.Context, sessionID string) (model.RiceResult, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE session_id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RiceResult{}, notFound("result", sessionID)
	}
	return r, unavailable(err)
}

// ListResults implements ResultStore.
func (s *SQLiteStore) ListResults(ctx context.Context) (out []model.RiceResult, err error) {
	defer func(start time.Time) { observe("list_results", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT `+resultColumns+` FROM results ORDER BY session_id`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()
	out = []model.RiceResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, r)
	}
	return out, unavailable(rows.Err())
}

func getCatalog(ctx context.Context, q queryer, id string) (*catalog.Catalog, error) {
	var body string
	var created, updated int64
	err := q.QueryRowContext(ctx, `SELECT body, created_at, updated_at FROM catalogs WHERE id = ?`, id).Scan(&body, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalogNotFound(id)
	}
	if err != nil {
		return nil, unavailable(err)
	}
	var c catalog.Catalog
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return nil, fmt.Errorf("decode catalog %q: %w", id, err)
	}
	c.ID = id
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return &c, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveCatalog(ctx context.Context, e execer, c *catalog.Catalog) error {
	body, err := json.Marshal(c)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	created, updated := c.CreatedAt, c.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}
	_, err = e.ExecContext(ctx, `INSERT INTO catalogs (id, body, created_at, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		c.ID, string(body), toMillis(created), toMillis(updated))
	return unavailable(err)
}

// GetCatalog implements CatalogStore.
func (s *SQLiteStore) GetCatalog(ctx context.Context, id string) (c *catalog.Catalog, err error) {
	defer func(start time.Time) { observe("get_catalog", start, err) }(time.Now())
	return getCatalog(ctx, s.db, id)
}

// SaveCatalog implements CatalogStore.
func (s *SQLiteStore) SaveCatalog(ctx context.Context, c *catalog.Catalog) (err error) {
	defer func(start time.Time) { observe("save_catalog", start, err) }(time.Now())
	return saveCatalog(ctx, s.db, c)
}

// UpdateCatalog implements CatalogStore.
func (s *SQLiteStore) UpdateCatalog(ctx context.Context, id string, fn func(*catalog.Catalog) (*catalog.Catalog, error)) (out *catalog.Catalog, err error) {
	defer func(start time.Time) { observe("update_catalog", start, err) }(time.Now())
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getCatalog(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		next.ID = id
		if err := saveCatalog(ctx, tx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
