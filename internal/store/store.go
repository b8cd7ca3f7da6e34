package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// sqliteStore is the SQLite implementation of Store (internal to this package).
type sqliteStore struct {
	DB *sql.DB
	// Prepared statements for the hot append paths (prepared at open, closed in Close).
	stmtAppendCheckpoint *sql.Stmt
	stmtGetCheckpoint    *sql.Stmt
	stmtAppendDecision   *sql.Stmt
}

// Open opens the default SQLite store at home/protected/db.sqlite and runs migrations.
func Open(home string) (Store, error) {
	dbPath := filepath.Join(home, "protected", "db.sqlite")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	return openSQLiteDSN("file:" + dbPath + "?_pragma=busy_timeout(5000)")
}

// OpenDSN opens a SQLite store at an explicit DSN (used by tests and tools).
func OpenDSN(dsn string) (Store, error) {
	if dsn == "" {
		return nil, errors.New("sqlite DSN required")
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)"
	}
	return openSQLiteDSN(dsn)
}

func openSQLiteDSN(dsn string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &sqliteStore{DB: db}
	if err := s.initPragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.prepareStatements(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) prepareStatements(ctx context.Context) error {
	pairs := []struct {
		dest **sql.Stmt
		q    string
	}{
		{&s.stmtAppendCheckpoint, `INSERT INTO checkpoints(checkpoint_id, created_at, target_path, files, success) VALUES(?, ?, ?, ?, ?)`},
		{&s.stmtGetCheckpoint, `SELECT checkpoint_id, created_at, target_path, files, success FROM checkpoints WHERE checkpoint_id = ?`},
		{&s.stmtAppendDecision, `INSERT INTO decisions(instruction, state, halt_reason, risk_level, risk_score, routed_workers, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)`},
	}
	for _, p := range pairs {
		st, err := s.DB.PrepareContext(ctx, p.q)
		if err != nil {
			return err
		}
		*p.dest = st
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	for _, st := range []*sql.Stmt{s.stmtAppendCheckpoint, s.stmtGetCheckpoint, s.stmtAppendDecision} {
		if st != nil {
			_ = st.Close()
		}
	}
	return s.DB.Close()
}

func (s *sqliteStore) initPragmas(ctx context.Context) error {
	// WAL yields much better concurrency for read-heavy inspection endpoints.
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store not initialized")
	}
	if _, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at INTEGER NOT NULL
);`); err != nil {
		return err
	}

	applied := make(map[int]bool)
	rows, err := s.DB.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	_ = rows.Close()

	type mig struct {
		version int
		sql     string
	}
	var migs []mig
	files, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		v, err := strconv.Atoi(strings.SplitN(strings.TrimSuffix(f.Name(), ".sql"), "_", 2)[0])
		if err != nil {
			continue
		}
		if applied[v] {
			continue
		}
		body, _ := migrationsFS.ReadFile("migrations/" + f.Name())
		migs = append(migs, mig{v, string(body)})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].version < migs[j].version })

	for _, m := range migs {
		if _, err := s.DB.ExecContext(ctx, m.sql); err != nil {
			return err
		}
		if _, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO schema_migrations(version, applied_at) VALUES(?, ?)`, m.version, time.Now().Unix()); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) AppendCheckpoint(ctx context.Context, cp Checkpoint) error {
	if cp.ID == "" {
		return errors.New("checkpoint id required")
	}
	files, err := json.Marshal(cp.Files)
	if err != nil {
		return err
	}
	created := cp.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = s.stmtAppendCheckpoint.ExecContext(ctx, cp.ID, created.Unix(), cp.TargetPath, string(files), boolToInt(cp.Success))
	return err
}

func (s *sqliteStore) GetCheckpoint(ctx context.Context, id string) (*Checkpoint, error) {
	row := s.stmtGetCheckpoint.QueryRowContext(ctx, id)
	cp, err := scanCheckpoint(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *sqliteStore) ListCheckpoints(ctx context.Context, limit int) ([]Checkpoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT checkpoint_id, created_at, target_path, files, success FROM checkpoints ORDER BY created_at DESC, checkpoint_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendDecision(ctx context.Context, d Decision) (int64, error) {
	routed, err := json.Marshal(d.RoutedWorkers)
	if err != nil {
		return 0, err
	}
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.stmtAppendDecision.ExecContext(ctx, d.Instruction, d.State, d.HaltReason, d.RiskLevel, d.RiskScore, string(routed), created.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) ListDecisions(ctx context.Context, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT decision_id, instruction, state, halt_reason, risk_level, risk_score, routed_workers, created_at FROM decisions ORDER BY decision_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Decision
	for rows.Next() {
		var (
			d       Decision
			routed  string
			created int64
		)
		if err := rows.Scan(&d.DecisionID, &d.Instruction, &d.State, &d.HaltReason, &d.RiskLevel, &d.RiskScore, &routed, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(routed), &d.RoutedWorkers); err != nil {
			return nil, err
		}
		d.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CountDecisionsByState(ctx context.Context) (map[string]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT state, COUNT(*) FROM decisions GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			state string
			n     int64
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		out[state] = n
	}
	return out, rows.Err()
}

func scanCheckpoint(scan func(...any) error) (Checkpoint, error) {
	var (
		cp      Checkpoint
		files   string
		created int64
		success int
	)
	if err := scan(&cp.ID, &created, &cp.TargetPath, &files, &success); err != nil {
		return Checkpoint{}, err
	}
	if err := json.Unmarshal([]byte(files), &cp.Files); err != nil {
		return Checkpoint{}, err
	}
	cp.CreatedAt = time.Unix(created, 0).UTC()
	cp.Success = success != 0
	return cp, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
