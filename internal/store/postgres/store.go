// Package postgres is the PostgreSQL implementation of store.Store, for
// deployments where the decision trail must outlive the local host.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rahlplx/workforce/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the PostgreSQL implementation of store.Store.
type Store struct {
	Pool *pgxpool.Pool
}

// Open opens a PostgreSQL connection pool and runs migrations. dsn may be
// empty to use the DATABASE_URL env var.
func Open(dsn string) (store.Store, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("postgres DSN or DATABASE_URL required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 20
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	s := &Store{Pool: pool}
	if err := s.Migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	s.Pool.Close()
	return nil
}

// Migrate runs pending migrations (only those not already in schema_migrations).
func (s *Store) Migrate(ctx context.Context) error {
	applied := make(map[int]bool)
	rows, err := s.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err == nil {
		for rows.Next() {
			var v int
			if err := rows.Scan(&v); err != nil {
				break
			}
			applied[v] = true
		}
		rows.Close()
	}

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
		if _, err := s.Pool.Exec(ctx, m.sql); err != nil && !strings.Contains(err.Error(), "already exists") {
			return err
		}
		if _, err := s.Pool.Exec(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2) ON CONFLICT (version) DO NOTHING`, m.version, time.Now().Unix()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) AppendCheckpoint(ctx context.Context, cp store.Checkpoint) error {
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
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO checkpoints(checkpoint_id, created_at, target_path, files, success) VALUES($1, $2, $3, $4, $5)`,
		cp.ID, created.Unix(), cp.TargetPath, string(files), cp.Success)
	return err
}

func (s *Store) GetCheckpoint(ctx context.Context, id string) (*store.Checkpoint, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT checkpoint_id, created_at, target_path, files, success FROM checkpoints WHERE checkpoint_id = $1`, id)
	var (
		cp      store.Checkpoint
		created int64
		files   string
	)
	err := row.Scan(&cp.ID, &created, &cp.TargetPath, &files, &cp.Success)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(files), &cp.Files); err != nil {
		return nil, err
	}
	cp.CreatedAt = time.Unix(created, 0).UTC()
	return &cp, nil
}

func (s *Store) ListCheckpoints(ctx context.Context, limit int) ([]store.Checkpoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT checkpoint_id, created_at, target_path, files, success FROM checkpoints ORDER BY created_at DESC, checkpoint_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Checkpoint
	for rows.Next() {
		var (
			cp      store.Checkpoint
			created int64
			files   string
		)
		if err := rows.Scan(&cp.ID, &created, &cp.TargetPath, &files, &cp.Success); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(files), &cp.Files); err != nil {
			return nil, err
		}
		cp.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *Store) AppendDecision(ctx context.Context, d store.Decision) (int64, error) {
	routed, err := json.Marshal(d.RoutedWorkers)
	if err != nil {
		return 0, err
	}
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var id int64
	err = s.Pool.QueryRow(ctx,
		`INSERT INTO decisions(instruction, state, halt_reason, risk_level, risk_score, routed_workers, created_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING decision_id`,
		d.Instruction, d.State, d.HaltReason, d.RiskLevel, d.RiskScore, string(routed), created.Unix()).Scan(&id)
	return id, err
}

func (s *Store) ListDecisions(ctx context.Context, limit int) ([]store.Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT decision_id, instruction, state, halt_reason, risk_level, risk_score, routed_workers, created_at FROM decisions ORDER BY decision_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Decision
	for rows.Next() {
		var (
			d       store.Decision
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

func (s *Store) CountDecisionsByState(ctx context.Context) (map[string]int64, error) {
	rows, err := s.Pool.Query(ctx, `SELECT state, COUNT(*) FROM decisions GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
