package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore keeps documents and logs in two tables keyed by
// (device_id, name). Logs are ordered by a serial column so the latest entry
// is explicit rather than a property of file appends.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{db: db, logger: logger, now: time.Now}
}

// OpenPostgres opens and pings the database, retrying while it starts up.
func OpenPostgres(ctx context.Context, dsn string, attempts int, logger *zap.Logger) (*sql.DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var db *sql.DB
	var err error
	for i := 0; i < attempts; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			err = db.PingContext(ctx)
			if err == nil {
				return db, nil
			}
			db.Close()
		}
		logger.Info("waiting for database", zap.Int("attempt", i+1), zap.Int("of", attempts), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("connect to database: %w", err)
}

// Migrate applies the SQL migrations found in dir.
func Migrate(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return fmt.Errorf("migration init: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveJSON(ctx context.Context, deviceID, name string, doc Document) error {
	if err := checkKey(deviceID, name); err != nil {
		return err
	}
	if doc == nil {
		doc = Document{}
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	query := `
		INSERT INTO documents (device_id, name, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id, name) DO UPDATE SET
			payload = $3,
			updated_at = $4
	`
	if _, err := s.db.ExecContext(ctx, query, deviceID, name, payload, s.now()); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) LoadJSON(ctx context.Context, deviceID, name string) (Document, error) {
	if err := checkKey(deviceID, name); err != nil {
		return nil, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM documents WHERE device_id = $1 AND name = $2`,
		deviceID, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

func (s *PostgresStore) AppendJSONL(ctx context.Context, deviceID, name string, doc Document) (Document, error) {
	if err := checkKey(deviceID, name); err != nil {
		return nil, err
	}
	stamped := Stamp(doc, s.now())
	line, err := json.Marshal(stamped)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (device_id, name, line, created_at) VALUES ($1, $2, $3, $4)`,
		deviceID, name, string(line), s.now())
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", name, err)
	}
	return stamped, nil
}

func (s *PostgresStore) LoadLatestJSONL(ctx context.Context, deviceID, name string) (Document, error) {
	if err := checkKey(deviceID, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT line FROM records WHERE device_id = $1 AND name = $2 ORDER BY seq DESC`,
		deviceID, name)
	if err != nil {
		return nil, fmt.Errorf("load latest %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		if doc, ok := parseLine([]byte(line)); ok {
			return doc, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}
	return Document{}, nil
}

func (s *PostgresStore) LoadAllJSONL(ctx context.Context, deviceID, name string) ([]Document, error) {
	lines, err := s.lines(ctx, deviceID, name)
	if err != nil {
		return nil, err
	}
	docs := []Document{}
	for _, line := range lines {
		if doc, ok := parseLine([]byte(line)); ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *PostgresStore) ExportJSONL(ctx context.Context, deviceID, name string) ([]byte, error) {
	lines, err := s.lines(ctx, deviceID, name)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer([]byte{})
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (s *PostgresStore) lines(ctx context.Context, deviceID, name string) ([]string, error) {
	if err := checkKey(deviceID, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT line FROM records WHERE device_id = $1 AND name = $2 ORDER BY seq`,
		deviceID, name)
	if err != nil {
		return nil, fmt.Errorf("load %s log: %w", name, err)
	}
	defer rows.Close()

	lines := []string{}
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}
	return lines, nil
}
