package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/drishtilabs/drishti/internal/domain/model"
	"github.com/drishtilabs/drishti/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
  id                TEXT PRIMARY KEY,
  mode              TEXT NOT NULL,
  status            TEXT NOT NULL,
  is_invalid        INTEGER NOT NULL DEFAULT 0 CHECK (is_invalid IN (0,1)),
  user_id           TEXT,
  institution_id    TEXT,
  department_id     TEXT,
  institution_name  TEXT,
  department_name   TEXT,
  academic_year     TEXT,
  data_source       TEXT NOT NULL DEFAULT 'user',
  kpi_results       TEXT,
  sufficiency       TEXT,
  compliance_count  INTEGER NOT NULL DEFAULT 0,
  approval_category TEXT,
  created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_submissions_identity
  ON submissions(institution_name, department_name, academic_year);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
CREATE TABLE IF NOT EXISTS documents (
  id            TEXT PRIMARY KEY,
  submission_id TEXT NOT NULL REFERENCES submissions(id)
);
CREATE INDEX IF NOT EXISTS idx_documents_submission ON documents(submission_id);
CREATE TABLE IF NOT EXISTS blocks (
  id            TEXT PRIMARY KEY,
  submission_id TEXT NOT NULL REFERENCES submissions(id),
  block_type    TEXT NOT NULL,
  data          TEXT,
  is_invalid    INTEGER NOT NULL DEFAULT 0 CHECK (is_invalid IN (0,1)),
  confidence    REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_blocks_submission ON blocks(submission_id);
`

// SQLiteStore implements Store over a sqlite database file. An empty path
// opens a throwaway in-memory database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and bootstraps) the store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	if path == "" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const submissionColumns = `id, mode, status, is_invalid, user_id, institution_id, department_id,
  institution_name, department_name, academic_year, data_source, kpi_results,
  sufficiency, compliance_count, approval_category, created_at`

// GetSubmission returns a submission by id.
func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	started := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(float64(time.Since(started).Milliseconds())) }()

	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// QuerySubmissions returns submissions matching the filter.
func (s *SQLiteStore) QuerySubmissions(ctx context.Context, f model.Filter) ([]*model.Submission, error) {
	started := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(float64(time.Since(started).Milliseconds())) }()

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE 1=1`
	var args []any
	if f.InstitutionName != "" {
		query += ` AND institution_name = ?`
		args = append(args, f.InstitutionName)
	}
	if f.DepartmentName != "" {
		query += ` AND department_name = ?`
		args = append(args, f.DepartmentName)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, f.Mode)
	}
	if f.AcademicYear != "" {
		query += ` AND academic_year = ?`
		args = append(args, f.AcademicYear)
	}
	if f.ExcludeID != "" {
		query += ` AND id != ?`
		args = append(args, f.ExcludeID)
	}
	if f.OnlyValid {
		query += ` AND is_invalid = 0`
	}
	query += ` ORDER BY academic_year ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []*model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

// Record builds the read snapshot for one submission.
func (s *SQLiteStore) Record(ctx context.Context, id string) (*model.Record, error) {
	sub, err := s.GetSubmission(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := &model.Record{Submission: sub}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE submission_id = ?`, id).Scan(&rec.DocumentCount); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, block_type, COALESCE(data, ''), is_invalid, confidence FROM blocks WHERE submission_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			b       model.Block
			invalid int
		)
		if err := rows.Scan(&b.ID, &b.Type, &b.Data, &invalid, &b.Confidence); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		b.Invalid = invalid == 1
		rec.Blocks = append(rec.Blocks, b)
		if !b.Invalid {
			rec.ValidBlockCount++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return rec, nil
}

// Records builds snapshots for several ids. Unknown ids map to nil.
func (s *SQLiteStore) Records(ctx context.Context, ids []string) (map[string]*model.Record, error) {
	out := make(map[string]*model.Record, len(ids))
	for _, id := range ids {
		rec, err := s.Record(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = rec
	}
	return out, nil
}

// PutSubmission inserts or replaces a submission.
func (s *SQLiteStore) PutSubmission(ctx context.Context, sub *model.Submission) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO submissions
  (id, mode, status, is_invalid, user_id, institution_id, department_id,
   institution_name, department_name, academic_year, data_source, kpi_results,
   sufficiency, compliance_count, approval_category, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sub.ID, sub.Mode, sub.Status, boolToInt(sub.Invalid), nullIfEmpty(sub.UserID),
		nullIfEmpty(sub.InstitutionID), nullIfEmpty(sub.DepartmentID),
		nullIfEmpty(sub.InstitutionName), nullIfEmpty(sub.DepartmentName),
		nullIfEmpty(sub.AcademicYear), sub.DataSource, nullIfEmpty(sub.RawKPIs),
		nullIfEmpty(sub.Sufficiency), sub.ComplianceCount, nullIfEmpty(sub.ApprovalCategory),
		sub.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("put submission: %w", err)
	}
	return nil
}

// PutDocument registers a processed document.
func (s *SQLiteStore) PutDocument(ctx context.Context, submissionID, documentID string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, submission_id) VALUES (?, ?)`, documentID, submissionID); err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// PutBlock attaches an extracted block.
func (s *SQLiteStore) PutBlock(ctx context.Context, submissionID string, block model.Block) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO blocks (id, submission_id, block_type, data, is_invalid, confidence) VALUES (?,?,?,?,?,?)`,
		block.ID, submissionID, block.Type, nullIfEmpty(block.Data), boolToInt(block.Invalid), block.Confidence); err != nil {
		return fmt.Errorf("put block: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var (
		sub      model.Submission
		invalid  int
		userID   sql.NullString
		instID   sql.NullString
		deptID   sql.NullString
		instName sql.NullString
		deptName sql.NullString
		year     sql.NullString
		kpis     sql.NullString
		suff     sql.NullString
		approval sql.NullString
	)
	if err := row.Scan(&sub.ID, &sub.Mode, &sub.Status, &invalid, &userID, &instID, &deptID,
		&instName, &deptName, &year, &sub.DataSource, &kpis, &suff,
		&sub.ComplianceCount, &approval, &sub.CreatedAt); err != nil {
		return nil, err
	}
	sub.Invalid = invalid == 1
	sub.UserID = userID.String
	sub.InstitutionID = instID.String
	sub.DepartmentID = deptID.String
	sub.InstitutionName = instName.String
	sub.DepartmentName = deptName.String
	sub.AcademicYear = year.String
	sub.RawKPIs = kpis.String
	sub.Sufficiency = suff.String
	sub.ApprovalCategory = approval.String
	return &sub, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
