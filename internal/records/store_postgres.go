package records

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lib/pq"

	"creditlens/pkg/platform/sentinel"
)

// TableName is the report table read and written by PostgresStore.
const TableName = "credit_reports"

// Schema creates the report table when it does not exist.
//
//go:embed schema.sql
var Schema string

// PostgresStore persists report rows in PostgreSQL. Raw bureau columns are
// JSONB and selected_bureaus is text[].
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, table: pq.QuoteIdentifier(TableName)}
}

func (s *PostgresStore) GetColumns(ctx context.Context, reportID string, columns []string) (Record, error) {
	if err := validateColumns(columns); err != nil {
		return nil, err
	}
	quoted := make([]string, len(columns))
	targets := make([]any, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
		targets[i] = scanTarget(columnKinds[c])
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", strings.Join(quoted, ", "), s.table)
	if err := s.db.QueryRowContext(ctx, query, reportID).Scan(targets...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", reportID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get report columns: %w", err)
	}

	rec := make(Record, len(columns))
	for i, c := range columns {
		rec[c] = fromScan(targets[i])
	}
	return rec, nil
}

func (s *PostgresStore) UpdateColumns(ctx context.Context, reportID string, rec Record) error {
	if len(rec) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rec))
	for c := range rec {
		if !ValidColumn(c) || c == ColumnID {
			return fmt.Errorf("column %q cannot be updated", c)
		}
		cols = append(cols, c)
	}
	slices.Sort(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+1)
		v, err := toParam(columnKinds[c], rec[c])
		if err != nil {
			return fmt.Errorf("column %s: %w", c, err)
		}
		args = append(args, v)
	}
	args = append(args, reportID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", s.table, strings.Join(sets, ", "), len(cols)+1)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report columns: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report columns: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("report %s: %w", reportID, sentinel.ErrNotFound)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanTarget(k columnKind) any {
	switch k {
	case kindScore:
		return new(sql.NullInt64)
	case kindRaw:
		return new([]byte)
	case kindList:
		return new(pq.StringArray)
	case kindTime:
		return new(sql.NullTime)
	default:
		return new(sql.NullString)
	}
}

func fromScan(target any) any {
	switch t := target.(type) {
	case *sql.NullInt64:
		if !t.Valid {
			return nil
		}
		n := int(t.Int64)
		return &n
	case *[]byte:
		if *t == nil {
			return nil
		}
		return json.RawMessage(append([]byte(nil), *t...))
	case *pq.StringArray:
		if *t == nil {
			return nil
		}
		return []string(*t)
	case *sql.NullTime:
		if !t.Valid {
			return nil
		}
		return t.Time
	case *sql.NullString:
		if !t.Valid {
			return nil
		}
		return t.String
	default:
		return nil
	}
}

// toParam converts a normalized column value into a driver argument.
func toParam(k columnKind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case kindScore:
		if p, ok := v.(*int); ok && p == nil {
			return nil, nil
		}
		score := scoreValue(v)
		if score == nil {
			return nil, fmt.Errorf("expected an integer score, got %T", v)
		}
		return int64(*score), nil
	case kindRaw:
		raw := rawValue(v)
		if raw == nil {
			return nil, nil
		}
		// JSONB accepts text input; []byte would be sent as bytea.
		return string(raw), nil
	case kindList:
		list := listValue(v)
		if list == nil {
			return nil, fmt.Errorf("expected a list of bureau codes, got %T", v)
		}
		return pq.Array(list), nil
	case kindTime:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("expected time.Time, got %T", v)
		}
		return t, nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	}
}
