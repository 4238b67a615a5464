// Package warehouse is the lib/pq client for the construction analytics
// store. Query failures never surface as errors to callers; they degrade to
// an explicit unavailable result so detection and advisory logic can branch
// on data presence.
package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lib/pq"

	"github.com/earthmover/internal/metrics"
	"github.com/earthmover/service"
	"github.com/earthmover/utils"
)

func init() {
	service.RegisterOptionsParser(service.Warehouse, func(meta *toml.MetaData, primitive toml.Primitive) (interface{}, error) {
		return service.ParseOptions[Options](meta, primitive, service.Warehouse)
	})

	service.RegisterService(service.Warehouse, func(meta service.ServiceMeta, opts interface{}) (service.Service, error) {
		whOpts, ok := opts.(*Options)
		if !ok {
			return nil, fmt.Errorf("invalid warehouse options type, got %T", opts)
		}
		return NewService(meta, whOpts)
	})
}

type Options struct {
	DSN          string         `toml:"dsn" validate:"required"`
	QueryTimeout utils.Duration `toml:"query_timeout"`
	MaxOpenConns int            `toml:"max_open_conns"`
	MaxIdleConns int            `toml:"max_idle_conns"`
}

// Row is one result row keyed by column name.
type Row map[string]any

// Result is the outcome of one query. Unavailable reports that the store
// could not serve the query; Err carries the cause for logging only and is
// never propagated to callers as a failure.
type Result struct {
	Rows        []Row
	Unavailable bool
	Err         error
}

type Service struct {
	name        string
	description string
	dsn         string
	timeout     time.Duration

	mu sync.Mutex
	db *sql.DB

	// reconnect reopens the database handle after an auth expiry.
	reconnect func() (*sql.DB, error)
}

func NewService(meta service.ServiceMeta, opts *Options) (*Service, error) {
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open warehouse connection: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	timeout := opts.QueryTimeout.Duration
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	s := &Service{
		name:        meta.Name,
		description: meta.Description,
		dsn:         opts.DSN,
		timeout:     timeout,
		db:          db,
	}
	s.reconnect = func() (*sql.DB, error) {
		return sql.Open("postgres", s.dsn)
	}
	return s, nil
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Description() string {
	return s.description
}

func (s *Service) Type() service.ServiceType {
	return service.Warehouse
}

func (s *Service) Health(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.handle().PingContext(healthCtx)
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Service) handle() *sql.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// Query runs one SQL statement and returns its rows. A failing or timed-out
// query yields an unavailable Result. A query failing with an expired
// credential triggers exactly one reconnect-and-retry; a second failure
// degrades to unavailable like any other.
func (s *Service) Query(ctx context.Context, query string, args ...any) Result {
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.queryRows(queryCtx, query, args...)
	if err != nil && isAuthExpired(err) {
		slog.Warn("warehouse.query.auth_expired", "error", err)
		metrics.WarehouseQueries.WithLabelValues("retried").Inc()
		if rerr := s.reopen(); rerr != nil {
			slog.Error("warehouse.reconnect.failed", "error", rerr)
			metrics.WarehouseQueries.WithLabelValues("unavailable").Inc()
			return Result{Unavailable: true, Err: rerr}
		}
		rows, err = s.queryRows(queryCtx, query, args...)
	}
	if err != nil {
		slog.Warn("warehouse.query.unavailable", "error", err)
		metrics.WarehouseQueries.WithLabelValues("unavailable").Inc()
		return Result{Unavailable: true, Err: err}
	}

	metrics.WarehouseQueries.WithLabelValues("ok").Inc()
	return Result{Rows: rows}
}

func (s *Service) queryRows(ctx context.Context, query string, args ...any) ([]Row, error) {
	db := s.handle()
	if db == nil {
		return nil, errors.New("warehouse connection closed")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Service) reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		_ = s.db.Close()
	}
	db, err := s.reconnect()
	if err != nil {
		s.db = nil
		return err
	}
	s.db = db
	return nil
}

// Postgres error classes signalling an expired or rejected credential.
const (
	codeInvalidAuthorization = "28000"
	codeInvalidPassword      = "28P01"
)

func isAuthExpired(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == codeInvalidAuthorization || code == codeInvalidPassword
	}
	return false
}
