package database

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"
)

// Stats counts statements run through a LoggedDatabase.
type Stats struct {
	Queries       atomic.Int64
	Execs         atomic.Int64
	Errors        atomic.Int64
	SlowQueries   atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
}

// LoggedDatabase decorates a Database with statement logging and counters.
type LoggedDatabase struct {
	Database
	logger *slog.Logger
	slow   time.Duration
	stats  *Stats
}

// LogOption configures a LoggedDatabase.
type LogOption func(*LoggedDatabase)

// WithSlowThreshold logs statements slower than d at Warn.
func WithSlowThreshold(d time.Duration) LogOption {
	return func(l *LoggedDatabase) { l.slow = d }
}

// WithLogger wraps db so every statement is logged to logger. A nil logger
// uses slog.Default.
func WithLogger(db Database, logger *slog.Logger, opts ...LogOption) *LoggedDatabase {
	if logger == nil {
		logger = slog.Default()
	}
	l := &LoggedDatabase{Database: db, logger: logger, stats: &Stats{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Stats returns the live counters.
func (l *LoggedDatabase) Stats() *Stats { return l.stats }

// Fingerprint identifies a statement text independent of its arguments.
func Fingerprint(query string) string {
	return strconv.FormatUint(xxh3.HashString(query), 16)
}

func (l *LoggedDatabase) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	start := time.Now()
	rows, err := l.Database.QueryContext(ctx, query, args...)
	l.stats.Queries.Add(1)
	l.record(ctx, "query", query, len(args), time.Since(start), err)
	return rows, err
}

func (l *LoggedDatabase) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	start := time.Now()
	res, err := l.Database.ExecContext(ctx, query, args...)
	l.stats.Execs.Add(1)
	l.record(ctx, "exec", query, len(args), time.Since(start), err)
	return res, err
}

func (l *LoggedDatabase) record(ctx context.Context, kind, query string, nargs int, d time.Duration, err error) {
	l.stats.TotalDuration.Add(int64(d))

	attrs := []slog.Attr{
		slog.String("kind", kind),
		slog.String("fingerprint", Fingerprint(query)),
		slog.String("sql", query),
		slog.Int("args", nargs),
		slog.Duration("duration", d),
	}

	switch {
	case err != nil:
		l.stats.Errors.Add(1)
		attrs = append(attrs, slog.Any("error", err))
		l.logger.LogAttrs(ctx, slog.LevelError, "statement failed", attrs...)
	case l.slow > 0 && d >= l.slow:
		l.stats.SlowQueries.Add(1)
		l.logger.LogAttrs(ctx, slog.LevelWarn, "slow statement", attrs...)
	default:
		l.logger.LogAttrs(ctx, slog.LevelDebug, "statement", attrs...)
	}
}

var _ Database = (*LoggedDatabase)(nil)
