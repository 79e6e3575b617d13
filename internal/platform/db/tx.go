package db

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const TxKey contextKey = "db_tx"

// Querier is the subset of pgx shared by the pool, a pooled connection and a
// transaction. Repositories depend on it rather than on the concrete pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// WithTx stores tx in ctx.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, TxKey, tx)
}

// TxFromContext returns the request transaction, or nil outside one.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(TxKey).(pgx.Tx)
	return tx
}

// Conn returns the request transaction when there is one, else fallback.
func Conn(ctx context.Context, fallback Querier) Querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// TxSkipper decides which requests run without a transaction.
type TxSkipper func(c echo.Context) bool

// SkipReads skips safe methods; they run directly against the pool.
func SkipReads(c echo.Context) bool {
	switch c.Request().Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Beginner starts a transaction. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const commitTimeout = 5 * time.Second

// TxMiddleware runs each request inside a single transaction. The handler
// writes into a buffer; the transaction commits when the handler returns nil
// with a status below 400, and only then is the buffered response sent. A
// failed commit is reported as 500 and the buffered response is dropped.
// Anything else rolls back.
func TxMiddleware(pool Beginner, logger zerolog.Logger, skip TxSkipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			ctx := c.Request().Context()
			tx, err := pool.Begin(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer tx.Rollback(context.Background())

			out := c.Response()
			buf := newBufferedWriter(out.Header())
			c.SetResponse(echo.NewResponse(buf, c.Echo()))
			c.SetRequest(c.Request().WithContext(WithTx(ctx, tx)))

			err = next(c)
			res := c.Response()
			c.SetResponse(out)
			if err != nil {
				return err
			}
			if res.Committed && res.Status >= http.StatusBadRequest {
				return buf.flushTo(out)
			}

			// The request deadline may already have passed; the commit
			// gets its own.
			commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
			defer cancel()
			if err := tx.Commit(commitCtx); err != nil {
				logger.Error().Err(err).Str("path", c.Path()).Msg("commit request transaction")
				return echo.NewHTTPError(http.StatusInternalServerError, "transaction failed")
			}
			if !res.Committed {
				return nil
			}
			return buf.flushTo(out)
		}
	}
}

// bufferedWriter holds a response until the transaction outcome is known.
// Headers go straight to the real response's header map.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter(h http.Header) *bufferedWriter {
	return &bufferedWriter{header: h, status: http.StatusOK}
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(code int) { w.status = code }

func (w *bufferedWriter) Write(b []byte) (int, error) { return w.body.Write(b) }

func (w *bufferedWriter) flushTo(res *echo.Response) error {
	res.WriteHeader(w.status)
	_, err := res.Write(w.body.Bytes())
	return err
}
