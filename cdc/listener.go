package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/metrics"
	"github.com/de7fp/restaurant-rag/queue"
	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"
	"go.uber.org/zap"
)

const (
	outputPlugin   = "wal2json"
	standbyTimeout = 10 * time.Second
)

type Publisher interface {
	PublishEmbedRequest(subject string, req queue.EmbedRequest) error
}

// Listener streams wal2json changes of the restaurants table and asks the
// embedder to embed rows that have no vector yet.
type Listener struct {
	db          config.Postgres
	replication config.Replication
	subject     string
	publisher   Publisher

	conn     *pgx.Conn
	repl     *pgconn.PgConn
	position pglogrepl.LSN
}

func NewListener(cfg *config.Config, publisher Publisher) *Listener {
	return &Listener{
		db:          cfg.VectorStore(),
		replication: cfg.Replication,
		subject:     cfg.Nats.RestaurantsSubject,
		publisher:   publisher,
	}
}

func (l *Listener) Run(ctx context.Context) error {
	logger.Info("starting WAL listener", zap.String("table", l.replication.Table))

	if err := l.connect(ctx); err != nil {
		return err
	}

	start, err := l.prepareSlot(ctx)
	if err != nil {
		return err
	}

	opts := pglogrepl.StartReplicationOptions{PluginArgs: l.pluginArgs()}
	if err := pglogrepl.StartReplication(ctx, l.repl, l.replication.Slot, start, opts); err != nil {
		return fmt.Errorf("start replication: %w", err)
	}
	logger.Info("replication started", zap.String("slot", l.replication.Slot), zap.Stringer("lsn", start))

	l.position = start
	return l.stream(ctx)
}

func (l *Listener) Close(ctx context.Context) {
	if l.conn != nil {
		l.conn.Close(ctx)
	}
	if l.repl != nil {
		l.repl.Close(ctx)
	}
}

func (l *Listener) connect(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.db.ConnStr())
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	l.conn = conn

	if err := l.ensurePublication(ctx); err != nil {
		return err
	}

	repl, err := pgconn.Connect(ctx, l.db.ReplicationConnStr())
	if err != nil {
		return fmt.Errorf("connect for replication: %w", err)
	}
	l.repl = repl
	return nil
}

func (l *Listener) pluginArgs() []string {
	return []string{
		`"pretty-print" 'false'`,
		`"include-xids" 'false'`,
		`"include-timestamp" 'false'`,
		`"include-lsn" 'false'`,
		fmt.Sprintf(`"add-tables" '*.%s'`, l.replication.Table),
	}
}

func (l *Listener) ensurePublication(ctx context.Context) error {
	var exists bool
	err := l.conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_publication WHERE pubname = $1)",
		l.replication.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check publication: %w", err)
	}
	if exists {
		return nil
	}

	stmt := fmt.Sprintf("CREATE PUBLICATION %s FOR TABLE %s",
		pgx.Identifier{l.replication.Name}.Sanitize(),
		pgx.Identifier{l.replication.Table}.Sanitize())
	if _, err := l.conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create publication: %w", err)
	}
	logger.Info("created publication", zap.String("name", l.replication.Name))
	return nil
}

// prepareSlot returns the position to stream from: the confirmed flush
// position of an existing slot, or the consistent point of a new one.
func (l *Listener) prepareSlot(ctx context.Context) (pglogrepl.LSN, error) {
	var flushed *string
	err := l.conn.QueryRow(ctx,
		"SELECT confirmed_flush_lsn::text FROM pg_replication_slots WHERE slot_name = $1",
		l.replication.Slot).Scan(&flushed)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		created, err := pglogrepl.CreateReplicationSlot(ctx, l.repl, l.replication.Slot, outputPlugin,
			pglogrepl.CreateReplicationSlotOptions{})
		if err != nil {
			return 0, fmt.Errorf("create replication slot: %w", err)
		}
		logger.Info("created replication slot", zap.String("name", l.replication.Slot))
		return pglogrepl.ParseLSN(created.ConsistentPoint)

	case err != nil:
		return 0, fmt.Errorf("look up replication slot: %w", err)
	}

	if flushed != nil {
		if lsn, err := pglogrepl.ParseLSN(*flushed); err == nil && lsn != 0 {
			return lsn, nil
		}
	}

	sys, err := pglogrepl.IdentifySystem(ctx, l.repl)
	if err != nil {
		return 0, fmt.Errorf("identify system: %w", err)
	}
	return sys.XLogPos, nil
}

func (l *Listener) stream(ctx context.Context) error {
	deadline := time.Now().Add(standbyTimeout)

	for {
		if !time.Now().Before(deadline) {
			if err := l.acknowledge(ctx); err != nil {
				return err
			}
			deadline = time.Now().Add(standbyTimeout)
		}

		msg, err := l.receive(ctx, deadline)
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}

		replyNow, err := l.handle(msg.Data)
		if err != nil {
			return err
		}
		if replyNow {
			deadline = time.Time{}
		}
	}
}

// receive waits for the next CopyData until deadline. It returns nil when the
// wait times out or the server sent something else.
func (l *Listener) receive(ctx context.Context, deadline time.Time) (*pgproto3.CopyData, error) {
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	raw, err := l.repl.ReceiveMessage(waitCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if pgconn.Timeout(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("receive replication message: %w", err)
	}

	switch m := raw.(type) {
	case *pgproto3.CopyData:
		return m, nil
	case *pgproto3.ErrorResponse:
		return nil, fmt.Errorf("replication error %s: %s", m.Code, m.Message)
	default:
		return nil, nil
	}
}

// handle applies one CopyData payload and reports whether the server asked
// for an immediate status update.
func (l *Listener) handle(data []byte) (bool, error) {
	if len(data) == 0 {
		return false, nil
	}

	switch data[0] {
	case pglogrepl.PrimaryKeepaliveMessageByteID:
		keepalive, err := pglogrepl.ParsePrimaryKeepaliveMessage(data[1:])
		if err != nil {
			return false, fmt.Errorf("parse keepalive: %w", err)
		}
		l.advance(keepalive.ServerWALEnd)
		return keepalive.ReplyRequested, nil

	case pglogrepl.XLogDataByteID:
		xld, err := pglogrepl.ParseXLogData(data[1:])
		if err != nil {
			return false, fmt.Errorf("parse xlog data: %w", err)
		}
		if len(xld.WALData) > 0 {
			changes, err := decodeWAL(xld.WALData)
			if err != nil {
				logger.Error("skipping wal2json message", zap.Error(err))
			} else {
				l.processChanges(changes)
			}
		}
		l.advance(xld.WALStart + pglogrepl.LSN(len(xld.WALData)))
	}
	return false, nil
}

func (l *Listener) advance(lsn pglogrepl.LSN) {
	if lsn > l.position {
		l.position = lsn
	}
}

func (l *Listener) acknowledge(ctx context.Context) error {
	err := pglogrepl.SendStandbyStatusUpdate(ctx, l.repl, pglogrepl.StandbyStatusUpdate{
		WALWritePosition: l.position,
	})
	if err != nil {
		return fmt.Errorf("send standby status: %w", err)
	}
	return nil
}

func (l *Listener) processChanges(changes []walChange) {
	reqs := embedRequests(changes, l.replication.Table)
	metrics.CDCEvents.WithLabelValues("skipped").Add(float64(len(changes) - len(reqs)))

	for _, req := range reqs {
		if err := l.publisher.PublishEmbedRequest(l.subject, req); err != nil {
			metrics.CDCEvents.WithLabelValues("publish_error").Inc()
			logger.Error("failed to publish embed request", zap.Error(err), zap.Uint64("id", req.ID))
			continue
		}
		metrics.CDCEvents.WithLabelValues("published").Inc()
		logger.Debug("queued restaurant for embedding", zap.Uint64("id", req.ID), zap.String("kind", req.Kind))
	}
}
