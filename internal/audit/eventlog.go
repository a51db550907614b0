// Package audit records grade and topic changes in the append-only event_log.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	GradeRecorded  = "grade.recorded"
	GradeDeleted   = "grade.deleted"
	TopicToggled   = "topic.toggled"
	SubjectDeleted = "subject.deleted"
	ChildDeleted   = "child.deleted"
	DemoReset      = "demo.reset"
)

type Event struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Ref       string          `json:"ref"`
	Actor     string          `json:"actor"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

type EventRepo struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewEventRepo(db *sql.DB, log *slog.Logger) *EventRepo {
	if log == nil {
		log = slog.Default()
	}
	return &EventRepo{db: db, log: log, now: time.Now}
}

func (r *EventRepo) Append(ctx context.Context, typ, ref, actor string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, ref, actor, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		typ, ref, actor, string(buf), r.now().Unix())
	return err
}

// Record appends and only logs failures. A nil repo drops the event.
func (r *EventRepo) Record(ctx context.Context, typ, ref, actor string, data any) {
	if r == nil {
		return
	}
	if err := r.Append(ctx, typ, ref, actor, data); err != nil {
		r.log.Warn("audit append", "type", typ, "ref", ref, "err", err)
	}
}

// List returns events for ref, oldest first. An empty ref lists everything.
func (r *EventRepo) List(ctx context.Context, ref string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if ref == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT seq,typ,ref,actor,data,created_at FROM event_log
			ORDER BY seq LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT seq,typ,ref,actor,data,created_at FROM event_log
			WHERE ref=$1 ORDER BY seq LIMIT $2`, ref, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.Type, &e.Ref, &e.Actor, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
