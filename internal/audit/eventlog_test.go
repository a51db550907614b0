package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notenpfad/notenpfad/internal/db"
)

func TestEventRepo(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:audit_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dbh.Close()

	r := NewEventRepo(dbh, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, r.Append(ctx, GradeRecorded, "s1", "u1", map[string]any{"value": 5.5}))
	r.Record(ctx, DemoReset, "s1", "u1", nil)
	r.Record(ctx, TopicToggled, "t1", "u2", map[string]bool{"is_completed": true})

	evs, err := r.List(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, GradeRecorded, evs[0].Type)
	assert.JSONEq(t, `{"value":5.5}`, string(evs[0].Data))
	assert.Equal(t, DemoReset, evs[1].Type)
	assert.Less(t, evs[0].Seq, evs[1].Seq)

	all, err := r.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	var nilRepo *EventRepo
	nilRepo.Record(ctx, DemoReset, "x", "y", nil)
}
