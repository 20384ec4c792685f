package scheduler

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(zerolog.Nop())
	reg.RegisterKind("discountSync", func(ctx context.Context) {})
	t.Cleanup(reg.Shutdown)
	return reg
}

func TestRegisterGeneratesJobID(t *testing.T) {
	reg := newTestRegistry(t)

	id, err := reg.Register("*/5 * * * *", "discountSync", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "job_"), "generated id should carry the job prefix, got %s", id)

	jobs := reg.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].ID)
	assert.Equal(t, "*/5 * * * *", jobs[0].CronExpr)
	assert.Equal(t, "discountSync", jobs[0].Kind)
	assert.True(t, jobs[0].Running)
}

func TestRegisterValidation(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		name string
		expr string
		kind string
	}{
		{"empty expression", "", "discountSync"},
		{"whitespace expression", "   ", "discountSync"},
		{"too few fields", "* * *", "discountSync"},
		{"out of range minute", "61 * * * *", "discountSync"},
		{"garbage", "every five minutes", "discountSync"},
		{"unknown kind", "*/5 * * * *", "reindexEverything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Register(tt.expr, tt.kind, "")
			assert.Error(t, err)
		})
	}

	assert.Empty(t, reg.List(), "failed registrations must not leave jobs behind")
}

func TestStartStopLifecycle(t *testing.T) {
	reg := newTestRegistry(t)

	id, err := reg.Register("*/5 * * * *", "discountSync", "")
	require.NoError(t, err)

	require.True(t, reg.Stop(id))
	assert.False(t, reg.List()[0].Running)

	// Stopping twice is harmless.
	require.True(t, reg.Stop(id))
	assert.False(t, reg.List()[0].Running)

	require.True(t, reg.Start(id))
	assert.True(t, reg.List()[0].Running)
}

func TestCancelRemovesJob(t *testing.T) {
	reg := newTestRegistry(t)

	id, err := reg.Register("0 3 * * *", "discountSync", "")
	require.NoError(t, err)

	require.True(t, reg.Cancel(id))
	assert.Empty(t, reg.List())
	assert.False(t, reg.Cancel(id), "cancelling a removed job reports not found")
}

func TestUnknownIDReturnsFalse(t *testing.T) {
	reg := newTestRegistry(t)

	assert.False(t, reg.Start("job_missing"))
	assert.False(t, reg.Stop("job_missing"))
	assert.False(t, reg.Cancel("job_missing"))
}

func TestReRegisterUnderSameID(t *testing.T) {
	reg := newTestRegistry(t)

	id, err := reg.Register("*/5 * * * *", "discountSync", "job_fixed")
	require.NoError(t, err)
	assert.Equal(t, "job_fixed", id)

	// Idempotent re-registration replaces the prior task, never duplicates it.
	id, err = reg.Register("0 * * * *", "discountSync", "job_fixed")
	require.NoError(t, err)
	assert.Equal(t, "job_fixed", id)

	jobs := reg.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, "0 * * * *", jobs[0].CronExpr)
	assert.True(t, jobs[0].Running)
}

type fakeRecordLister struct {
	records []Record
	err     error
}

func (f *fakeRecordLister) List(ctx context.Context) ([]Record, error) {
	return f.records, f.err
}

func TestRestoreAll(t *testing.T) {
	reg := newTestRegistry(t)

	lister := &fakeRecordLister{records: []Record{
		{ID: "sch_1", CronExpr: "*/5 * * * *", JobKind: "discountSync", JobID: "job_a", Running: true},
		{ID: "sch_2", CronExpr: "0 3 * * *", JobKind: "discountSync", JobID: "job_b", Running: false},
		{ID: "sch_3", CronExpr: "", JobKind: "discountSync", JobID: "job_c", Running: true},        // no schedule
		{ID: "sch_4", CronExpr: "*/5 * * * *", JobKind: "", JobID: "job_d", Running: true},        // no kind
		{ID: "sch_5", CronExpr: "*/5 * * * *", JobKind: "discountSync", JobID: "", Running: true}, // no job id
		{ID: "sch_6", CronExpr: "bogus", JobKind: "discountSync", JobID: "job_e", Running: true},  // invalid schedule
	}}

	restored := RestoreAll(context.Background(), lister, reg, zerolog.Nop())
	assert.Equal(t, 2, restored)

	jobs := reg.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, "job_a", jobs[0].ID)
	assert.True(t, jobs[0].Running)
	assert.Equal(t, "job_b", jobs[1].ID)
	assert.False(t, jobs[1].Running, "restore must honour the desired running flag")
}

func TestRestoreAllListFailure(t *testing.T) {
	reg := newTestRegistry(t)
	lister := &fakeRecordLister{err: context.DeadlineExceeded}

	restored := RestoreAll(context.Background(), lister, reg, zerolog.Nop())
	assert.Equal(t, 0, restored)
	assert.Empty(t, reg.List())
}
