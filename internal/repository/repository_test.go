package repository

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	db, err := OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strp(s string) *string { return &s }

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))

	counts, err := db.TableCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"subjects": 0, "vaccines": 0}, counts)
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestSubjects(t *testing.T) {
	ctx := context.Background()
	repo := NewSubjectRepository(newTestDB(t), nil)

	birth := time.Date(1990, time.June, 15, 8, 0, 0, 0, time.UTC)
	alice, err := repo.Create(ctx, "alice", &birth)
	require.NoError(t, err)
	require.NotNil(t, alice.BirthDate)
	assert.Equal(t, day(1990, time.June, 15), *alice.BirthDate)

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, day(1990, time.June, 15), *got.BirthDate)

	again, err := repo.GetOrCreateByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, again.ID)

	bob, err := repo.GetOrCreateByName(ctx, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, alice.ID, bob.ID)
	assert.Nil(t, bob.BirthDate)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.Create(ctx, "alice", nil)
	assert.Error(t, err, "names are unique")
}

func TestVaccines_UpsertListDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	subjects := NewSubjectRepository(db, nil)
	vaccines := NewVaccineRepository(db, nil)

	owner, err := subjects.GetOrCreateByName(ctx, "alice")
	require.NoError(t, err)

	tet, err := vaccines.Upsert(ctx, &entity.VaccineRecord{
		OwnerID:  owner.ID,
		Name:     "Tetanus",
		Date:     day(2016, time.October, 15),
		Provider: strp("City Clinic"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tet.ID)
	assert.Nil(t, tet.NextDueDate)

	next := day(2027, time.January, 1)
	flu, err := vaccines.Upsert(ctx, &entity.VaccineRecord{
		OwnerID:     owner.ID,
		Name:        "Flu Shot",
		Date:        day(2026, time.January, 1),
		BatchNumber: strp("FLU-1"),
		NextDueDate: &next,
		SourceRef:   strp("inbox/flu.png"),
	})
	require.NoError(t, err)

	// same owner+name+date updates in place
	again, err := vaccines.Upsert(ctx, &entity.VaccineRecord{
		OwnerID:     owner.ID,
		Name:        "Flu Shot",
		Date:        day(2026, time.January, 1),
		BatchNumber: strp("FLU-2"),
	})
	require.NoError(t, err)
	assert.Equal(t, flu.ID, again.ID)
	require.NotNil(t, again.BatchNumber)
	assert.Equal(t, "FLU-2", *again.BatchNumber)
	require.NotNil(t, again.NextDueDate, "omitted next due date is kept")
	assert.Equal(t, next, *again.NextDueDate)
	require.NotNil(t, again.SourceRef)
	assert.Equal(t, "inbox/flu.png", *again.SourceRef)

	list, err := vaccines.ListByOwner(ctx, owner.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Flu Shot", list[0].Name, "newest first")
	assert.Equal(t, "Tetanus", list[1].Name)
	assert.Equal(t, "City Clinic", *list[1].Provider)

	from := day(2020, time.January, 1)
	windowed, err := vaccines.ListByOwner(ctx, owner.ID, &from, nil)
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "Flu Shot", windowed[0].Name)

	other, err := vaccines.ListByOwner(ctx, uuid.New(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, other)

	got, err := vaccines.GetByID(ctx, tet.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2016, time.October, 15), got.Date)

	require.NoError(t, vaccines.Delete(ctx, tet.ID))
	_, err = vaccines.GetByID(ctx, tet.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, vaccines.Delete(ctx, tet.ID), common.ErrNotFound)
}

func TestVaccines_ReuploadKeepsManualFields(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner, err := NewSubjectRepository(db, nil).GetOrCreateByName(ctx, "bob")
	require.NoError(t, err)
	vaccines := NewVaccineRepository(db, nil)

	due := day(2030, time.January, 1)
	manual, err := vaccines.Upsert(ctx, &entity.VaccineRecord{
		OwnerID:     owner.ID,
		Name:        "Tetanus",
		Date:        day(2020, time.January, 1),
		Provider:    strp("Dr. Lee"),
		NextDueDate: &due,
	})
	require.NoError(t, err)

	uploaded, err := vaccines.Upsert(ctx, &entity.VaccineRecord{
		OwnerID:   owner.ID,
		Name:      "Tetanus",
		Date:      day(2020, time.January, 1),
		SourceRef: strp("/inbox/tetanus.pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, manual.ID, uploaded.ID)
	require.NotNil(t, uploaded.NextDueDate)
	assert.Equal(t, due, *uploaded.NextDueDate)
	require.NotNil(t, uploaded.Provider)
	assert.Equal(t, "Dr. Lee", *uploaded.Provider)
	require.NotNil(t, uploaded.SourceRef)
	assert.Equal(t, "/inbox/tetanus.pdf", *uploaded.SourceRef)

	later := day(2031, time.June, 1)
	moved, err := vaccines.Upsert(ctx, &entity.VaccineRecord{
		OwnerID:     owner.ID,
		Name:        "Tetanus",
		Date:        day(2020, time.January, 1),
		NextDueDate: &later,
	})
	require.NoError(t, err)
	assert.Equal(t, later, *moved.NextDueDate)
}

func TestVaccines_UnknownOwnerRejected(t *testing.T) {
	vaccines := NewVaccineRepository(newTestDB(t), nil)
	_, err := vaccines.Upsert(context.Background(), &entity.VaccineRecord{
		OwnerID: uuid.New(),
		Name:    "Tetanus",
		Date:    day(2020, time.May, 1),
	})
	assert.Error(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (x TEXT);\n\nCREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x TEXT)", "CREATE INDEX i ON a (x)"}, stmts)
}
