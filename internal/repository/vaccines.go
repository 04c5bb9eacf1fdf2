package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339Nano
)

var vaccineColumns = []string{
	"id", "owner_id", "name", "date", "provider", "batch_number",
	"next_due_date", "source_ref", "created_at", "updated_at",
}

type VaccineRepository interface {
	// Upsert stores rec keyed by (owner, name, date). A re-upload of the same
	// vaccination updates provider, batch, next due date and source in place;
	// fields the re-upload leaves empty keep their stored values.
	Upsert(ctx context.Context, rec *entity.VaccineRecord) (*entity.VaccineRecord, error)
	// ListByOwner returns records newest first, optionally bounded by date (inclusive).
	ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) ([]*entity.VaccineRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.VaccineRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type vaccineRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewVaccineRepository(db *DB, logger *slog.Logger) VaccineRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &vaccineRepository{db: db, logger: logger, now: time.Now}
}

func (r *vaccineRepository) Upsert(ctx context.Context, rec *entity.VaccineRecord) (*entity.VaccineRecord, error) {
	ts := r.now().UTC().Format(tsLayout)
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	q, args := entsql.Dialect(r.db.Dialect()).
		Insert("vaccines").
		Columns(vaccineColumns...).
		Values(
			id.String(), rec.OwnerID.String(), rec.Name, formatDate(rec.Date),
			nullString(rec.Provider), nullString(rec.BatchNumber),
			nullDate(rec.NextDueDate), nullString(rec.SourceRef), ts, ts,
		).
		OnConflict(
			entsql.ConflictColumns("owner_id", "name", "date"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range keepOnNull {
					setExcludedOrKeep(u, r.db.Dialect(), c)
				}
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to upsert vaccine", "owner_id", rec.OwnerID, "name", rec.Name, "error", err)
		return nil, common.WrapError(err, "upsert vaccine")
	}

	sel := r.selectVaccines().
		Where(entsql.And(
			entsql.EQ("owner_id", rec.OwnerID.String()),
			entsql.EQ("name", rec.Name),
			entsql.EQ("date", formatDate(rec.Date)),
		))
	out, err := r.queryOne(ctx, sel)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("vaccine stored", "vaccine_id", out.ID, "owner_id", out.OwnerID, "name", out.Name)
	return out, nil
}

// keepOnNull are the optional columns a re-upload may omit.
var keepOnNull = []string{"provider", "batch_number", "next_due_date", "source_ref"}

// setExcludedOrKeep takes the incoming value unless it is NULL.
func setExcludedOrKeep(u *entsql.UpdateSet, dialect, column string) {
	excluded := entsql.Dialect(dialect).Table("excluded").C(column)
	u.Set(column, entsql.Expr(fmt.Sprintf("COALESCE(%s, %s)", excluded, u.Table().C(column))))
}

func (r *vaccineRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) ([]*entity.VaccineRecord, error) {
	sel := r.selectVaccines().Where(entsql.EQ("owner_id", ownerID.String()))
	if from != nil {
		sel.Where(entsql.GTE("date", formatDate(*from)))
	}
	if to != nil {
		sel.Where(entsql.LTE("date", formatDate(*to)))
	}
	sel.OrderBy(entsql.Desc("date"), entsql.Desc("created_at"))

	recs, err := r.query(ctx, sel)
	if err != nil {
		r.logger.Error("failed to list vaccines", "owner_id", ownerID, "error", err)
		return nil, err
	}
	return recs, nil
}

func (r *vaccineRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.VaccineRecord, error) {
	return r.queryOne(ctx, r.selectVaccines().Where(entsql.EQ("id", id.String())))
}

func (r *vaccineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := entsql.Dialect(r.db.Dialect()).
		Delete("vaccines").
		Where(entsql.EQ("id", id.String())).
		Query()
	var res sql.Result
	if err := r.db.drv.Exec(ctx, q, args, &res); err != nil {
		r.logger.Error("failed to delete vaccine", "vaccine_id", id, "error", err)
		return common.WrapError(err, "delete vaccine")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("vaccine %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *vaccineRepository) selectVaccines() *entsql.Selector {
	return entsql.Dialect(r.db.Dialect()).
		Select(vaccineColumns...).
		From(entsql.Table("vaccines"))
}

func (r *vaccineRepository) queryOne(ctx context.Context, sel *entsql.Selector) (*entity.VaccineRecord, error) {
	recs, err := r.query(ctx, sel.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("vaccine: %w", common.ErrNotFound)
	}
	return recs[0], nil
}

func (r *vaccineRepository) query(ctx context.Context, sel *entsql.Selector) ([]*entity.VaccineRecord, error) {
	q, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, q, args, rows); err != nil {
		return nil, common.WrapError(err, "query vaccines")
	}
	defer rows.Close()

	var out []*entity.VaccineRecord
	for rows.Next() {
		var (
			id, owner, name, date, created, updated string
			provider, batch, nextDue, source        sql.NullString
		)
		if err := rows.Scan(&id, &owner, &name, &date, &provider, &batch, &nextDue, &source, &created, &updated); err != nil {
			return nil, common.WrapError(err, "scan vaccine")
		}
		rec, err := toVaccineRecord(id, owner, name, date, provider, batch, nextDue, source, created, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func toVaccineRecord(id, owner, name, date string, provider, batch, nextDue, source sql.NullString, created, updated string) (*entity.VaccineRecord, error) {
	var (
		rec entity.VaccineRecord
		err error
	)
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("vaccine id %q: %w", id, err)
	}
	if rec.OwnerID, err = uuid.Parse(owner); err != nil {
		return nil, fmt.Errorf("vaccine owner %q: %w", owner, err)
	}
	if rec.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("vaccine date %q: %w", date, err)
	}
	if nextDue.Valid {
		nd, err := time.Parse(dateLayout, nextDue.String)
		if err != nil {
			return nil, fmt.Errorf("vaccine next_due_date %q: %w", nextDue.String, err)
		}
		rec.NextDueDate = &nd
	}
	rec.CreatedAt, _ = time.Parse(tsLayout, created)
	rec.UpdatedAt, _ = time.Parse(tsLayout, updated)
	rec.Name = name
	rec.Provider = stringPtr(provider)
	rec.BatchNumber = stringPtr(batch)
	rec.SourceRef = stringPtr(source)
	return &rec, nil
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
