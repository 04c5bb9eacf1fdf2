package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/vaccine-tracker/internal/common"
	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

var subjectColumns = []string{"id", "name", "birth_date", "created_at", "updated_at"}

type SubjectRepository interface {
	Create(ctx context.Context, name string, birthDate *time.Time) (*entity.Subject, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Subject, error)
	GetByName(ctx context.Context, name string) (*entity.Subject, error)
	GetOrCreateByName(ctx context.Context, name string) (*entity.Subject, error)
	List(ctx context.Context) ([]*entity.Subject, error)
}

type subjectRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewSubjectRepository(db *DB, logger *slog.Logger) SubjectRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &subjectRepository{db: db, logger: logger, now: time.Now}
}

func (r *subjectRepository) Create(ctx context.Context, name string, birthDate *time.Time) (*entity.Subject, error) {
	ts := r.now().UTC()
	if birthDate != nil {
		y, m, d := birthDate.Date()
		bd := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		birthDate = &bd
	}
	s := &entity.Subject{ID: uuid.New(), Name: name, BirthDate: birthDate, CreatedAt: ts, UpdatedAt: ts}
	q, args := entsql.Dialect(r.db.Dialect()).
		Insert("subjects").
		Columns(subjectColumns...).
		Values(s.ID.String(), s.Name, nullDate(birthDate), ts.Format(tsLayout), ts.Format(tsLayout)).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to create subject", "name", name, "error", err)
		return nil, common.WrapError(err, "create subject")
	}
	return s, nil
}

func (r *subjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Subject, error) {
	return r.queryOne(ctx, r.selectSubjects().Where(entsql.EQ("id", id.String())))
}

func (r *subjectRepository) GetByName(ctx context.Context, name string) (*entity.Subject, error) {
	return r.GetByName(ctx, name)
}

// GetOrCreateByName is idempotent under concurrent callers: a lost insert race
// falls through to the row the winner created.
func (r *subjectRepository) GetOrCreateByName(ctx context.Context, name string) (*entity.Subject, error) {
	s, err := r.GetByName(ctx, name)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	ts := r.now().UTC().Format(tsLayout)
	q, args := entsql.Dialect(r.db.Dialect()).
		Insert("subjects").
		Columns(subjectColumns...).
		Values(uuid.New().String(), name, sql.NullString{}, ts, ts).
		OnConflict(entsql.ConflictColumns("name"), entsql.DoNothing()).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to create subject", "name", name, "error", err)
		return nil, common.WrapError(err, "create subject")
	}
	r.logger.Info("subject created", "name", name)
	return r.queryOne(ctx, r.selectSubjects().Where(entsql.EQ("name", name)))
}

func (r *subjectRepository) List(ctx context.Context) ([]*entity.Subject, error) {
	subs, err := r.query(ctx, r.selectSubjects().OrderBy("created_at", "name"))
	if err != nil {
		r.logger.Error("failed to list subjects", "error", err)
		return nil, err
	}
	return subs, nil
}

func (r *subjectRepository) selectSubjects() *entsql.Selector {
	return entsql.Dialect(r.db.Dialect()).
		Select(subjectColumns...).
		From(entsql.Table("subjects"))
}

func (r *subjectRepository) queryOne(ctx context.Context, sel *entsql.Selector) (*entity.Subject, error) {
	subs, err := r.query(ctx, sel.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("subject: %w", common.ErrNotFound)
	}
	return subs[0], nil
}

func (r *subjectRepository) query(ctx context.Context, sel *entsql.Selector) ([]*entity.Subject, error) {
	q, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, q, args, rows); err != nil {
		return nil, common.WrapError(err, "query subjects")
	}
	defer rows.Close()

	var out []*entity.Subject
	for rows.Next() {
		var (
			id, name, created, updated string
			birth                      sql.NullString
		)
		if err := rows.Scan(&id, &name, &birth, &created, &updated); err != nil {
			return nil, common.WrapError(err, "scan subject")
		}
		s := &entity.Subject{Name: name}
		var err error
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("subject id %q: %w", id, err)
		}
		if birth.Valid {
			bd, err := time.Parse(dateLayout, birth.String)
			if err != nil {
				return nil, fmt.Errorf("subject birth_date %q: %w", birth.String, err)
			}
			s.BirthDate = &bd
		}
		s.CreatedAt, _ = time.Parse(tsLayout, created)
		s.UpdatedAt, _ = time.Parse(tsLayout, updated)
		out = append(out, s)
	}
	return out, rows.Err()
}
