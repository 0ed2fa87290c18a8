package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"volid/internal/volunteer/models"
	"volid/pkg/platform/sentinel"
	txcontext "volid/pkg/platform/tx"
)

const uniqueViolation = "23505"

const volunteerColumns = `
	id, applicant_id, volunteer_id, full_name, email, phone, emergency_contact,
	gender, address, city, occupation, government_id_type, government_id_image,
	profile_image, availability, skills, terms_accepted, date_of_birth, joining_date,
	status, rejection_reason, ban_reason, created_at, updated_at, activated_at`

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists volunteer records in PostgreSQL.
//
// Uniqueness is enforced by the schema: the issued_volunteer_ids ledger (never
// pruned) plus a unique index on volunteer_id, and a partial unique index on
// applicant_id over non-rejected rows. Violations surface as sentinel.ErrAlreadyUsed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create removes any rejected application of the applicant and inserts v in one
// transaction. Joins the caller's transaction when ctx carries one.
func (s *PostgresStore) Create(ctx context.Context, v *models.Volunteer) (*models.Volunteer, error) {
	var superseded *models.Volunteer
	err := s.withTx(ctx, func(q dbtx) error {
		row := q.QueryRowContext(ctx, `
			DELETE FROM volunteers
			WHERE applicant_id = $1 AND status = 'rejected'
			RETURNING `+volunteerColumns, v.ApplicantID)
		old, err := scanVolunteer(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("supersede rejected application: %w", err)
		default:
			superseded = old
		}

		if !v.VolunteerID.IsZero() {
			if err := recordIssued(ctx, q, v.VolunteerID, v.UpdatedAt); err != nil {
				return err
			}
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO volunteers (`+volunteerColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
			volunteerArgs(v)...)
		if err != nil {
			return translateWriteError("insert volunteer", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return superseded, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Volunteer, error) {
	return s.findOne(ctx, "find volunteer by id", `SELECT `+volunteerColumns+` FROM volunteers WHERE id = $1`, id)
}

// FindByApplicant returns the applicant's current record.
func (s *PostgresStore) FindByApplicant(ctx context.Context, applicantID string) (*models.Volunteer, error) {
	return s.findOne(ctx, "find volunteer by applicant", `
		SELECT `+volunteerColumns+` FROM volunteers
		WHERE applicant_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, applicantID)
}

func (s *PostgresStore) FindByVolunteerID(ctx context.Context, vid models.VolunteerID) (*models.Volunteer, error) {
	return s.findOne(ctx, "find volunteer by volunteer id", `SELECT `+volunteerColumns+` FROM volunteers WHERE volunteer_id = $1`, string(vid))
}

// VolunteerIDExists reports whether vid was ever issued, even to a deleted record.
func (s *PostgresStore) VolunteerIDExists(ctx context.Context, vid models.VolunteerID) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM issued_volunteer_ids WHERE volunteer_id = $1)`, string(vid)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check volunteer id: %w", err)
	}
	return exists, nil
}

// Execute locks the row (SELECT ... FOR UPDATE), runs fn and writes the result
// back. Joins the caller's transaction when ctx carries one.
func (s *PostgresStore) Execute(ctx context.Context, id uuid.UUID, fn func(*models.Volunteer) error) (*models.Volunteer, error) {
	var updated *models.Volunteer
	err := s.withTx(ctx, func(q dbtx) error {
		row := q.QueryRowContext(ctx, `SELECT `+volunteerColumns+` FROM volunteers WHERE id = $1 FOR UPDATE`, id)
		v, err := scanVolunteer(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock volunteer: %w", err)
		}
		bound := v.VolunteerID
		if err := fn(v); err != nil {
			return err
		}
		if v.VolunteerID != bound && !v.VolunteerID.IsZero() {
			if err := recordIssued(ctx, q, v.VolunteerID, v.UpdatedAt); err != nil {
				return err
			}
		}
		_, err = q.ExecContext(ctx, `
			UPDATE volunteers SET
				volunteer_id = $2,
				status = $3,
				rejection_reason = $4,
				ban_reason = $5,
				profile_image = $6,
				updated_at = $7,
				activated_at = $8
			WHERE id = $1`,
			v.ID, nullString(string(v.VolunteerID)), string(v.Status), v.RejectionReason, v.BanReason,
			v.ProfileImage, v.UpdatedAt, nullTime(v.ActivatedAt))
		if err != nil {
			return translateWriteError("update volunteer", err)
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the record. Its identifier stays in issued_volunteer_ids.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) (*models.Volunteer, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `DELETE FROM volunteers WHERE id = $1 RETURNING `+volunteerColumns, id)
	v, err := scanVolunteer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("delete volunteer: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Volunteer, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+volunteerColumns+` FROM volunteers
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		string(filter.Status), limit, max(filter.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Volunteer, 0)
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan volunteer: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate volunteers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) findOne(ctx context.Context, op, query string, arg any) (*models.Volunteer, error) {
	v, err := scanVolunteer(s.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (s *PostgresStore) conn(ctx context.Context) dbtx {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(q dbtx) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateWriteError("commit", err)
	}
	return nil
}

// recordIssued claims vid in the identifier ledger. A second claim violates the
// primary key and surfaces as sentinel.ErrAlreadyUsed.
func recordIssued(ctx context.Context, q dbtx, vid models.VolunteerID, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO issued_volunteer_ids (volunteer_id, issued_at) VALUES ($1, $2)`, string(vid), at)
	if err != nil {
		return translateWriteError("record issued volunteer id", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVolunteer(row rowScanner) (*models.Volunteer, error) {
	var (
		v           models.Volunteer
		volunteerID sql.NullString
		status      string
		activatedAt sql.NullTime
	)
	err := row.Scan(
		&v.ID, &v.ApplicantID, &volunteerID, &v.FullName, &v.Email, &v.Phone, &v.EmergencyContact,
		&v.Gender, &v.Address, &v.City, &v.Occupation, &v.GovernmentIDType, &v.GovernmentIDImage,
		&v.ProfileImage, &v.Availability, pq.Array(&v.Skills), &v.TermsAccepted, &v.DateOfBirth, &v.JoiningDate,
		&status, &v.RejectionReason, &v.BanReason, &v.CreatedAt, &v.UpdatedAt, &activatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.VolunteerID = models.VolunteerID(volunteerID.String)
	v.Status = models.Status(status)
	if activatedAt.Valid {
		t := activatedAt.Time
		v.ActivatedAt = &t
	}
	return &v, nil
}

func volunteerArgs(v *models.Volunteer) []any {
	return []any{
		v.ID, v.ApplicantID, nullString(string(v.VolunteerID)), v.FullName, v.Email, v.Phone, v.EmergencyContact,
		v.Gender, v.Address, v.City, v.Occupation, v.GovernmentIDType, v.GovernmentIDImage,
		v.ProfileImage, v.Availability, pq.Array(skillsOrEmpty(v.Skills)), v.TermsAccepted, v.DateOfBirth, v.JoiningDate,
		string(v.Status), v.RejectionReason, v.BanReason, v.CreatedAt, v.UpdatedAt, nullTime(v.ActivatedAt),
	}
}

func translateWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: constraint %s: %w", op, pgErr.ConstraintName, sentinel.ErrAlreadyUsed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func skillsOrEmpty(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}
