package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Database is the Postgres-backed Store.
type Database struct {
	Pool *pgxpool.Pool
	q    querier
}

var _ Store = (*Database)(nil)

func NewDatabase() Database {
	return Database{
		Pool: nil,
	}
}

func (db *Database) Connect(ctx context.Context, connString string) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("unable to parse database configuration: %w", err)
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 10 * time.Minute

	db.Pool, err = pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create database pool: %w", err)
	}
	db.q = db.Pool

	return nil
}

func (db *Database) Close() {
	db.Pool.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// InTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (db *Database) InTx(ctx context.Context, fn func(q Queries) error) error {
	if _, ok := db.q.(pgx.Tx); ok {
		return fn(db)
	}

	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("database: failed to begin transaction: %w", err)
	}
	defer func() {
		// no-op once committed
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&Database{Pool: db.Pool, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database: failed to commit transaction: %w", mapError(err))
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w (%s)", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

const eventColumns = `id, owner_id, name, location, start_date, end_date, registration_individual_start, registration_individual_end, registration_collective_start, registration_collective_end, admin_status, created_at, updated_at`

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Location, &e.StartDate, &e.EndDate,
		&e.RegistrationIndividualStart, &e.RegistrationIndividualEnd,
		&e.RegistrationCollectiveStart, &e.RegistrationCollectiveEnd,
		&e.AdminStatus, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (db *Database) CreateEvent(ctx context.Context, e Event) error {
	if _, err := db.q.Exec(ctx, `INSERT INTO tbl_event (`+eventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.OwnerID, e.Name, e.Location, e.StartDate, e.EndDate,
		e.RegistrationIndividualStart, e.RegistrationIndividualEnd,
		e.RegistrationCollectiveStart, e.RegistrationCollectiveEnd,
		e.AdminStatus, e.CreatedAt, e.UpdatedAt); err != nil {
		return fmt.Errorf("database: failed to insert event (id=%s): %w", e.ID, mapError(err))
	}
	return nil
}

func (db *Database) GetEventByID(ctx context.Context, id uuid.UUID) (Event, error) {
	e, err := scanEvent(db.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM tbl_event WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return e, ErrNotFound
		}
		return e, fmt.Errorf("database: failed to scan event (id=%s): %w", id, err)
	}
	return e, nil
}

func (db *Database) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT ` + prefixColumns("e", eventColumns) + ` FROM tbl_event e`)
	if params.MemberUserID.IsSet {
		query.WriteString(` JOIN tbl_event_permission p ON p.event_id = e.id AND p.user_id = $1`)
		args = append(args, params.MemberUserID.Val)
	}
	query.WriteString(` ORDER BY e.start_date ASC`)

	rows, err := db.q.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate events: %w", err)
	}
	return events, nil
}

func (db *Database) UpdateEvent(ctx context.Context, e Event) error {
	tag, err := db.q.Exec(ctx, `UPDATE tbl_event SET name = $2, location = $3, start_date = $4, end_date = $5,
		registration_individual_start = $6, registration_individual_end = $7,
		registration_collective_start = $8, registration_collective_end = $9,
		admin_status = $10, updated_at = $11 WHERE id = $1`,
		e.ID, e.Name, e.Location, e.StartDate, e.EndDate,
		e.RegistrationIndividualStart, e.RegistrationIndividualEnd,
		e.RegistrationCollectiveStart, e.RegistrationCollectiveEnd,
		e.AdminStatus, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("database: failed to update event (id=%s): %w", e.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Database) SetEventModalities(ctx context.Context, eventID uuid.UUID, modalityIDs []uuid.UUID) error {
	return db.InTx(ctx, func(q Queries) error {
		tx := q.(*Database)
		if _, err := tx.q.Exec(ctx, `DELETE FROM tbl_event_modality WHERE event_id = $1`, eventID); err != nil {
			return fmt.Errorf("database: failed to clear event modalities (event_id=%s): %w", eventID, err)
		}
		for _, modalityID := range modalityIDs {
			if _, err := tx.q.Exec(ctx, `INSERT INTO tbl_event_modality (event_id, modality_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, eventID, modalityID); err != nil {
				return fmt.Errorf("database: failed to insert event modality (event_id=%s, modality_id=%s): %w", eventID, modalityID, mapError(err))
			}
		}
		return nil
	})
}

func (db *Database) ListEventModalityIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.q.Query(ctx, `SELECT modality_id FROM tbl_event_modality WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list event modalities (event_id=%s): %w", eventID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("database: failed to scan event modalities: %w", err)
	}
	return ids, nil
}

const modalityColumns = `id, name, type, gender, min_age, max_age, event_category, created_at`

func scanModality(row pgx.Row) (Modality, error) {
	var m Modality
	err := row.Scan(&m.ID, &m.Name, &m.Type, &m.Gender, &m.MinAge, &m.MaxAge, &m.EventCategory, &m.CreatedAt)
	return m, err
}

func (db *Database) CreateModality(ctx context.Context, m Modality) error {
	if _, err := db.q.Exec(ctx, `INSERT INTO tbl_modality (`+modalityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.Name, m.Type, m.Gender, m.MinAge, m.MaxAge, m.EventCategory, m.CreatedAt); err != nil {
		return fmt.Errorf("database: failed to insert modality (name=%s): %w", m.Name, mapError(err))
	}
	return nil
}

func (db *Database) GetModalityByID(ctx context.Context, id uuid.UUID) (Modality, error) {
	m, err := scanModality(db.q.QueryRow(ctx, `SELECT `+modalityColumns+` FROM tbl_modality WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return m, ErrNotFound
		}
		return m, fmt.Errorf("database: failed to scan modality (id=%s): %w", id, err)
	}
	return m, nil
}

func (db *Database) ListModalities(ctx context.Context) ([]Modality, error) {
	rows, err := db.q.Query(ctx, `SELECT `+modalityColumns+` FROM tbl_modality ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list modalities: %w", err)
	}
	defer rows.Close()

	var modalities []Modality
	for rows.Next() {
		m, err := scanModality(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan modality: %w", err)
		}
		modalities = append(modalities, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate modalities: %w", err)
	}
	return modalities, nil
}

const schoolColumns = `id, inep, name, director_name, address, city, state, phone, email, responsible_id, event_ids, legacy_event_id, created_at, updated_at`

func scanSchool(row pgx.Row) (School, error) {
	var s School
	err := row.Scan(&s.ID, &s.INEP, &s.Name, &s.DirectorName, &s.Address, &s.City, &s.State, &s.Phone, &s.Email,
		&s.ResponsibleID, &s.EventIDs, &s.LegacyEventID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (db *Database) CreateSchool(ctx context.Context, s School) error {
	if s.EventIDs == nil {
		s.EventIDs = []uuid.UUID{}
	}
	if _, err := db.q.Exec(ctx, `INSERT INTO tbl_school (`+schoolColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.INEP, s.Name, s.DirectorName, s.Address, s.City, s.State, s.Phone, s.Email,
		s.ResponsibleID, s.EventIDs, s.LegacyEventID, s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("database: failed to insert school (inep=%s): %w", s.INEP, mapError(err))
	}
	return nil
}

func (db *Database) UpdateSchool(ctx context.Context, s School) error {
	if s.EventIDs == nil {
		s.EventIDs = []uuid.UUID{}
	}
	tag, err := db.q.Exec(ctx, `UPDATE tbl_school SET name = $2, director_name = $3, address = $4, city = $5, state = $6,
		phone = $7, email = $8, responsible_id = $9, event_ids = $10, legacy_event_id = $11, updated_at = $12 WHERE id = $1`,
		s.ID, s.Name, s.DirectorName, s.Address, s.City, s.State, s.Phone, s.Email,
		s.ResponsibleID, s.EventIDs, s.LegacyEventID, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("database: failed to update school (id=%s): %w", s.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Database) GetSchoolByID(ctx context.Context, id uuid.UUID) (School, error) {
	s, err := scanSchool(db.q.QueryRow(ctx, `SELECT `+schoolColumns+` FROM tbl_school WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, ErrNotFound
		}
		return s, fmt.Errorf("database: failed to scan school (id=%s): %w", id, err)
	}
	return s, nil
}

func (db *Database) GetSchoolByINEP(ctx context.Context, inep string, forUpdate bool) (School, error) {
	query := `SELECT ` + schoolColumns + ` FROM tbl_school WHERE inep = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	s, err := scanSchool(db.q.QueryRow(ctx, query, inep))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, ErrNotFound
		}
		return s, fmt.Errorf("database: failed to scan school (inep=%s): %w", inep, err)
	}
	return s, nil
}

func (db *Database) ListSchools(ctx context.Context, params ListSchoolsParams) ([]School, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT ` + schoolColumns + ` FROM tbl_school WHERE 1=1`)
	if params.EventID.IsSet {
		query.WriteString(` AND ($1 = ANY(event_ids) OR legacy_event_id = $1)`)
		args = append(args, params.EventID.Val)
	}
	query.WriteString(` ORDER BY name ASC`)

	rows, err := db.q.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list schools: %w", err)
	}
	defer rows.Close()

	var schools []School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan school: %w", err)
		}
		schools = append(schools, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate schools: %w", err)
	}
	return schools, nil
}

const userColumns = `id, role, school_id, name, email, phone, cpf, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Role, &u.SchoolID, &u.Name, &u.Email, &u.Phone, &u.CPF, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (db *Database) CreateUser(ctx context.Context, u User) error {
	if _, err := db.q.Exec(ctx, `INSERT INTO tbl_user (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Role, u.SchoolID, u.Name, u.Email, u.Phone, u.CPF, u.PasswordHash, u.CreatedAt, u.UpdatedAt); err != nil {
		return fmt.Errorf("database: failed to insert user (email=%s): %w", u.Email, mapError(err))
	}
	return nil
}

func (db *Database) UpdateUser(ctx context.Context, u User) error {
	tag, err := db.q.Exec(ctx, `UPDATE tbl_user SET role = $2, school_id = $3, name = $4, email = $5, phone = $6, cpf = $7,
		password_hash = $8, updated_at = $9 WHERE id = $1`,
		u.ID, u.Role, u.SchoolID, u.Name, u.Email, u.Phone, u.CPF, u.PasswordHash, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("database: failed to update user (id=%s): %w", u.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Database) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := scanUser(db.q.QueryRow(ctx, `SELECT `+userColumns+` FROM tbl_user WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return u, ErrNotFound
		}
		return u, fmt.Errorf("database: failed to scan user (id=%s): %w", id, err)
	}
	return u, nil
}

func (db *Database) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(db.q.QueryRow(ctx, `SELECT `+userColumns+` FROM tbl_user WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return u, ErrNotFound
		}
		return u, fmt.Errorf("database: failed to scan user (email=%s): %w", email, err)
	}
	return u, nil
}

func (db *Database) ListUsers(ctx context.Context, params ListUsersParams) ([]User, error) {
	var query strings.Builder
	var args []any
	argNum := 1

	query.WriteString(`SELECT ` + userColumns + ` FROM tbl_user WHERE 1=1`)
	if len(params.Roles) > 0 {
		query.WriteString(fmt.Sprintf(" AND role = ANY($%d)", argNum))
		args = append(args, params.Roles)
		argNum++
	}
	if params.Search.IsSet && params.Search.Val != "" {
		query.WriteString(fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+params.Search.Val+"%")
		argNum++
	}
	query.WriteString(` ORDER BY name ASC`)
	if params.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", argNum))
		args = append(args, params.Limit)
	}

	rows, err := db.q.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate users: %w", err)
	}
	return users, nil
}

func (db *Database) GetPermission(ctx context.Context, userID, eventID uuid.UUID) (Permission, error) {
	var p Permission
	err := db.q.QueryRow(ctx, `SELECT user_id, event_id, role, created_at, updated_at FROM tbl_event_permission WHERE user_id = $1 AND event_id = $2`,
		userID, eventID).Scan(&p.UserID, &p.EventID, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, ErrNotFound
		}
		return p, fmt.Errorf("database: failed to scan permission (user_id=%s, event_id=%s): %w", userID, eventID, err)
	}
	return p, nil
}

func (db *Database) UpsertPermission(ctx context.Context, p Permission) error {
	if _, err := db.q.Exec(ctx, `INSERT INTO tbl_event_permission (user_id, event_id, role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, event_id) DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at`,
		p.UserID, p.EventID, p.Role, p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("database: failed to upsert permission (user_id=%s, event_id=%s): %w", p.UserID, p.EventID, mapError(err))
	}
	return nil
}

func (db *Database) DeletePermission(ctx context.Context, userID, eventID uuid.UUID) error {
	tag, err := db.q.Exec(ctx, `DELETE FROM tbl_event_permission WHERE user_id = $1 AND event_id = $2`, userID, eventID)
	if err != nil {
		return fmt.Errorf("database: failed to delete permission (user_id=%s, event_id=%s): %w", userID, eventID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Database) ListPermissions(ctx context.Context, params ListPermissionsParams) ([]Permission, error) {
	var query strings.Builder
	var args []any
	argNum := 1

	query.WriteString(`SELECT user_id, event_id, role, created_at, updated_at FROM tbl_event_permission WHERE 1=1`)
	if params.EventID.IsSet {
		query.WriteString(fmt.Sprintf(" AND event_id = $%d", argNum))
		args = append(args, params.EventID.Val)
		argNum++
	}
	if params.UserID.IsSet {
		query.WriteString(fmt.Sprintf(" AND user_id = $%d", argNum))
		args = append(args, params.UserID.Val)
	}
	query.WriteString(` ORDER BY created_at ASC`)

	rows, err := db.q.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list permissions: %w", err)
	}
	defer rows.Close()

	var permissions []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.UserID, &p.EventID, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate permissions: %w", err)
	}
	return permissions, nil
}

const participantColumns = `id, kind, school_id, name, sex, date_of_birth, cpf, rg, cref, created_at, updated_at`

func scanParticipant(row pgx.Row) (Participant, error) {
	var p Participant
	err := row.Scan(&p.ID, &p.Kind, &p.SchoolID, &p.Name, &p.Sex, &p.DateOfBirth, &p.CPF, &p.RG, &p.CREF, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (db *Database) CreateParticipant(ctx context.Context, p Participant) error {
	if _, err := db.q.Exec(ctx, `INSERT INTO tbl_participant (`+participantColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Kind, p.SchoolID, p.Name, p.Sex, p.DateOfBirth, p.CPF, p.RG, p.CREF, p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("database: failed to insert participant (school_id=%s): %w", p.SchoolID, mapError(err))
	}
	return nil
}

func (db *Database) GetParticipantByID(ctx context.Context, id uuid.UUID) (Participant, error) {
	p, err := scanParticipant(db.q.QueryRow(ctx, `SELECT `+participantColumns+` FROM tbl_participant WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, ErrNotFound
		}
		return p, fmt.Errorf("database: failed to scan participant (id=%s): %w", id, err)
	}
	return p, nil
}

func (db *Database) ListParticipants(ctx context.Context, params ListParticipantsParams) ([]Participant, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT ` + participantColumns + ` FROM tbl_participant WHERE 1=1`)
	if params.SchoolID.IsSet {
		query.WriteString(` AND school_id = $1`)
		args = append(args, params.SchoolID.Val)
	}
	query.WriteString(` ORDER BY name ASC`)

	rows, err := db.q.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate participants: %w", err)
	}
	return participants, nil
}

func (db *Database) CreateParticipantDocument(ctx context.Context, d ParticipantDocument) error {
	if _, err := db.q.Exec(ctx, `INSERT INTO tbl_participant_document (id, participant_id, name, content_type, storage_key, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.ParticipantID, d.Name, d.ContentType, d.StorageKey, d.CreatedAt); err != nil {
		return fmt.Errorf("database: failed to insert participant document (participant_id=%s): %w", d.ParticipantID, mapError(err))
	}
	return nil
}

func (db *Database) ListParticipantDocuments(ctx context.Context, participantID uuid.UUID) ([]ParticipantDocument, error) {
	rows, err := db.q.Query(ctx, `SELECT id, participant_id, name, content_type, storage_key, created_at FROM tbl_participant_document WHERE participant_id = $1 ORDER BY created_at ASC`, participantID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list participant documents: %w", err)
	}
	defer rows.Close()

	var documents []ParticipantDocument
	for rows.Next() {
		var d ParticipantDocument
		if err := rows.Scan(&d.ID, &d.ParticipantID, &d.Name, &d.ContentType, &d.StorageKey, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan participant document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate participant documents: %w", err)
	}
	return documents, nil
}

const inscriptionColumns = `id, athlete_id, event_id, modality_id, school_id, created_at`

func (db *Database) CreateInscription(ctx context.Context, i Inscription) error {
	if _, err := db.q.Exec(ctx, `INSERT INTO tbl_inscription (`+inscriptionColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		i.ID, i.AthleteID, i.EventID, i.ModalityID, i.SchoolID, i.CreatedAt); err != nil {
		return fmt.Errorf("database: failed to insert inscription (athlete_id=%s, event_id=%s, modality_id=%s): %w",
			i.AthleteID, i.EventID, i.ModalityID, mapError(err))
	}
	return nil
}

func (db *Database) GetInscriptionByID(ctx context.Context, id uuid.UUID) (Inscription, error) {
	var i Inscription
	err := db.q.QueryRow(ctx, `SELECT `+inscriptionColumns+` FROM tbl_inscription WHERE id = $1`, id).
		Scan(&i.ID, &i.AthleteID, &i.EventID, &i.ModalityID, &i.SchoolID, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return i, ErrNotFound
		}
		return i, fmt.Errorf("database: failed to scan inscription (id=%s): %w", id, err)
	}
	return i, nil
}

func (db *Database) DeleteInscriptionByID(ctx context.Context, id uuid.UUID) error {
	tag, err := db.q.Exec(ctx, `DELETE FROM tbl_inscription WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database: failed to delete inscription (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Database) ListInscriptions(ctx context.Context, params ListInscriptionsParams) ([]Inscription, error) {
	var query strings.Builder
	var args []any
	argNum := 1

	query.WriteString(`SELECT ` + inscriptionColumns + ` FROM tbl_inscription WHERE 1=1`)
	if params.AthleteID.IsSet {
		query.WriteString(fmt.Sprintf(" AND athlete_id = $%d", argNum))
		args = append(args, params.AthleteID.Val)
		argNum++
	}
	if params.EventID.IsSet {
		query.WriteString(fmt.Sprintf(" AND event_id = $%d", argNum))
		args = append(args, params.EventID.Val)
		argNum++
	}
	if params.ModalityID.IsSet {
		query.WriteString(fmt.Sprintf(" AND modality_id = $%d", argNum))
		args = append(args, params.ModalityID.Val)
	}
	query.WriteString(` ORDER BY created_at ASC`)

	rows, err := db.q.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list inscriptions: %w", err)
	}
	defer rows.Close()

	var inscriptions []Inscription
	for rows.Next() {
		var i Inscription
		if err := rows.Scan(&i.ID, &i.AthleteID, &i.EventID, &i.ModalityID, &i.SchoolID, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan inscription: %w", err)
		}
		inscriptions = append(inscriptions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate inscriptions: %w", err)
	}
	return inscriptions, nil
}

func (db *Database) CreateAuditLogEvent(ctx context.Context, params CreateAuditLogEventParams) (AuditLogEvent, error) {
	event := AuditLogEvent{
		ID:        uuid.New(),
		ActorID:   params.ActorID,
		Type:      params.EventType,
		Data:      params.EventData,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := db.q.Exec(ctx, `INSERT INTO tbl_audit_log_event (id, actor_id, type, data, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.ActorID, event.Type, event.Data, event.CreatedAt); err != nil {
		return event, fmt.Errorf("database: failed to insert audit log event (type=%s): %w", event.Type, err)
	}
	return event, nil
}

func (db *Database) ListAuditLogEvents(ctx context.Context, params ListAuditLogEventsParams) ([]AuditLogEvent, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, actor_id, type, data, created_at FROM tbl_audit_log_event WHERE 1=1`)
	if params.Type.IsSet {
		query.WriteString(` AND type = $1`)
		args = append(args, params.Type.Val)
	}
	if params.Order == OrderByDESC {
		query.WriteString(` ORDER BY created_at DESC`)
	} else {
		query.WriteString(` ORDER BY created_at ASC`)
	}

	rows, err := db.q.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list audit log events: %w", err)
	}
	defer rows.Close()

	var events []AuditLogEvent
	for rows.Next() {
		var e AuditLogEvent
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Type, &e.Data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan audit log event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate audit log events: %w", err)
	}
	return events, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
