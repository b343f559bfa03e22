package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/smartattend/attendance-service/internal/models"
	"github.com/smartattend/attendance-service/internal/utils"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.AttendanceSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AttendanceSession, error)

	// FindActiveBySSID resolves the single ACTIVE session broadcasting the
	// given network name, or nil when no session is claimable.
	FindActiveBySSID(ctx context.Context, ssid string) (*models.AttendanceSession, error)
	FindActiveByFaculty(ctx context.Context, facultyID uuid.UUID) (*models.AttendanceSession, error)

	ListByFaculty(ctx context.Context, facultyID uuid.UUID, limit int) ([]*models.AttendanceSession, error)
	ListActiveOpenedBefore(ctx context.Context, cutoff time.Time) ([]*models.AttendanceSession, error)

	ActivateAtomic(
		ctx context.Context,
		sessionID uuid.UUID,
		expectedVersion int64,
		lat, lng, radius float64,
		timeZone string,
		openedAt, lateAfter time.Time,
	) (*models.AttendanceSession, error)
	CloseAtomic(ctx context.Context, sessionID uuid.UUID, expectedVersion int64, closedAt time.Time) (*models.AttendanceSession, error)
}

type sessionRepo struct {
	db DB
}

func NewSessionRepository(db DB) SessionRepository {
	return &sessionRepo{db: db}
}

func baseSelectSession() string {
	return `
        SELECT
            id, faculty_id, subject_code, subject_name, timeslot,
            ssid, bssid, anchor_ip, gateway_ip,
            latitude, longitude, radius_meters, time_zone,
            notify_email, notify_phone,
            status, opened_at, closed_at, late_after,
            row_version, created_at, updated_at
        FROM attendance_sessions
    `
}

func scanSession(row pgx.Row) (*models.AttendanceSession, error) {
	var s models.AttendanceSession
	var openedAt, closedAt, lateAfter *time.Time
	err := row.Scan(
		&s.ID,
		&s.FacultyID,
		&s.SubjectCode,
		&s.SubjectName,
		&s.Timeslot,
		&s.SSID,
		&s.BSSID,
		&s.AnchorIP,
		&s.GatewayIP,
		&s.Latitude,
		&s.Longitude,
		&s.RadiusMeters,
		&s.TimeZone,
		&s.NotifyEmail,
		&s.NotifyPhone,
		&s.Status,
		&openedAt,
		&closedAt,
		&lateAfter,
		&s.RowVersion,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.OpenedAt = openedAt
	s.ClosedAt = closedAt
	s.LateAfter = lateAfter
	return &s, nil
}

func (r *sessionRepo) Create(ctx context.Context, s *models.AttendanceSession) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO attendance_sessions (
            id, faculty_id, subject_code, subject_name, timeslot,
            ssid, bssid, anchor_ip, gateway_ip,
            latitude, longitude, radius_meters, time_zone,
            notify_email, notify_phone,
            status, created_at, updated_at, row_version
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW(),1
        )
    `,
		s.ID,
		s.FacultyID,
		s.SubjectCode,
		s.SubjectName,
		s.Timeslot,
		s.SSID,
		s.BSSID,
		s.AnchorIP,
		s.GatewayIP,
		s.Latitude,
		s.Longitude,
		s.RadiusMeters,
		s.TimeZone,
		s.NotifyEmail,
		s.NotifyPhone,
		s.Status,
	)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AttendanceSession, error) {
	row := r.db.QueryRow(ctx, baseSelectSession()+" WHERE id=$1", id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *sessionRepo) FindActiveBySSID(ctx context.Context, ssid string) (*models.AttendanceSession, error) {
	row := r.db.QueryRow(ctx, baseSelectSession()+" WHERE ssid=$1 AND status=$2", ssid, models.SessionStatusActive)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *sessionRepo) FindActiveByFaculty(ctx context.Context, facultyID uuid.UUID) (*models.AttendanceSession, error) {
	row := r.db.QueryRow(ctx,
		baseSelectSession()+" WHERE faculty_id=$1 AND status=$2 ORDER BY created_at DESC LIMIT 1",
		facultyID, models.SessionStatusActive)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *sessionRepo) ListByFaculty(ctx context.Context, facultyID uuid.UUID, limit int) ([]*models.AttendanceSession, error) {
	rows, err := r.db.Query(ctx,
		baseSelectSession()+" WHERE faculty_id=$1 ORDER BY created_at DESC LIMIT $2",
		facultyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AttendanceSession
	for rows.Next() {
		s, sErr := scanSession(rows)
		if sErr != nil {
			return nil, sErr
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) ListActiveOpenedBefore(ctx context.Context, cutoff time.Time) ([]*models.AttendanceSession, error) {
	rows, err := r.db.Query(ctx,
		baseSelectSession()+" WHERE status=$1 AND opened_at IS NOT NULL AND opened_at < $2",
		models.SessionStatusActive, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AttendanceSession
	for rows.Next() {
		s, sErr := scanSession(rows)
		if sErr != nil {
			return nil, sErr
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) ActivateAtomic(
	ctx context.Context,
	sessionID uuid.UUID,
	expectedVersion int64,
	lat, lng, radius float64,
	timeZone string,
	openedAt, lateAfter time.Time,
) (*models.AttendanceSession, error) {
	row := r.db.QueryRow(ctx, `
        UPDATE attendance_sessions
        SET status=$1,
            latitude=$2, longitude=$3, radius_meters=$4, time_zone=$5,
            opened_at=$6, late_after=$7,
            row_version=row_version+1, updated_at=NOW()
        WHERE id=$8 AND row_version=$9 AND status=$10
        RETURNING id
    `,
		models.SessionStatusActive,
		lat, lng, radius, timeZone,
		openedAt, lateAfter,
		sessionID, expectedVersion, models.SessionStatusPending,
	)
	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrNoRowsUpdated
		}
		return nil, err
	}
	return r.GetByID(ctx, sessionID)
}

func (r *sessionRepo) CloseAtomic(ctx context.Context, sessionID uuid.UUID, expectedVersion int64, closedAt time.Time) (*models.AttendanceSession, error) {
	row := r.db.QueryRow(ctx, `
        UPDATE attendance_sessions
        SET status=$1, closed_at=$2,
            row_version=row_version+1, updated_at=NOW()
        WHERE id=$3 AND row_version=$4 AND status=$5
        RETURNING id
    `,
		models.SessionStatusClosed, closedAt,
		sessionID, expectedVersion, models.SessionStatusActive,
	)
	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrNoRowsUpdated
		}
		return nil, err
	}
	return r.GetByID(ctx, sessionID)
}
