package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/smartattend/attendance-service/internal/models"
)

type AttendanceRecordRepository interface {
	// CreateIfNotExists inserts the record guarded by the
	// (session_id, claimant_id) unique constraint. It returns false when a
	// record already exists; callers translate that into
	// duplicate_attendance. This is the single point where two devices
	// racing to commit for the same claimant are serialized.
	CreateIfNotExists(ctx context.Context, rec *models.AttendanceRecord) (bool, error)

	GetBySessionAndClaimant(ctx context.Context, sessionID, claimantID uuid.UUID) (*models.AttendanceRecord, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error)
	CountBySessionAndStatus(ctx context.Context, sessionID uuid.UUID, status models.AttendanceStatusType) (int, error)
}

type attendanceRecordRepo struct {
	db DB
}

func NewAttendanceRecordRepository(db DB) AttendanceRecordRepository {
	return &attendanceRecordRepo{db: db}
}

func baseSelectRecord() string {
	return `
        SELECT
            id, session_id, claimant_id, status, committed_at,
            network_ip, network_ssid, network_mac,
            distance_meters, face_confidence, created_at
        FROM attendance_records
    `
}

func scanRecord(row pgx.Row) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.ClaimantID,
		&rec.Status,
		&rec.CommittedAt,
		&rec.NetworkIP,
		&rec.NetworkSSID,
		&rec.NetworkMAC,
		&rec.DistanceMeters,
		&rec.FaceConfidence,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRecordRepo) CreateIfNotExists(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO attendance_records (
            id, session_id, claimant_id, status, committed_at,
            network_ip, network_ssid, network_mac,
            distance_meters, face_confidence, created_at
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW()
        )
        ON CONFLICT (session_id, claimant_id) DO NOTHING
    `,
		rec.ID,
		rec.SessionID,
		rec.ClaimantID,
		rec.Status,
		rec.CommittedAt,
		rec.NetworkIP,
		rec.NetworkSSID,
		rec.NetworkMAC,
		rec.DistanceMeters,
		rec.FaceConfidence,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *attendanceRecordRepo) GetBySessionAndClaimant(ctx context.Context, sessionID, claimantID uuid.UUID) (*models.AttendanceRecord, error) {
	row := r.db.QueryRow(ctx,
		baseSelectRecord()+" WHERE session_id=$1 AND claimant_id=$2",
		sessionID, claimantID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *attendanceRecordRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error) {
	rows, err := r.db.Query(ctx,
		baseSelectRecord()+" WHERE session_id=$1 ORDER BY committed_at ASC",
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AttendanceRecord
	for rows.Next() {
		rec, sErr := scanRecord(rows)
		if sErr != nil {
			return nil, sErr
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *attendanceRecordRepo) CountBySessionAndStatus(ctx context.Context, sessionID uuid.UUID, status models.AttendanceStatusType) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM attendance_records WHERE session_id=$1 AND status=$2`,
		sessionID, status).Scan(&n)
	return n, err
}
