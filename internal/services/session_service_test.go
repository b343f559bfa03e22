package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/smartattend/attendance-service/internal/dtos"
	"github.com/smartattend/attendance-service/internal/models"
	"github.com/smartattend/attendance-service/internal/utils"
)

type sessionFixture struct {
	svc       *SessionService
	sessions  *fakeSessionRepo
	records   *fakeRecordRepo
	notifier  *recordingNotifier
	facultyID string
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	sessions := newFakeSessionRepo()
	records := newFakeRecordRepo()
	notifier := &recordingNotifier{}
	svc := NewSessionService(sessions, records, notifier, 50, 10*time.Minute)
	return &sessionFixture{
		svc:       svc,
		sessions:  sessions,
		records:   records,
		notifier:  notifier,
		facultyID: uuid.NewString(),
	}
}

func (f *sessionFixture) create(t *testing.T, req dtos.CreateSessionRequest) *dtos.SessionDTO {
	t.Helper()
	session, err := f.svc.CreateSession(context.Background(), f.facultyID, req)
	require.NoError(t, err)
	return session
}

func (f *sessionFixture) createAndActivate(t *testing.T) *dtos.SessionDTO {
	t.Helper()
	session := f.create(t, dtos.CreateSessionRequest{
		SubjectCode: "CS101",
		Timeslot:    "MON_0900",
		AnchorIP:    "192.168.43.1",
	})
	activated, err := f.svc.ActivateSession(context.Background(), f.facultyID, session.SessionID, dtos.ActivateSessionRequest{
		Latitude:  21.2500,
		Longitude: 81.6300,
	})
	require.NoError(t, err)
	return activated
}

func TestCreateSessionDerivesGatewayAndSSID(t *testing.T) {
	f := newSessionFixture(t)
	session := f.create(t, dtos.CreateSessionRequest{
		SubjectCode: "CS 101",
		SubjectName: "Intro to Computing",
		Timeslot:    "MON_0900",
		AnchorIP:    "192.168.43.17",
	})

	require.Equal(t, "192.168.43.1", session.GatewayIP)
	require.True(t, strings.HasPrefix(session.SSID, "ATTEND_CS101_"), "got SSID %q", session.SSID)
	require.Equal(t, string(models.SessionStatusPending), session.Status)
	require.Nil(t, session.OpenedAt)
}

func TestCreateSessionKeepsExplicitSSID(t *testing.T) {
	f := newSessionFixture(t)
	session := f.create(t, dtos.CreateSessionRequest{
		SubjectCode: "CS101",
		Timeslot:    "MON_0900",
		SSID:        "ATTEND_ROOM1",
		AnchorIP:    "192.168.43.1",
	})
	require.Equal(t, "ATTEND_ROOM1", session.SSID)
}

func TestCreateSessionBlockedWhileAnotherIsActive(t *testing.T) {
	f := newSessionFixture(t)
	f.createAndActivate(t)

	_, err := f.svc.CreateSession(context.Background(), f.facultyID, dtos.CreateSessionRequest{
		SubjectCode: "CS102",
		Timeslot:    "MON_1000",
		AnchorIP:    "192.168.43.1",
	})
	require.ErrorIs(t, err, utils.ErrActiveSessionExists)
}

func TestActivateSessionSetsGeofenceAndTimes(t *testing.T) {
	f := newSessionFixture(t)
	activated := f.createAndActivate(t)

	require.Equal(t, string(models.SessionStatusActive), activated.Status)
	require.Equal(t, 21.2500, activated.Latitude)
	require.Equal(t, 50.0, activated.RadiusMeters)
	require.Equal(t, "Asia/Kolkata", activated.TimeZone)
	require.NotNil(t, activated.OpenedAt)
	require.NotNil(t, activated.LateAfter)
	require.WithinDuration(t, time.Now().Add(10*time.Minute), *activated.LateAfter, 5*time.Second)
}

func TestActivateSessionHonorsExplicitRadiusAndLateAfter(t *testing.T) {
	f := newSessionFixture(t)
	session := f.create(t, dtos.CreateSessionRequest{
		SubjectCode: "CS101",
		Timeslot:    "MON_0900",
		AnchorIP:    "192.168.43.1",
	})

	lateAfter := time.Now().Add(30 * time.Minute)
	activated, err := f.svc.ActivateSession(context.Background(), f.facultyID, session.SessionID, dtos.ActivateSessionRequest{
		Latitude:     21.2500,
		Longitude:    81.6300,
		RadiusMeters: 15,
		LateAfter:    &lateAfter,
	})
	require.NoError(t, err)
	require.Equal(t, 15.0, activated.RadiusMeters)
	require.WithinDuration(t, lateAfter, *activated.LateAfter, time.Second)
}

func TestActivateSessionRejectsOversizedRadius(t *testing.T) {
	f := newSessionFixture(t)
	session := f.create(t, dtos.CreateSessionRequest{
		SubjectCode: "CS101",
		Timeslot:    "MON_0900",
		AnchorIP:    "192.168.43.1",
	})

	_, err := f.svc.ActivateSession(context.Background(), f.facultyID, session.SessionID, dtos.ActivateSessionRequest{
		Latitude:     21.2500,
		Longitude:    81.6300,
		RadiusMeters: 9000,
	})
	require.Error(t, err)
}

func TestActivateSessionRequiresPendingStatus(t *testing.T) {
	f := newSessionFixture(t)
	activated := f.createAndActivate(t)

	_, err := f.svc.ActivateSession(context.Background(), f.facultyID, activated.SessionID, dtos.ActivateSessionRequest{
		Latitude:  21.2500,
		Longitude: 81.6300,
	})
	require.ErrorIs(t, err, utils.ErrWrongStatus)
}

func TestActivateSessionOwnerOnly(t *testing.T) {
	f := newSessionFixture(t)
	session := f.create(t, dtos.CreateSessionRequest{
		SubjectCode: "CS101",
		Timeslot:    "MON_0900",
		AnchorIP:    "192.168.43.1",
	})

	_, err := f.svc.ActivateSession(context.Background(), uuid.NewString(), session.SessionID, dtos.ActivateSessionRequest{
		Latitude:  21.2500,
		Longitude: 81.6300,
	})
	require.ErrorIs(t, err, utils.ErrNotSessionOwner)
}

func TestCloseSessionNotifiesSummary(t *testing.T) {
	f := newSessionFixture(t)
	activated := f.createAndActivate(t)

	for _, status := range []models.AttendanceStatusType{
		models.AttendanceStatusPresent,
		models.AttendanceStatusPresent,
		models.AttendanceStatusLate,
	} {
		_, err := f.records.CreateIfNotExists(context.Background(), &models.AttendanceRecord{
			ID:          uuid.New(),
			SessionID:   activated.SessionID,
			ClaimantID:  uuid.New(),
			Status:      status,
			CommittedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	closed, err := f.svc.CloseSession(context.Background(), f.facultyID, activated.SessionID)
	require.NoError(t, err)
	require.Equal(t, string(models.SessionStatusClosed), closed.Status)
	require.NotNil(t, closed.ClosedAt)

	require.Len(t, f.notifier.closed, 1)
	require.Equal(t, 2, f.notifier.present)
	require.Equal(t, 1, f.notifier.late)
}

func TestCloseSessionRequiresActiveStatus(t *testing.T) {
	f := newSessionFixture(t)
	session := f.create(t, dtos.CreateSessionRequest{
		SubjectCode: "CS101",
		Timeslot:    "MON_0900",
		AnchorIP:    "192.168.43.1",
	})

	_, err := f.svc.CloseSession(context.Background(), f.facultyID, session.SessionID)
	require.ErrorIs(t, err, utils.ErrWrongStatus)
}

func TestResolveActiveBySSID(t *testing.T) {
	f := newSessionFixture(t)
	activated := f.createAndActivate(t)

	found, err := f.svc.ResolveActiveBySSID(context.Background(), activated.SSID)
	require.NoError(t, err)
	require.Equal(t, activated.SessionID, found.SessionID)

	_, err = f.svc.ResolveActiveBySSID(context.Background(), "ATTEND_NOWHERE")
	require.ErrorIs(t, err, utils.ErrNoActiveSession)
}

func TestListSessionRecordsOwnerOnly(t *testing.T) {
	f := newSessionFixture(t)
	activated := f.createAndActivate(t)

	resp, err := f.svc.ListSessionRecords(context.Background(), f.facultyID, activated.SessionID)
	require.NoError(t, err)
	require.Equal(t, activated.SessionID, resp.SessionID)
	require.Zero(t, resp.Count)

	_, err = f.svc.ListSessionRecords(context.Background(), uuid.NewString(), activated.SessionID)
	require.ErrorIs(t, err, utils.ErrNotSessionOwner)
}

func TestRunCloseMaintenanceClosesStaleSessions(t *testing.T) {
	f := newSessionFixture(t)
	activated := f.createAndActivate(t)

	// Back-date the open timestamp past the maintenance window.
	stale := time.Now().Add(-4 * time.Hour)
	f.sessions.mu.Lock()
	f.sessions.sessions[activated.SessionID].OpenedAt = &stale
	f.sessions.mu.Unlock()

	require.NoError(t, f.svc.RunCloseMaintenance(context.Background(), 3*time.Hour))

	session, err := f.sessions.GetByID(context.Background(), activated.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusClosed, session.Status)
	require.Len(t, f.notifier.closed, 1)
}

func TestRunCloseMaintenanceLeavesFreshSessions(t *testing.T) {
	f := newSessionFixture(t)
	activated := f.createAndActivate(t)

	require.NoError(t, f.svc.RunCloseMaintenance(context.Background(), 3*time.Hour))

	session, err := f.sessions.GetByID(context.Background(), activated.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusActive, session.Status)
	require.Empty(t, f.notifier.closed)
}

func TestGenerateSSIDShape(t *testing.T) {
	ssid := generateSSID("cs 101")
	require.True(t, strings.HasPrefix(ssid, "ATTEND_CS101_"), "got %q", ssid)

	long := generateSSID("VERYLONGSUBJECTCODE")
	require.True(t, strings.HasPrefix(long, "ATTEND_VERYLONGSU_"), "got %q", long)
}
