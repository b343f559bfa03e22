package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	twilio "github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/smartattend/attendance-service/internal/models"
	"github.com/smartattend/attendance-service/internal/utils"
)

// Notifier is the contract the orchestrator and the session sweeper emit
// events through. The relay to student clients (push/socket) is an
// external collaborator; this service only covers the owner-facing
// channels it can reach directly.
type Notifier interface {
	RecordCommitted(sessionID, claimantID uuid.UUID, status models.AttendanceStatusType)
	SessionClosed(session *models.AttendanceSession, present, late int)
}

type NotifyService struct {
	sgClient  *sendgrid.Client
	twClient  *twilio.RestClient
	fromEmail string
	fromPhone string
	sandbox   bool
}

func NewNotifyService(
	sgClient *sendgrid.Client,
	twClient *twilio.RestClient,
	fromEmail string,
	fromPhone string,
	sandbox bool,
) *NotifyService {
	return &NotifyService{
		sgClient:  sgClient,
		twClient:  twClient,
		fromEmail: fromEmail,
		fromPhone: fromPhone,
		sandbox:   sandbox,
	}
}

// RecordCommitted announces a committed record. Downstream relays pick
// this up from the log pipeline; no per-record email or SMS is sent.
func (n *NotifyService) RecordCommitted(sessionID, claimantID uuid.UUID, status models.AttendanceStatusType) {
	utils.Logger.WithField("session_id", sessionID).
		WithField("claimant_id", claimantID).
		WithField("status", status).
		Info("attendance record committed")
}

// SessionClosed sends the owner a claim summary via the configured
// channels. Missing clients or contacts simply skip a channel.
func (n *NotifyService) SessionClosed(session *models.AttendanceSession, present, late int) {
	subject := fmt.Sprintf("Attendance closed: %s (%s)", session.SubjectCode, session.Timeslot)
	body := fmt.Sprintf(
		"Session %s for %s closed.\n\nPresent: %d\nLate: %d\nTotal claims: %d\n",
		session.ID, session.SubjectCode, present, late, present+late,
	)
	if session.ClosedAt != nil {
		loc := time.UTC
		if session.TimeZone != "" {
			if tz, err := time.LoadLocation(session.TimeZone); err == nil {
				loc = tz
			}
		}
		body += fmt.Sprintf("Closed at: %s\n", session.ClosedAt.In(loc).Format(time.RFC1123))
	}

	// ---------- Twilio SMS ----------
	if n.twClient != nil && session.NotifyPhone != "" {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(session.NotifyPhone)
		params.SetFrom(n.fromPhone)
		params.SetBody(subject + " :: " + fmt.Sprintf("present %d, late %d", present, late))
		if _, smsErr := n.twClient.Api.CreateMessage(params); smsErr != nil {
			utils.Logger.WithError(smsErr).Warnf("Failed to send close summary SMS for session %s", session.ID)
		}
	}

	// ---------- SendGrid Email ----------
	if n.sgClient != nil && session.NotifyEmail != "" {
		from := mail.NewEmail("SmartAttend", n.fromEmail)
		to := mail.NewEmail("", session.NotifyEmail)
		msg := mail.NewSingleEmail(from, subject, to, body, "<pre>"+body+"</pre>")
		if n.sandbox {
			ms := mail.NewMailSettings()
			ms.SetSandboxMode(mail.NewSetting(true))
			msg.MailSettings = ms
		}
		if _, sgErr := n.sgClient.Send(msg); sgErr != nil {
			utils.Logger.WithError(sgErr).Warnf("Failed to send close summary email for session %s", session.ID)
		}
	} else if session.NotifyEmail != "" {
		utils.Logger.Warnf("SendGrid client is nil, skipping close summary email for session %s", session.ID)
	}
}
