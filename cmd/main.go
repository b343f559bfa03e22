package main

import (
	"context"
	"net/http"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/sendgrid/sendgrid-go"
	twilio "github.com/twilio/twilio-go"

	"github.com/smartattend/attendance-service/internal/app"
	"github.com/smartattend/attendance-service/internal/config"
	"github.com/smartattend/attendance-service/internal/constants"
	"github.com/smartattend/attendance-service/internal/controllers"
	"github.com/smartattend/attendance-service/internal/middleware"
	"github.com/smartattend/attendance-service/internal/repositories"
	"github.com/smartattend/attendance-service/internal/routes"
	"github.com/smartattend/attendance-service/internal/services"
	"github.com/smartattend/attendance-service/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize attendance-service:", err)
	}
	defer application.Close()

	sessionRepo := repositories.NewSessionRepository(application.DB)
	recordRepo := repositories.NewAttendanceRecordRepository(application.DB)
	attemptStore := repositories.NewAttemptStore(constants.AttemptIdleTTL)

	var sgClient *sendgrid.Client
	if cfg.SendGridAPIKey != "" {
		sgClient = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}
	var twClient *twilio.RestClient
	if cfg.TwilioAccountSID != "" {
		twClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	}
	notifier := services.NewNotifyService(
		sgClient,
		twClient,
		cfg.SendGridFromEmail,
		cfg.TwilioFromPhone,
		cfg.SendGridSandbox,
	)

	matcher := services.NewHTTPFaceMatcher(cfg.FaceMatchURL, constants.FaceMatcherCallTimeout)
	presence := services.NewOpenAIFaceService(cfg.OpenAIAPIKey)
	faceService := services.NewFaceService(matcher, presence, cfg.FaceMatchThreshold)

	sessionService := services.NewSessionService(
		sessionRepo,
		recordRepo,
		notifier,
		cfg.GeofenceRadiusMeters,
		cfg.LatenessGrace,
	)
	verificationService := services.NewVerificationService(
		sessionRepo,
		recordRepo,
		attemptStore,
		faceService,
		notifier,
	)

	attendanceController := controllers.NewAttendanceController(verificationService, sessionService)
	sessionsController := controllers.NewSessionsController(sessionService)
	healthController := controllers.NewHealthController(application)

	router := mux.NewRouter()

	// Public
	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)

	student := router.NewRoute().Subrouter()
	student.Use(
		middleware.AuthMiddleware(cfg.RSAPublicKey),
		middleware.RequireRole(middleware.RoleStudent),
	)
	student.HandleFunc(routes.AttendanceActiveSession, attendanceController.ActiveSessionHandler).Methods(http.MethodGet)
	student.HandleFunc(routes.AttendanceStart, attendanceController.StartAttemptHandler).Methods(http.MethodPost)
	student.HandleFunc(routes.AttendanceNetwork, attendanceController.SubmitNetworkHandler).Methods(http.MethodPost)
	student.HandleFunc(routes.AttendanceLocation, attendanceController.SubmitLocationHandler).Methods(http.MethodPost)
	student.HandleFunc(routes.AttendanceFace, attendanceController.SubmitFaceHandler).Methods(http.MethodPost)
	student.HandleFunc(routes.AttendanceSubmit, attendanceController.CommitHandler).Methods(http.MethodPost)
	student.HandleFunc(routes.AttendanceAttemptCancel, attendanceController.CancelAttemptHandler).Methods(http.MethodPost)
	student.HandleFunc(routes.AttendanceAttempt, attendanceController.GetAttemptHandler).Methods(http.MethodGet)

	faculty := router.NewRoute().Subrouter()
	faculty.Use(
		middleware.AuthMiddleware(cfg.RSAPublicKey),
		middleware.RequireRole(middleware.RoleFaculty),
	)
	faculty.HandleFunc(routes.SessionsBase, sessionsController.CreateSessionHandler).Methods(http.MethodPost)
	faculty.HandleFunc(routes.SessionsBase, sessionsController.ListSessionsHandler).Methods(http.MethodGet)
	faculty.HandleFunc(routes.SessionsActivate, sessionsController.ActivateSessionHandler).Methods(http.MethodPost)
	faculty.HandleFunc(routes.SessionsEnd, sessionsController.EndSessionHandler).Methods(http.MethodPost)
	faculty.HandleFunc(routes.SessionsRecords, sessionsController.ListSessionRecordsHandler).Methods(http.MethodGet)

	c := cron.New()
	_, sweepErr := c.AddFunc(constants.AttemptSweepSchedule, func() {
		if n := attemptStore.Sweep(); n > 0 {
			utils.Logger.Infof("Swept %d idle verification attempts", n)
		}
	})
	if sweepErr != nil {
		utils.Logger.WithError(sweepErr).Fatal("Failed to schedule attempt sweep cron")
	}
	_, closeErr := c.AddFunc(constants.SessionSweepSchedule, func() {
		if e := sessionService.RunCloseMaintenance(context.Background(), constants.MaxSessionDuration); e != nil {
			utils.Logger.WithError(e).Error("Session close maintenance failed")
		}
	})
	if closeErr != nil {
		utils.Logger.WithError(closeErr).Fatal("Failed to schedule session close cron")
	}
	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppUrl},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("attendance-service failed to start:", err)
	}
}
