package config

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/pem"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"

	"github.com/smartattend/attendance-service/internal/constants"
	"github.com/smartattend/attendance-service/internal/utils"
)

const AppName = "attendance-service"

type Config struct {
	AppName string
	AppPort string
	AppUrl  string

	// Database
	DBUrl string

	// Auth
	RSAPublicKey *rsa.PublicKey

	// Verification tuning
	GeofenceRadiusMeters float64
	FaceMatchThreshold   float64
	LatenessGrace        time.Duration

	// Face-matching collaborator
	FaceMatchURL string

	// Optional GPT-4o face-presence gate; empty key disables it.
	OpenAIAPIKey string

	// Notifications; empty values disable the respective channel.
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridSandbox   bool
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromPhone   string
}

func LoadConfig() *Config {
	// .env is a local-dev convenience; absence is fine.
	_ = godotenv.Load()

	utils.Logger.Info("Loading config for app: ", AppName)

	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
	appUrl := os.Getenv("APP_URL")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL env var is missing")
	}
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}

	pubB64 := os.Getenv("RSA_PUBLIC_KEY_BASE64")
	if pubB64 == "" {
		utils.Logger.Fatal("RSA_PUBLIC_KEY_BASE64 env var is missing")
	}
	pubPEM, decErr := base64.StdEncoding.DecodeString(pubB64)
	if decErr != nil {
		utils.Logger.WithError(decErr).Fatal("RSA_PUBLIC_KEY_BASE64 is not valid base64")
	}
	if block, _ := pem.Decode(pubPEM); block == nil {
		utils.Logger.Fatal("Failed to decode PEM block for public key")
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	faceURL := os.Getenv("FACE_MATCH_URL")
	if faceURL == "" {
		utils.Logger.Fatal("FACE_MATCH_URL env var is missing")
	}

	radius := float64(constants.DefaultGeofenceRadiusMeters)
	if v := os.Getenv("GEOFENCE_RADIUS_METERS"); v != "" {
		parsed, pErr := strconv.ParseFloat(v, 64)
		if pErr != nil || parsed <= 0 || parsed > constants.MaxGeofenceRadiusMeters {
			utils.Logger.Fatalf("GEOFENCE_RADIUS_METERS invalid: %q", v)
		}
		radius = parsed
	}

	threshold := constants.DefaultFaceMatchThreshold
	if v := os.Getenv("FACE_MATCH_THRESHOLD"); v != "" {
		parsed, pErr := strconv.ParseFloat(v, 64)
		if pErr != nil || parsed < 0 || parsed > 1 {
			utils.Logger.Fatalf("FACE_MATCH_THRESHOLD invalid: %q", v)
		}
		threshold = parsed
	}

	grace := constants.DefaultLatenessGrace
	if v := os.Getenv("LATENESS_GRACE"); v != "" {
		parsed, pErr := time.ParseDuration(v)
		if pErr != nil || parsed < 0 {
			utils.Logger.Fatalf("LATENESS_GRACE invalid: %q", v)
		}
		grace = parsed
	}

	sgFrom := os.Getenv("SENDGRID_FROM_EMAIL")
	if sgFrom == "" {
		sgFrom = "no-reply@smartattend.app"
	}
	sgSandbox, _ := strconv.ParseBool(os.Getenv("SENDGRID_SANDBOX_MODE"))

	return &Config{
		AppName:              AppName,
		AppPort:              appPort,
		AppUrl:               appUrl,
		DBUrl:                dbURL,
		RSAPublicKey:         pubKey,
		GeofenceRadiusMeters: radius,
		FaceMatchThreshold:   threshold,
		LatenessGrace:        grace,
		FaceMatchURL:         faceURL,
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail:    sgFrom,
		SendGridSandbox:      sgSandbox,
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromPhone:      os.Getenv("TWILIO_FROM_PHONE"),
	}
}
