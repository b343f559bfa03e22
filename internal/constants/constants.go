package constants

import (
	"time"
)

// General verification settings
const (
	DefaultGeofenceRadiusMeters = 50
	MaxGeofenceRadiusMeters     = 500
	DefaultFaceMatchThreshold   = 0.8
	MaxCapturedImageBytes       = 8 << 20
	MaxLocationAccuracyMeters   = 30
)

// Attempt lifetimes. An attempt idle longer than AttemptIdleTTL is treated
// as abandoned and lazily expired; the sweep interval just bounds memory.
const (
	AttemptIdleTTL       = 2 * time.Minute
	AttemptSweepSchedule = "@every 1m"
)

// Session maintenance. Sessions left ACTIVE longer than MaxSessionDuration
// are force-closed by the maintenance cron.
const (
	MaxSessionDuration      = 3 * time.Hour
	DefaultLatenessGrace    = 10 * time.Minute
	SessionSweepSchedule    = "@every 2m"
	SessionListDefaultLimit = 50
	FaceMatcherCallTimeout  = 10 * time.Second
)
