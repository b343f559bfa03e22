package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/smartattend/attendance-service/internal/utils"
)

func newMatchServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/match", r.URL.Path)

		var req matchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEqual(t, uuid.Nil, req.ClaimantID)
		require.NotEmpty(t, req.Image)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestHTTPFaceMatcherSuccess(t *testing.T) {
	srv := newMatchServer(t, http.StatusOK, MatchResult{Confidence: 0.92})
	defer srv.Close()

	matcher := NewHTTPFaceMatcher(srv.URL, 5*time.Second)
	res, err := matcher.Match(context.Background(), uuid.New(), []byte("capture"))
	require.NoError(t, err)
	require.InDelta(t, 0.92, res.Confidence, 1e-9)
}

func TestHTTPFaceMatcherServiceError(t *testing.T) {
	srv := newMatchServer(t, http.StatusUnprocessableEntity, map[string]string{
		"code":    "no_face",
		"message": "no face found in capture",
	})
	defer srv.Close()

	matcher := NewHTTPFaceMatcher(srv.URL, 5*time.Second)
	_, err := matcher.Match(context.Background(), uuid.New(), []byte("capture"))

	var matcherErr *utils.MatcherError
	require.ErrorAs(t, err, &matcherErr)
	require.Contains(t, matcherErr.Error(), "no face found")
}

func TestHTTPFaceMatcherUnreachable(t *testing.T) {
	srv := newMatchServer(t, http.StatusOK, MatchResult{})
	srv.Close()

	matcher := NewHTTPFaceMatcher(srv.URL, time.Second)
	_, err := matcher.Match(context.Background(), uuid.New(), []byte("capture"))

	var matcherErr *utils.MatcherError
	require.ErrorAs(t, err, &matcherErr)
}

func TestHTTPFaceMatcherRejectsOutOfRangeConfidence(t *testing.T) {
	srv := newMatchServer(t, http.StatusOK, MatchResult{Confidence: 1.7})
	defer srv.Close()

	matcher := NewHTTPFaceMatcher(srv.URL, 5*time.Second)
	_, err := matcher.Match(context.Background(), uuid.New(), []byte("capture"))

	var matcherErr *utils.MatcherError
	require.ErrorAs(t, err, &matcherErr)
}

func TestFaceServiceThreshold(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		verified   bool
	}{
		{"above threshold", 0.92, true},
		{"exactly at threshold", 0.8, true},
		{"just below threshold", 0.79, false},
		{"zero", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewFaceService(&stubMatcher{confidence: tc.confidence}, nil, 0.8)
			verified, confidence, err := svc.Verify(context.Background(), uuid.New(), []byte("capture"))
			require.NoError(t, err)
			require.Equal(t, tc.verified, verified)
			require.InDelta(t, tc.confidence, confidence, 1e-9)
		})
	}
}

func TestFaceServicePropagatesMatcherError(t *testing.T) {
	svc := NewFaceService(&stubMatcher{err: &utils.MatcherError{Reason: "down"}}, nil, 0.8)
	_, _, err := svc.Verify(context.Background(), uuid.New(), []byte("capture"))

	var matcherErr *utils.MatcherError
	require.ErrorAs(t, err, &matcherErr)
}

func TestDecodeCapturedImage(t *testing.T) {
	raw := []byte("fake-jpeg-bytes")
	encoded := base64.StdEncoding.EncodeToString(raw)

	got, err := DecodeCapturedImage(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, got)

	got, err = DecodeCapturedImage("data:image/jpeg;base64," + encoded)
	require.NoError(t, err)
	require.Equal(t, raw, got)

	_, err = DecodeCapturedImage("!!not-base64!!")
	require.Error(t, err)

	_, err = DecodeCapturedImage("")
	require.Error(t, err)
}
