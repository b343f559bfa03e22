package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartattend/attendance-service/internal/utils"
)

// MatchResult is the face-matching collaborator's verdict for one capture.
type MatchResult struct {
	Confidence float64 `json:"confidence"`
}

// FaceMatcher is the capability boundary to the external face-matching
// collaborator. Implementations return a *utils.MatcherError for any
// failure (no face, service down); they never fabricate a confidence.
type FaceMatcher interface {
	Match(ctx context.Context, claimantID uuid.UUID, image []byte) (*MatchResult, error)
}

/*
HTTPFaceMatcher talks to the face service over its single-endpoint JSON
contract: POST {base}/api/v1/match with the claimant id and the capture,
answered by {"confidence": 0.92} on success.
*/
type HTTPFaceMatcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFaceMatcher(baseURL string, timeout time.Duration) *HTTPFaceMatcher {
	return &HTTPFaceMatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type matchRequest struct {
	ClaimantID uuid.UUID `json:"claimant_id"`
	Image      string    `json:"image"`
}

type matchErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (m *HTTPFaceMatcher) Match(ctx context.Context, claimantID uuid.UUID, image []byte) (*MatchResult, error) {
	body, err := json.Marshal(matchRequest{
		ClaimantID: claimantID,
		Image:      base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, &utils.MatcherError{Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/v1/match", bytes.NewReader(body))
	if err != nil {
		return nil, &utils.MatcherError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &utils.MatcherError{Reason: "face service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var eb matchErrorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if jErr := json.Unmarshal(raw, &eb); jErr == nil && eb.Message != "" {
			return nil, &utils.MatcherError{Reason: eb.Message}
		}
		return nil, &utils.MatcherError{Reason: fmt.Sprintf("face service returned %d", resp.StatusCode)}
	}

	var res MatchResult
	if dErr := json.NewDecoder(resp.Body).Decode(&res); dErr != nil {
		return nil, &utils.MatcherError{Reason: "decode response", Err: dErr}
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		return nil, &utils.MatcherError{Reason: fmt.Sprintf("confidence out of range: %f", res.Confidence)}
	}
	return &res, nil
}

/*
FaceService sequences the optional GPT-4o presence gate and the matcher
round trip, then applies the configured confidence threshold. The
threshold is owned here, not by the matcher.
*/
type FaceService struct {
	matcher   FaceMatcher
	presence  *OpenAIFaceService
	threshold float64
}

func NewFaceService(matcher FaceMatcher, presence *OpenAIFaceService, threshold float64) *FaceService {
	return &FaceService{matcher: matcher, presence: presence, threshold: threshold}
}

// Verify returns (verified, confidence, err). verified is true iff the
// confidence is at or above the threshold; threshold equality passes.
func (s *FaceService) Verify(ctx context.Context, claimantID uuid.UUID, image []byte) (bool, float64, error) {
	if s.presence != nil {
		pres, err := s.presence.CheckCapture(ctx, image)
		if err != nil {
			return false, 0, &utils.MatcherError{Reason: "presence check failed", Err: err}
		}
		if !pres.FaceDetected {
			return false, 0, &utils.MatcherError{Reason: "no face detected"}
		}
		if pres.MultipleFaces {
			return false, 0, &utils.MatcherError{Reason: "multiple faces in frame"}
		}
	}

	res, err := s.matcher.Match(ctx, claimantID, image)
	if err != nil {
		return false, 0, err
	}
	return res.Confidence >= s.threshold, res.Confidence, nil
}

// DecodeCapturedImage accepts either a data URL ("data:image/png;base64,...")
// or bare base64, the two shapes capture widgets produce.
func DecodeCapturedImage(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx != -1 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("captured image is not valid base64: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("captured image is empty")
	}
	return raw, nil
}
