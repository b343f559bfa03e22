package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// FacePresenceResult mirrors the expected JSON from GPT-4o.
type FacePresenceResult struct {
	FaceDetected  bool `json:"face_detected"`
	MultipleFaces bool `json:"multiple_faces"`
	FaceObscured  bool `json:"face_obscured"`
}

// OpenAIFaceService wraps the OpenAI client. If client is nil, the
// presence gate is skipped and captures go straight to the matcher.
type OpenAIFaceService struct {
	client *openai.Client
}

// NewOpenAIFaceService creates the service. Pass an empty apiKey to disable calls.
func NewOpenAIFaceService(apiKey string) *OpenAIFaceService {
	if apiKey == "" {
		return &OpenAIFaceService{client: nil}
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIFaceService{client: &c}
}

// Enabled reports whether the gate will actually call out.
func (s *OpenAIFaceService) Enabled() bool {
	return s != nil && s.client != nil
}

// CheckCapture sends the capture to GPT-4o Vision and returns structured
// booleans about whether a usable single face is in frame. It answers
// presence only, never identity.
func (s *OpenAIFaceService) CheckCapture(
	ctx context.Context,
	img []byte,
) (*FacePresenceResult, error) {

	// Feature disabled; treat as a single clear face.
	if s.client == nil {
		return &FacePresenceResult{FaceDetected: true}, nil
	}

	b64 := base64.StdEncoding.EncodeToString(img)

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"face_detected":  map[string]string{"type": "boolean"},
			"multiple_faces": map[string]string{"type": "boolean"},
			"face_obscured":  map[string]string{"type": "boolean"},
		},
		"required": []string{
			"face_detected",
			"multiple_faces",
			"face_obscured",
		},
		"additionalProperties": false,
	}

	fn := shared.FunctionDefinitionParam{
		Name:        "report_face_presence",
		Description: openai.String("Return booleans describing whether the capture contains one clear human face."),
		Strict:      openai.Bool(true),
		Parameters:  schema,
	}

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(`Check this webcam capture.

Return JSON by calling report_face_presence(strict).
Rules:
1. face_detected = true if ANY human face is visible.
2. multiple_faces = true if more than one face is visible.
3. face_obscured = true if the face is covered, cropped, or too dark to recognize.`),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    "data:image/jpeg;base64," + b64,
							Detail: "low",
						}),
					},
				},
			},
		}},
		Tools: []openai.ChatCompletionToolParam{{
			Function: fn,
		}},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: "report_face_presence",
				},
			},
		},
	}

	resp, err := s.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("openai: no function call returned")
	}

	var out FacePresenceResult
	if err := json.Unmarshal(
		[]byte(resp.Choices[0].Message.ToolCalls[0].Function.Arguments),
		&out,
	); err != nil {
		return nil, fmt.Errorf("unmarshal face presence result: %w", err)
	}

	return &out, nil
}
