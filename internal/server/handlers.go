package server

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/solavoice/go-sola/pkg/conversation"
	"github.com/solavoice/go-sola/pkg/llm"
	"github.com/solavoice/go-sola/pkg/orchestrator"
	"github.com/solavoice/go-sola/pkg/roles"
	"github.com/solavoice/go-sola/pkg/transcode"
	"github.com/solavoice/go-sola/pkg/tts"
)

// handleHealth reports dependency status. Always 200; the body carries
// the degraded detail.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	snap := s.cfg.Health.Probe(c.Context())
	return c.JSON(snap)
}

// handleListRoles returns the full persona catalog.
func (s *Server) handleListRoles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"roles":           s.cfg.Registry.List(),
		"default_role_id": s.cfg.Registry.DefaultRoleID(),
	})
}

// handleGetRole returns one persona by id.
func (s *Server) handleGetRole(c *fiber.Ctx) error {
	role, err := s.cfg.Registry.Get(c.Params("role_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(role)
}

// TalkResponse is the body of a successful voice turn.
type TalkResponse struct {
	RoleID           string `json:"role_id"`
	Transcription    string `json:"transcription"`
	ReplyText        string `json:"reply_text"`
	ReplyAudioBase64 string `json:"reply_audio_base64,omitempty"`
	Degraded         bool   `json:"degraded,omitempty"`
}

// handleTalk runs a full voice turn from an uploaded clip.
func (s *Server) handleTalk(c *fiber.Ctx) error {
	audio, contentType, err := formAudio(c)
	if err != nil {
		return s.badRequest(c, err)
	}

	history, err := parseHistory(c.FormValue("history"))
	if err != nil {
		return s.badRequest(c, err)
	}

	result, err := s.cfg.Orchestrator.RunTurn(c.Context(), orchestrator.TurnRequest{
		RequestID:   requestIDFrom(c),
		Audio:       audio,
		ContentType: contentType,
		RoleID:      c.FormValue("role_id"),
		History:     history,
	})
	if err != nil {
		return s.fail(c, err)
	}

	resp := TalkResponse{
		RoleID:        result.RoleID,
		Transcription: result.Transcription,
		ReplyText:     result.ReplyText,
		Degraded:      result.Degraded,
	}
	if result.Audio != nil {
		resp.ReplyAudioBase64 = base64.StdEncoding.EncodeToString(result.Audio.Audio)
	}
	return c.JSON(resp)
}

// SkillRequest is the body of a skill invocation.
type SkillRequest struct {
	InputText string              `json:"input_text"`
	Speak     bool                `json:"speak"`
	History   []conversation.Turn `json:"history"`
}

// SkillResponse is the body of a successful skill invocation.
type SkillResponse struct {
	RoleID           string `json:"role_id"`
	SkillID          string `json:"skill_id"`
	Text             string `json:"text"`
	ReplyAudioBase64 string `json:"reply_audio_base64,omitempty"`
	Degraded         bool   `json:"degraded,omitempty"`
}

// handleSkill invokes one predefined persona action.
func (s *Server) handleSkill(c *fiber.Ctx) error {
	var body SkillRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return s.badRequest(c, err)
		}
	}

	result, err := s.cfg.Orchestrator.RunSkill(c.Context(), orchestrator.SkillRequest{
		RequestID: requestIDFrom(c),
		RoleID:    c.Params("role_id"),
		SkillID:   c.Params("skill_id"),
		Input:     body.InputText,
		History:   body.History,
		Speak:     body.Speak,
	})
	if err != nil {
		return s.fail(c, err)
	}

	resp := SkillResponse{
		RoleID:   result.RoleID,
		SkillID:  result.SkillID,
		Text:     result.Text,
		Degraded: result.Degraded,
	}
	if result.Audio != nil {
		resp.ReplyAudioBase64 = base64.StdEncoding.EncodeToString(result.Audio.Audio)
	}
	return c.JSON(resp)
}

// handleTranscribe converts and recognizes an uploaded clip without
// running the rest of the pipeline.
func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	audio, contentType, err := formAudio(c)
	if err != nil {
		return s.badRequest(c, err)
	}

	wav, err := s.cfg.Transcoder.Transcode(c.Context(), audio, contentType)
	if err != nil {
		return s.fail(c, err)
	}
	text, err := s.cfg.Recognizer.Transcribe(c.Context(), wav)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"text": text})
}

// ChatRequest is the body of a raw generation request.
type ChatRequest struct {
	Text string `json:"text"`
}

// handleChat sends text straight to the language model.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var body ChatRequest
	if err := c.BodyParser(&body); err != nil {
		return s.badRequest(c, err)
	}
	if strings.TrimSpace(body.Text) == "" {
		return s.badRequest(c, errors.New("text is required"))
	}

	reply, err := s.cfg.LLM.Generate(c.Context(), body.Text)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"text": reply})
}

// SpeakRequest is the body of a synthesis request.
type SpeakRequest struct {
	Text string `json:"text"`
}

// handleSpeak synthesizes text to audio.
func (s *Server) handleSpeak(c *fiber.Ctx) error {
	var body SpeakRequest
	if err := c.BodyParser(&body); err != nil {
		return s.badRequest(c, err)
	}
	if strings.TrimSpace(body.Text) == "" {
		return s.badRequest(c, errors.New("text is required"))
	}

	result, err := s.cfg.Synth.Synthesize(c.Context(), body.Text)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"audio_base64": base64.StdEncoding.EncodeToString(result.Audio),
	})
}

// formAudio extracts the uploaded clip from a multipart request.
func formAudio(c *fiber.Ctx) ([]byte, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", errors.New("file is required")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("file is empty")
	}
	return data, fileHeader.Header.Get("Content-Type"), nil
}

func (s *Server) badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// fail maps pipeline errors to HTTP statuses. The body is always
// {"error": "..."} so clients can distinguish failure kinds by message
// and status alone.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, roles.ErrRoleNotFound), errors.Is(err, roles.ErrSkillNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, conversation.ErrMissingInput), errors.Is(err, transcode.ErrEmptyInput):
		return fiber.StatusBadRequest
	case errors.Is(err, transcode.ErrFFmpegMissing),
		errors.Is(err, tts.ErrBinaryMissing),
		errors.Is(err, tts.ErrModelMissing),
		errors.Is(err, llm.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	}

	var execErr *transcode.ExecError
	if errors.As(err, &execErr) {
		// ffmpeg rejected the clip: client sent something unreadable.
		return fiber.StatusUnprocessableEntity
	}

	var stageErr *orchestrator.StageError
	if errors.As(err, &stageErr) {
		// Upstream provider failure inside an otherwise valid turn.
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
