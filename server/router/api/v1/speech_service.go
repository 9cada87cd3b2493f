package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/rod/server/internal/errors"
	"github.com/hrygo/rod/server/internal/observability"
)

// AudioFormField is the multipart field carrying the recording.
const AudioFormField = "audio_file"

type TranscribeResponse struct {
	Text string `json:"text"`
}

type SynthesizeRequest struct {
	Text string `json:"text"`
}

type SynthesizeResponse struct {
	URL string `json:"url"`
}

// Transcribe turns an uploaded recording into text.
// POST /transcribe (multipart, field audio_file)
func (s *APIV1Service) Transcribe(c echo.Context) error {
	start := time.Now()
	var opErr error
	defer func() { s.observe(observability.OpTranscribe, start, opErr) }()

	header, err := c.FormFile(AudioFormField)
	if err != nil {
		opErr = apperrors.InvalidArgument(AudioFormField + " is required")
		return respondError(c, opErr)
	}
	file, err := header.Open()
	if err != nil {
		opErr = apperrors.InvalidArgument("unreadable upload")
		return respondError(c, opErr)
	}
	defer file.Close()

	text, opErr := s.Speech.Transcribe(c.Request().Context(), header.Filename, file)
	if opErr != nil {
		return respondError(c, opErr)
	}
	return c.JSON(http.StatusOK, TranscribeResponse{Text: text})
}

// Synthesize renders text to speech and returns a link to the audio file.
// POST /synthesize
func (s *APIV1Service) Synthesize(c echo.Context) error {
	start := time.Now()
	var opErr error
	defer func() { s.observe(observability.OpSynthesize, start, opErr) }()

	var req SynthesizeRequest
	if opErr = bindJSON(c, &req); opErr != nil {
		return respondError(c, opErr)
	}
	name, opErr := s.Speech.Synthesize(c.Request().Context(), req.Text)
	if opErr != nil {
		return respondError(c, opErr)
	}
	return c.JSON(http.StatusOK, SynthesizeResponse{URL: s.baseURL(c) + "/audio/" + name})
}
