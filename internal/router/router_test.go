package router

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virgo-whisper/backend/config"
	"github.com/virgo-whisper/backend/internal/handler"
	"github.com/virgo-whisper/backend/internal/pkg/stt"
	"github.com/virgo-whisper/backend/internal/service"
)

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, path string) (*stt.Result, error) {
	return &stt.Result{Text: "over and out"}, nil
}

type stubSynth struct{}

func (stubSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return bytes.Repeat([]byte("ID3"), 512), nil
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	library := service.NewProtocolLibrary(nil)
	store := service.NewConversationStore(nil, 0)
	assistant := service.NewAssistant(service.AssistantDeps{
		Library:       library,
		Conversations: store,
		Turns:         service.NewTurnHandler(nil, store),
		Commands:      service.NewCommandDispatcher("virgo", nil, nil, nil),
		Stress:        service.NewStressAnalyzer(nil),
		Voice:         service.NewVoiceSynthesizer(stubSynth{}),
	})

	return Setup(
		&config.Config{},
		handler.NewAudioHandler(assistant, stubTranscriber{}, t.TempDir()),
		handler.NewProtocolHandler(library, store, "test"),
		handler.NewTranscriptHandler(nil),
		handler.NewConversationHandler(store),
	)
}

func TestSetup_GzipHTML(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestSetup_AudioNotCompressed(t *testing.T) {
	r := setupRouter(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio_file", "clip.wav")
	require.NoError(t, err)
	_, _ = part.Write([]byte("RIFF"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, AnalyzeAudioPath, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
}

func TestSetup_CORS(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodOptions, AnalyzeAudioPath, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetup_Routes(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/transcripts", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conversations/active", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reload-protocols", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
