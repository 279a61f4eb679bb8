// Package tts 文字转语音
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"k8s.io/klog/v2"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

var (
	// ErrEmptyAudio 接口成功返回但没有音频数据
	ErrEmptyAudio = errors.New("elevenlabs returned empty audio")
	// ErrInvalidAudio 请求 mp3 格式但返回内容无法解码
	ErrInvalidAudio = errors.New("elevenlabs returned invalid mp3 audio")
)

// Synthesizer 语音合成接口
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Config ElevenLabs 客户端配置
type Config struct {
	APIKey       string
	BaseURL      string
	VoiceID      string
	ModelID      string
	OutputFormat string
}

// ElevenLabs 通过 REST 接口一次性合成整段音频
type ElevenLabs struct {
	apiKey       string
	baseURL      string
	voiceID      string
	modelID      string
	outputFormat string
	client       *http.Client
}

// NewElevenLabs 创建 ElevenLabs 客户端
func NewElevenLabs(cfg Config) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = "JBFqnCBsd6RMkjVDRZzb"
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "mp3_44100_128"
	}
	return &ElevenLabs{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		voiceID:      cfg.VoiceID,
		modelID:      cfg.ModelID,
		outputFormat: cfg.OutputFormat,
		client:       &http.Client{},
	}
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize 将文本合成为音频字节
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	// output_format 只能放在 query 参数里
	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		e.baseURL, url.PathEscape(e.voiceID), url.QueryEscape(e.outputFormat))

	jsonBody, err := json.Marshal(ttsRequest{Text: text, ModelID: e.modelID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.apiKey)

	klog.V(6).Infof("[TTS] 发送合成请求: voice=%s, model=%s, textLength=%d", e.voiceID, e.modelID, len(text))
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	if !strings.HasPrefix(e.outputFormat, "mp3") {
		klog.V(6).Infof("[TTS] 合成完成: bytes=%d, format=%s", len(audio), e.outputFormat)
		return audio, nil
	}

	// 返回给客户端的是 audio/mpeg，解码失败的内容不能透传
	duration, err := ProbeMP3Duration(audio)
	if err != nil {
		klog.Errorf("[TTS] 无法解析合成的 MP3: bytes=%d, error=%v", len(audio), err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	klog.V(6).Infof("[TTS] 合成完成: bytes=%d, duration=%s", len(audio), duration)
	return audio, nil
}
