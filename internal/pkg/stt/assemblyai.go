// Package stt 语音转文字
package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"k8s.io/klog/v2"
)

// ErrEmptyTranscript 识别成功但没有文字
var ErrEmptyTranscript = errors.New("Transcription returned no text")

// TranscriptionError 服务端返回 error 状态
type TranscriptionError struct {
	Message string
}

func (e *TranscriptionError) Error() string {
	return "AssemblyAI Error: " + e.Message
}

// Result 一次识别的结果
type Result struct {
	ID   string
	Text string
}

// Transcriber 语音识别接口
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*Result, error)
}

// AssemblyAI 批量（上传后轮询）识别
type AssemblyAI struct {
	client *aai.Client
}

// NewAssemblyAI 创建 AssemblyAI 识别客户端，baseURL 为空时使用官方地址
func NewAssemblyAI(apiKey, baseURL string) *AssemblyAI {
	opts := []aai.ClientOption{aai.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, aai.WithBaseURL(baseURL))
	}
	return &AssemblyAI{client: aai.NewClientWithOptions(opts...)}
}

// Transcribe 上传本地音频文件并等待识别完成
func (a *AssemblyAI) Transcribe(ctx context.Context, path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	klog.V(6).Infof("[STT] 开始识别: path=%s", path)
	transcript, err := a.client.Transcripts.TranscribeFromReader(ctx, file, nil)
	if err != nil {
		klog.Errorf("[STT] 识别请求失败: %v", err)
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	result, err := toResult(transcript)
	if err != nil {
		klog.Errorf("[STT] 识别失败: id=%s, error=%v", aai.ToString(transcript.ID), err)
		return nil, err
	}
	klog.V(6).Infof("[STT] 识别完成: id=%s, textLength=%d", result.ID, len(result.Text))
	return result, nil
}

func toResult(transcript aai.Transcript) (*Result, error) {
	if transcript.Status == aai.TranscriptStatusError {
		return nil, &TranscriptionError{Message: aai.ToString(transcript.Error)}
	}
	text := strings.TrimSpace(aai.ToString(transcript.Text))
	if text == "" {
		return nil, ErrEmptyTranscript
	}
	return &Result{
		ID:   aai.ToString(transcript.ID),
		Text: text,
	}, nil
}
