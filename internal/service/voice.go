package service

import (
	"context"
	"fmt"

	"github.com/virgo-whisper/backend/internal/pkg/tts"
	"k8s.io/klog/v2"
)

// VoiceSynthesizer 把回复文本转成 MP3；失败统一包装为 ErrVoiceUnavailable
type VoiceSynthesizer struct {
	synth tts.Synthesizer
}

func NewVoiceSynthesizer(synth tts.Synthesizer) *VoiceSynthesizer {
	return &VoiceSynthesizer{synth: synth}
}

func (v *VoiceSynthesizer) Speak(ctx context.Context, text string) ([]byte, error) {
	if v == nil || v.synth == nil {
		klog.Errorf("语音合成未配置")
		return nil, fmt.Errorf("%w: %v", ErrVoiceUnavailable, ErrNotConfigured)
	}

	klog.V(6).Infof("开始语音合成: %q", text)
	audio, err := v.synth.Synthesize(ctx, text)
	if err != nil {
		klog.Errorf("语音合成失败: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrVoiceUnavailable, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrVoiceUnavailable, tts.ErrEmptyAudio)
	}
	return audio, nil
}
