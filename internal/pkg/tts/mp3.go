package tts

import (
	"bytes"
	"fmt"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// ProbeMP3Duration 解码 MP3 头部计算时长；解码输出为 16 位双声道 PCM
func ProbeMP3Duration(audio []byte) (time.Duration, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	samples := decoder.Length() / 4
	return time.Duration(samples) * time.Second / time.Duration(sampleRate), nil
}
