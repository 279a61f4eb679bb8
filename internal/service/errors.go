package service

import "errors"

var (
	// ErrNotConfigured 依赖的外部服务没有配置凭据
	ErrNotConfigured = errors.New("service not configured")

	// ErrStoreNotConfigured 文档存储未连接
	ErrStoreNotConfigured = errors.New("document store not configured")

	// ErrVoiceUnavailable 语音合成失败或未配置
	ErrVoiceUnavailable = errors.New("Failed to generate voice")
)
