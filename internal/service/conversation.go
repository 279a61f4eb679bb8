package service

import (
	"context"
	"errors"
	"time"

	"github.com/virgo-whisper/backend/internal/model"
	"github.com/virgo-whisper/backend/internal/repository"
	"k8s.io/klog/v2"
)

// DefaultActiveWindow 会话无更新超过该时长即视为过期
const DefaultActiveWindow = 120 * time.Second

// ConversationStore 活动会话的读取与更新
type ConversationStore struct {
	repo   repository.ConversationRepository
	window time.Duration
	now    func() time.Time
}

// NewConversationStore window 不大于 0 时使用默认的 120 秒
func NewConversationStore(repo repository.ConversationRepository, window time.Duration) *ConversationStore {
	if window <= 0 {
		window = DefaultActiveWindow
	}
	return &ConversationStore{repo: repo, window: window, now: time.Now}
}

// Window 活动窗口时长
func (s *ConversationStore) Window() time.Duration {
	return s.window
}

// GetActive 取最近更新的会话，仅当窗口内有更新且未结束时返回，否则返回 nil
func (s *ConversationStore) GetActive(ctx context.Context, sessionID string) (*model.Conversation, error) {
	if s.repo == nil {
		return nil, ErrStoreNotConfigured
	}

	conv, err := s.repo.Latest(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		klog.V(6).Infof("没有找到会话: session=%q", sessionID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !conv.IsActive(s.now(), s.window) {
		klog.V(6).Infof("最近的会话已过期或已结束: id=%s, state=%s", conv.ID, conv.State)
		return nil, nil
	}
	klog.V(6).Infof("找到活动会话: id=%s", conv.ID)
	return conv, nil
}

// Update id 为空时新建会话；每次都会刷新 last_update
func (s *ConversationStore) Update(ctx context.Context, id string, fields model.ConversationFields) (string, error) {
	if s.repo == nil {
		return "", ErrStoreNotConfigured
	}

	next := make(model.ConversationFields, len(fields)+1)
	for key, value := range fields {
		next[key] = value
	}
	next[model.FieldLastUpdate] = s.now()

	convID, err := s.repo.Upsert(ctx, id, next)
	if err != nil {
		klog.Errorf("更新会话状态失败: id=%s, error=%v", id, err)
		return "", err
	}
	if id == "" {
		klog.V(6).Infof("新建会话: id=%s", convID)
	} else {
		klog.V(6).Infof("已更新会话: id=%s", convID)
	}
	return convID, nil
}

// Complete 将会话标记为结束
func (s *ConversationStore) Complete(ctx context.Context, id string) error {
	_, err := s.Update(ctx, id, model.ConversationFields{model.FieldState: model.ConversationStateComplete})
	return err
}
