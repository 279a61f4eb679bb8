package service

import (
	"context"
	"sync"

	"github.com/virgo-whisper/backend/internal/model"
	"github.com/virgo-whisper/backend/internal/repository"
	"k8s.io/klog/v2"
)

// ProtocolLibrary 流程库的内存缓存：启动时加载，之后只通过 Reload 整体替换
type ProtocolLibrary struct {
	repo repository.ProtocolRepository

	mu        sync.RWMutex
	protocols []*model.Protocol
}

// NewProtocolLibrary 创建流程库，repo 为 nil 表示存储未连接
func NewProtocolLibrary(repo repository.ProtocolRepository) *ProtocolLibrary {
	return &ProtocolLibrary{repo: repo}
}

// Reload 从存储重新读取全部流程；失败时保留原有缓存
func (l *ProtocolLibrary) Reload(ctx context.Context) (int, error) {
	if l.repo == nil {
		klog.Errorf("无法加载流程库: 文档存储未连接")
		return l.Count(), ErrStoreNotConfigured
	}

	klog.V(6).Infof("开始从存储加载流程库")
	protocols, err := l.repo.List(ctx)
	if err != nil {
		klog.Errorf("加载流程库失败: %v", err)
		return l.Count(), err
	}

	l.mu.Lock()
	l.protocols = protocols
	l.mu.Unlock()

	klog.Infof("流程库加载完成: %d 个流程", len(protocols))
	return len(protocols), nil
}

// List 返回当前缓存的副本
func (l *ProtocolLibrary) List() []*model.Protocol {
	l.mu.RLock()
	defer l.mu.RUnlock()
	protocols := make([]*model.Protocol, len(l.protocols))
	copy(protocols, l.protocols)
	return protocols
}

func (l *ProtocolLibrary) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.protocols)
}

// FindByID 找不到时返回 nil
func (l *ProtocolLibrary) FindByID(id string) *model.Protocol {
	if id == "" {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, protocol := range l.protocols {
		if protocol.ID == id {
			return protocol
		}
	}
	return nil
}

// MatchTrigger 按流程库顺序、关键词声明顺序匹配，返回第一个命中的流程
func (l *ProtocolLibrary) MatchTrigger(transcript string) *model.Protocol {
	normalized := NormalizeTranscript(transcript)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, protocol := range l.protocols {
		for _, keyword := range protocol.Keywords {
			if containsPhrase(normalized, keyword) {
				klog.V(6).Infof("命中流程触发词: keyword=%q, protocol=%s", keyword, protocol.Name)
				return protocol
			}
		}
	}
	return nil
}
