package service

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/virgo-whisper/backend/internal/model"
	"github.com/virgo-whisper/backend/internal/repository"
)

type chatCall struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
}

type mockChat struct {
	ReplyFunc func(systemPrompt, userPrompt string) (string, error)
	Calls     []chatCall
}

func (m *mockChat) Chat(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	m.Calls = append(m.Calls, chatCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt, Temperature: temperature})
	if m.ReplyFunc != nil {
		return m.ReplyFunc(systemPrompt, userPrompt)
	}
	return "", nil
}

func replyWith(reply string) *mockChat {
	return &mockChat{ReplyFunc: func(string, string) (string, error) { return reply, nil }}
}

type mockProtocolRepo struct {
	protocols []*model.Protocol
	err       error
	saveErr   error
}

func (m *mockProtocolRepo) List(ctx context.Context) ([]*model.Protocol, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.protocols, nil
}

func (m *mockProtocolRepo) Save(ctx context.Context, protocol *model.Protocol) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.protocols = append(m.protocols, protocol)
	return nil
}

// mockConversationRepo 内存会话表
type mockConversationRepo struct {
	mu        sync.Mutex
	items     map[string]*model.Conversation
	seq       int
	latestErr error
	upsertErr error
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{items: make(map[string]*model.Conversation)}
}

func (m *mockConversationRepo) Latest(ctx context.Context, sessionID string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	var latest *model.Conversation
	for _, conv := range m.items {
		if sessionID != "" && conv.SessionID != sessionID {
			continue
		}
		if latest == nil || conv.LastUpdate.After(latest.LastUpdate) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (m *mockConversationRepo) Upsert(ctx context.Context, id string, fields model.ConversationFields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return "", m.upsertErr
	}
	conv, ok := m.items[id]
	if id == "" || !ok {
		m.seq++
		if id == "" {
			id = "conv-" + strconv.Itoa(m.seq)
		}
		conv = &model.Conversation{ID: id, State: model.ConversationStateActive}
		m.items[id] = conv
	}
	conv.Apply(fields)
	return id, nil
}

func (m *mockConversationRepo) get(id string) *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *mockConversationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// mockTranscriptRepo 内存审计日志，Recent 按时间倒序
type mockTranscriptRepo struct {
	entries     []*model.TranscriptLog
	recentCalls int
	err         error
}

func (m *mockTranscriptRepo) Create(ctx context.Context, entry *model.TranscriptLog) error {
	if m.err != nil {
		return m.err
	}
	entry.ID = "log-" + strconv.Itoa(len(m.entries)+1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockTranscriptRepo) Recent(ctx context.Context, limit int) ([]*model.TranscriptLog, error) {
	m.recentCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.newest(func(*model.TranscriptLog) bool { return true }, limit), nil
}

func (m *mockTranscriptRepo) RecentByType(ctx context.Context, transcriptType model.TranscriptType, limit int) ([]*model.TranscriptLog, error) {
	m.recentCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.newest(func(e *model.TranscriptLog) bool { return e.Type == transcriptType }, limit), nil
}

func (m *mockTranscriptRepo) newest(keep func(*model.TranscriptLog) bool, limit int) []*model.TranscriptLog {
	out := make([]*model.TranscriptLog, 0, len(m.entries))
	for _, entry := range m.entries {
		if keep(entry) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *mockTranscriptRepo) byType(transcriptType model.TranscriptType) []*model.TranscriptLog {
	var out []*model.TranscriptLog
	for _, entry := range m.entries {
		if entry.Type == transcriptType {
			out = append(out, entry)
		}
	}
	return out
}

// mockRecorder 直接写入 mockTranscriptRepo
type mockRecorder struct {
	repo *mockTranscriptRepo
}

func (m *mockRecorder) Record(ctx context.Context, entry *model.TranscriptLog) error {
	return m.repo.Create(ctx, entry)
}

type mockSynth struct {
	texts []string
	err   error
}

func (m *mockSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.texts = append(m.texts, text)
	if m.err != nil {
		return nil, m.err
	}
	return []byte("mp3:" + text), nil
}
