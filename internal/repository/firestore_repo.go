package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/virgo-whisper/backend/internal/model"
)

// firestore 文档中的时间字段沿用浮点秒（Unix 时间戳），与已有数据保持一致

type firestoreProtocolRepository struct {
	client *firestore.Client
}

// NewFirestoreProtocolRepository 创建基于 firestore 的流程仓储
func NewFirestoreProtocolRepository(client *firestore.Client) ProtocolRepository {
	return &firestoreProtocolRepository{client: client}
}

func (r *firestoreProtocolRepository) List(ctx context.Context) ([]*model.Protocol, error) {
	docs, err := r.client.Collection(ProtocolsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list protocols: %w", err)
	}

	protocols := make([]*model.Protocol, 0, len(docs))
	for _, doc := range docs {
		data := doc.Data()
		protocols = append(protocols, &model.Protocol{
			ID:       doc.Ref.ID,
			Name:     stringValue(data["name"]),
			Steps:    stringList(data["steps"]),
			Keywords: stringList(data["keywords"]),
		})
	}
	return protocols, nil
}

func (r *firestoreProtocolRepository) Save(ctx context.Context, protocol *model.Protocol) error {
	data := map[string]interface{}{
		"name":     protocol.Name,
		"steps":    protocol.Steps,
		"keywords": protocol.Keywords,
	}
	coll := r.client.Collection(ProtocolsCollection)
	if protocol.ID == "" {
		ref, _, err := coll.Add(ctx, data)
		if err != nil {
			return fmt.Errorf("add protocol: %w", err)
		}
		protocol.ID = ref.ID
		return nil
	}
	if _, err := coll.Doc(protocol.ID).Set(ctx, data); err != nil {
		return fmt.Errorf("set protocol %s: %w", protocol.ID, err)
	}
	return nil
}

type firestoreConversationRepository struct {
	client *firestore.Client
}

// NewFirestoreConversationRepository 创建基于 firestore 的会话仓储
func NewFirestoreConversationRepository(client *firestore.Client) ConversationRepository {
	return &firestoreConversationRepository{client: client}
}

func (r *firestoreConversationRepository) Latest(ctx context.Context, sessionID string) (*model.Conversation, error) {
	query := r.client.Collection(ConversationsCollection).Query
	if sessionID != "" {
		query = query.Where(model.FieldSessionID, "==", sessionID)
	}

	docs, err := query.OrderBy(model.FieldLastUpdate, firestore.Desc).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query latest conversation: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	data := docs[0].Data()
	return &model.Conversation{
		ID:           docs[0].Ref.ID,
		SessionID:    stringValue(data[model.FieldSessionID]),
		ProtocolID:   stringValue(data[model.FieldProtocolID]),
		ProtocolName: stringValue(data[model.FieldProtocolName]),
		History:      stringValue(data[model.FieldHistory]),
		State:        model.ConversationState(stringValue(data[model.FieldState])),
		LastUpdate:   timeValue(data[model.FieldLastUpdate]),
	}, nil
}

func (r *firestoreConversationRepository) Upsert(ctx context.Context, id string, fields model.ConversationFields) (string, error) {
	data := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case time.Time:
			data[key] = unixSeconds(v)
		case model.ConversationState:
			data[key] = string(v)
		default:
			data[key] = v
		}
	}

	coll := r.client.Collection(ConversationsCollection)
	if id == "" {
		ref, _, err := coll.Add(ctx, data)
		if err != nil {
			return "", fmt.Errorf("add conversation: %w", err)
		}
		return ref.ID, nil
	}
	if _, err := coll.Doc(id).Set(ctx, data, firestore.MergeAll); err != nil {
		return "", fmt.Errorf("update conversation %s: %w", id, err)
	}
	return id, nil
}

type firestoreTranscriptRepository struct {
	client *firestore.Client
}

// NewFirestoreTranscriptRepository 创建基于 firestore 的审计日志仓储
func NewFirestoreTranscriptRepository(client *firestore.Client) TranscriptRepository {
	return &firestoreTranscriptRepository{client: client}
}

func (r *firestoreTranscriptRepository) Create(ctx context.Context, entry *model.TranscriptLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	data := map[string]interface{}{
		"text":      entry.Text,
		"type":      string(entry.Type),
		"timestamp": unixSeconds(entry.Timestamp),
	}
	if entry.OriginalCommand != "" {
		data["original_command"] = entry.OriginalCommand
	}
	if entry.OriginalFilename != "" {
		data["original_filename"] = entry.OriginalFilename
	}
	if entry.Analysis != nil {
		data["analysis"] = entry.Analysis
	}

	ref, _, err := r.client.Collection(TranscriptsCollection).Add(ctx, data)
	if err != nil {
		return fmt.Errorf("add transcript: %w", err)
	}
	entry.ID = ref.ID
	return nil
}

func (r *firestoreTranscriptRepository) Recent(ctx context.Context, limit int) ([]*model.TranscriptLog, error) {
	query := r.client.Collection(TranscriptsCollection).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit)
	return r.collect(ctx, query)
}

func (r *firestoreTranscriptRepository) RecentByType(ctx context.Context, transcriptType model.TranscriptType, limit int) ([]*model.TranscriptLog, error) {
	query := r.client.Collection(TranscriptsCollection).
		Where("type", "==", string(transcriptType)).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit)
	return r.collect(ctx, query)
}

func (r *firestoreTranscriptRepository) collect(ctx context.Context, query firestore.Query) ([]*model.TranscriptLog, error) {
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}

	entries := make([]*model.TranscriptLog, 0, len(docs))
	for _, doc := range docs {
		data := doc.Data()
		entry := &model.TranscriptLog{
			ID:               doc.Ref.ID,
			Text:             stringValue(data["text"]),
			OriginalCommand:  stringValue(data["original_command"]),
			OriginalFilename: stringValue(data["original_filename"]),
			Type:             model.TranscriptType(stringValue(data["type"])),
			Timestamp:        timeValue(data["timestamp"]),
		}
		if raw, ok := data["analysis"].(map[string]interface{}); ok {
			entry.Analysis = &model.StressAnalysis{
				Reason: stringValue(raw["reason"]),
				Error:  stringValue(raw["error"]),
			}
			entry.Analysis.IsStressed, _ = raw["is_stressed"].(bool)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

// stringList 兼容数组和单个字符串两种写法
func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return list
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	}
	return nil
}

func timeValue(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case float64:
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*1e9))
	case int64:
		return time.Unix(t, 0)
	}
	return time.Time{}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
