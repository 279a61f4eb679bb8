package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/virgo-whisper/backend/internal/model"
	"gorm.io/gorm"
)

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建基于 gorm 的会话仓储
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Latest(ctx context.Context, sessionID string) (*model.Conversation, error) {
	query := r.db.WithContext(ctx).Order("last_update DESC")
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}

	var conversations []*model.Conversation
	if err := query.Limit(1).Find(&conversations).Error; err != nil {
		return nil, err
	}
	if len(conversations) == 0 {
		return nil, ErrNotFound
	}
	return conversations[0], nil
}

func (r *conversationRepository) Upsert(ctx context.Context, id string, fields model.ConversationFields) (string, error) {
	if id != "" {
		result := r.db.WithContext(ctx).
			Model(&model.Conversation{}).
			Where("id = ?", id).
			Updates(columnValues(fields))
		if result.Error != nil {
			return "", result.Error
		}
		if result.RowsAffected > 0 {
			return id, nil
		}
	}

	conversation := &model.Conversation{
		ID:    id,
		State: model.ConversationStateActive,
	}
	if conversation.ID == "" {
		conversation.ID = uuid.NewString()
	}
	conversation.Apply(fields)

	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return "", err
	}
	return conversation.ID, nil
}

// columnValues 自定义字符串类型转为 string 交给驱动
func columnValues(fields model.ConversationFields) map[string]interface{} {
	values := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		if state, ok := value.(model.ConversationState); ok {
			value = string(state)
		}
		values[key] = value
	}
	return values
}
