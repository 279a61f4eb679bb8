package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/virgo-whisper/backend/internal/model"
	"gorm.io/gorm"
)

type transcriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository 创建基于 gorm 的审计日志仓储
func NewTranscriptRepository(db *gorm.DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

func (r *transcriptRepository) Create(ctx context.Context, entry *model.TranscriptLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *transcriptRepository) Recent(ctx context.Context, limit int) ([]*model.TranscriptLog, error) {
	var entries []*model.TranscriptLog
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *transcriptRepository) RecentByType(ctx context.Context, transcriptType model.TranscriptType, limit int) ([]*model.TranscriptLog, error) {
	var entries []*model.TranscriptLog
	err := r.db.WithContext(ctx).
		Where("type = ?", string(transcriptType)).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
