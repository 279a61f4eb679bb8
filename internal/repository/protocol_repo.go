package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/virgo-whisper/backend/internal/model"
	"gorm.io/gorm"
)

type protocolRepository struct {
	db *gorm.DB
}

// NewProtocolRepository 创建基于 gorm 的流程仓储
func NewProtocolRepository(db *gorm.DB) ProtocolRepository {
	return &protocolRepository{db: db}
}

func (r *protocolRepository) List(ctx context.Context) ([]*model.Protocol, error) {
	var protocols []*model.Protocol
	err := r.db.WithContext(ctx).
		Order("sort_order ASC, id ASC").
		Find(&protocols).Error
	return protocols, err
}

func (r *protocolRepository) Save(ctx context.Context, protocol *model.Protocol) error {
	if protocol.ID == "" {
		protocol.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Save(protocol).Error
}
