package repository

import (
	"context"
	"errors"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRepository defines the interface for chat channel data access
type ChatRepository interface {
	FindChannelByPair(ctx context.Context, userA, userB string) (*models.ChatChannel, error)
	FindChannelByID(ctx context.Context, id string) (*models.ChatChannel, error)
	CreateChannel(ctx context.Context, channel *models.ChatChannel) (*models.ChatChannel, error)
	AddMessage(ctx context.Context, message *models.ChatMessage) error
	ListMessages(ctx context.Context, channelID string) ([]models.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) FindChannelByPair(ctx context.Context, userA, userB string) (*models.ChatChannel, error) {
	var channel models.ChatChannel
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", models.PairKey(userA, userB)).
		First(&channel).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &channel, nil
}

func (r *chatRepository) FindChannelByID(ctx context.Context, id string) (*models.ChatChannel, error) {
	var channel models.ChatChannel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		return nil, translateError(err)
	}
	return &channel, nil
}

// CreateChannel inserts the channel, or returns the existing one when a
// concurrent writer created the same pair first
func (r *chatRepository) CreateChannel(ctx context.Context, channel *models.ChatChannel) (*models.ChatChannel, error) {
	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}
	channel.PairKey = models.PairKey(channel.UserA, channel.UserB)

	err := translateError(r.db.WithContext(ctx).Create(channel).Error)
	if errors.Is(err, ErrDuplicate) {
		return r.FindChannelByPair(ctx, channel.UserA, channel.UserB)
	}
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func (r *chatRepository) AddMessage(ctx context.Context, message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	return translateError(r.db.WithContext(ctx).Create(message).Error)
}

func (r *chatRepository) ListMessages(ctx context.Context, channelID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, translateError(err)
}
