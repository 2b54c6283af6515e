package services

import (
	"context"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/repository"
)

// ChatBridge opens private channels and posts engine messages into them
type ChatBridge interface {
	GetOrCreateChannel(ctx context.Context, partyA, partyB, contextID string) (string, error)
	PostSystemMessage(ctx context.Context, channelID, text string) error
}

// ChatService is the ChatBridge backed by the chat tables
type ChatService struct {
	repo repository.ChatRepository
}

// NewChatService creates a chat bridge over the chat repository
func NewChatService(repo repository.ChatRepository) *ChatService {
	return &ChatService{repo: repo}
}

// GetOrCreateChannel returns the channel for the unordered pair, creating it
// on first use
func (s *ChatService) GetOrCreateChannel(ctx context.Context, partyA, partyB, contextID string) (string, error) {
	channel, err := s.repo.FindChannelByPair(ctx, partyA, partyB)
	if err == nil {
		return channel.ID, nil
	}
	if !repository.IsNotFound(err) {
		return "", err
	}

	channel, err = s.repo.CreateChannel(ctx, &models.ChatChannel{
		UserA:     partyA,
		UserB:     partyB,
		ContextID: contextID,
	})
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

// PostSystemMessage appends a system message to an existing channel
func (s *ChatService) PostSystemMessage(ctx context.Context, channelID, text string) error {
	if _, err := s.repo.FindChannelByID(ctx, channelID); err != nil {
		return err
	}
	return s.repo.AddMessage(ctx, &models.ChatMessage{
		ChannelID: channelID,
		SenderID:  models.SystemSender,
		Type:      models.MessageTypeSystem,
		Content:   text,
	})
}

// Messages lists a channel's messages in order
func (s *ChatService) Messages(ctx context.Context, channelID string) ([]models.ChatMessage, error) {
	return s.repo.ListMessages(ctx, channelID)
}
