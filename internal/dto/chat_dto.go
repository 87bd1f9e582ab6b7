package dto

import (
	"time"

	"github.com/chatly-app/chatly-api/internal/models"
)

// PrivateMessageResponse is one serialized entry of a private chat log.
type PrivateMessageResponse struct {
	From    string    `json:"from"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}

// PrivateChatResponse is a private chat with its ordered log.
type PrivateChatResponse struct {
	ID       uint                     `json:"id"`
	CustomID string                   `json:"custom_id"`
	Messages []PrivateMessageResponse `json:"messages"`
}

// GroupMessageResponse is one serialized entry of a group log, user message or
// synthetic lifecycle event.
type GroupMessageResponse struct {
	From    string    `json:"from"`
	Content string    `json:"content"`
	Action  string    `json:"action"`
	Date    time.Time `json:"date"`
}

// GroupChatResponse is a group chat with participants and its ordered log.
type GroupChatResponse struct {
	ID           uint                   `json:"id"`
	Name         string                 `json:"name"`
	Participants []string               `json:"participants"`
	Messages     []GroupMessageResponse `json:"messages"`
}

// NewPrivateChatResponse converts a private chat model into a DTO.
func NewPrivateChatResponse(chat models.PrivateChat) PrivateChatResponse {
	messages := make([]PrivateMessageResponse, 0, len(chat.Messages))
	for _, message := range chat.Messages {
		messages = append(messages, PrivateMessageResponse{
			From:    message.From,
			Content: message.Content,
			Date:    message.SentAt,
		})
	}

	return PrivateChatResponse{
		ID:       chat.ID,
		CustomID: chat.CustomID,
		Messages: messages,
	}
}

// NewPrivateChatResponseSlice converts a slice of private chats into DTOs.
func NewPrivateChatResponseSlice(chats []models.PrivateChat) []PrivateChatResponse {
	out := make([]PrivateChatResponse, 0, len(chats))
	for _, chat := range chats {
		out = append(out, NewPrivateChatResponse(chat))
	}
	return out
}

// NewGroupChatResponse converts a group chat model into a DTO.
func NewGroupChatResponse(chat models.GroupChat) GroupChatResponse {
	participants := make([]string, 0, len(chat.Participants))
	for _, participant := range chat.Participants {
		participants = append(participants, participant.Username)
	}

	messages := make([]GroupMessageResponse, 0, len(chat.Messages))
	for _, message := range chat.Messages {
		messages = append(messages, GroupMessageResponse{
			From:    message.From,
			Content: message.Content,
			Action:  message.Action,
			Date:    message.SentAt,
		})
	}

	return GroupChatResponse{
		ID:           chat.ID,
		Name:         chat.Name,
		Participants: participants,
		Messages:     messages,
	}
}

// NewGroupChatResponseSlice converts a slice of group chats into DTOs.
func NewGroupChatResponseSlice(chats []models.GroupChat) []GroupChatResponse {
	out := make([]GroupChatResponse, 0, len(chats))
	for _, chat := range chats {
		out = append(out, NewGroupChatResponse(chat))
	}
	return out
}
