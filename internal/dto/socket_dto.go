package dto

import (
	"encoding/json"
	"time"
)

// Inbound socket event names.
const (
	EventEnterChat        = "enter_chat"
	EventExitChat         = "exit_chat"
	EventSendMessage      = "send_message"
	EventJoinGroup        = "join_group"
	EventRejoinGroups     = "rejoin_groups"
	EventSendGroupMessage = "send_group_message"
	EventAddUsersToGroup  = "add_users_to_group"
	EventLeaveGroup       = "leave_group"
	EventBlockUser        = "block_user"
	EventUnblockUser      = "unblock_user"
)

// Outbound socket event names.
const (
	EventOnlineUsers         = "online_users"
	EventLastMessageSent     = "last_message_sent"
	EventReceiveMessage      = "receive_message"
	EventReceiveGroupMessage = "receive_group_message"
	EventSendGroupChats      = "send_group_chats"
	EventChatDeleted         = "chat_deleted"
	EventUserBlocked         = "user_blocked"
	EventBlockedBy           = "blocked_by"
	EventUserUnblocked       = "user_unblocked"
	EventUnblockedBy         = "unblocked_by"
)

// SocketEnvelope frames every message on the wire in both directions.
type SocketEnvelope struct {
	Event string          `json:"event" validate:"required,min=1,max=64"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundEvent is an envelope with an already-materialized payload.
type OutboundEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// EnterChatPayload registers the connection's identity with the presence registry.
type EnterChatPayload struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	UserID   uint   `json:"userId" validate:"required"`
}

// SendMessagePayload carries a private message.
type SendMessagePayload struct {
	Content    string    `json:"content" validate:"required,min=1,max=4000"`
	From       string    `json:"from" validate:"required,min=1,max=64"`
	To         string    `json:"to" validate:"required,min=1,max=64"`
	Token      string    `json:"token" validate:"required"`
	ReceiverID uint      `json:"receiverId" validate:"required"`
	Date       time.Time `json:"date"`
}

// JoinGroupPayload creates a group or merges into an existing one.
type JoinGroupPayload struct {
	GroupName    string    `json:"groupName" validate:"required,min=1,max=128"`
	GroupMembers []string  `json:"groupMembers" validate:"required,min=1,dive,min=1,max=64"`
	Token        string    `json:"token" validate:"required"`
	From         string    `json:"from" validate:"required,min=1,max=64"`
	Date         time.Time `json:"date"`
}

// RejoinGroupsPayload restores room subscriptions after a reconnect.
type RejoinGroupsPayload struct {
	Username string   `json:"username" validate:"required,min=1,max=64"`
	Groups   []string `json:"groups" validate:"dive,min=1,max=128"`
}

// SendGroupMessagePayload carries a group message.
type SendGroupMessagePayload struct {
	Content   string    `json:"content" validate:"required,min=1,max=4000"`
	From      string    `json:"from" validate:"required,min=1,max=64"`
	Token     string    `json:"token" validate:"required"`
	GroupName string    `json:"groupName" validate:"required,min=1,max=128"`
	Date      time.Time `json:"date"`
}

// AddUsersToGroupPayload extends a group's participant list.
type AddUsersToGroupPayload struct {
	Users     []string  `json:"users" validate:"required,min=1,dive,min=1,max=64"`
	GroupName string    `json:"groupName" validate:"required,min=1,max=128"`
	Token     string    `json:"token" validate:"required"`
	Date      time.Time `json:"date"`
}

// LeaveGroupPayload removes the caller from a group.
type LeaveGroupPayload struct {
	GroupName string    `json:"groupName" validate:"required,min=1,max=128"`
	Username  string    `json:"username" validate:"required,min=1,max=64"`
	Token     string    `json:"token" validate:"required"`
	Date      time.Time `json:"date"`
}

// BlockUserPayload adds a block edge from Username to BlockedUser.
type BlockUserPayload struct {
	Username      string `json:"username" validate:"required,min=1,max=64"`
	BlockedUser   string `json:"blockedUser" validate:"required,min=1,max=64"`
	Token         string `json:"token" validate:"required"`
	BlockedUserID uint   `json:"blockedUserId" validate:"required"`
}

// UnblockUserPayload removes a block edge from Username to BlockedUser.
type UnblockUserPayload struct {
	Username      string `json:"username" validate:"required,min=1,max=64"`
	BlockedUser   string `json:"blockedUser" validate:"required,min=1,max=64"`
	Token         string `json:"token" validate:"required"`
	BlockedUserID uint   `json:"blockedUserId" validate:"required"`
}

// OnlineUser is one entry in the broadcast online list.
type OnlineUser struct {
	Username string `json:"username"`
}

// ActivityPing tells clients something changed so they can resort their chat
// lists. It deliberately carries no message content.
type ActivityPing struct {
	From      string `json:"from,omitempty"`
	GroupName string `json:"groupName,omitempty"`
}

// MessageDelivery is the payload of receive_message and receive_group_message.
type MessageDelivery struct {
	Content string    `json:"content"`
	From    string    `json:"from"`
	Date    time.Time `json:"date"`
}

// BlockedListNotice carries a user's refreshed blocked list.
type BlockedListNotice struct {
	BlockedUsersList []string `json:"blockedUsersList"`
}

// BlockedByNotice carries a user's refreshed blocked-by list.
type BlockedByNotice struct {
	BlockedByList []string `json:"blockedByList"`
}
