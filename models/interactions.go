package models

import (
	"time"
)

// InteractionType is the kind of inbound engagement.
type InteractionType string

const (
	InteractionComment InteractionType = "comment"
	InteractionMention InteractionType = "mention"
	InteractionReply   InteractionType = "reply"
)

// Sentiment is the coarse tone of an interaction.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// EngagementInteraction is an inbound comment, mention or reply fetched from a platform.
type EngagementInteraction struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	AccountID    string          `gorm:"column:account_id;not null;size:36;index" json:"account_id"`
	Platform     Platform        `gorm:"column:platform;not null;size:32;uniqueIndex:idx_interaction_remote,priority:1" json:"platform"`
	RemoteID     string          `gorm:"column:remote_id;not null;size:255;uniqueIndex:idx_interaction_remote,priority:2" json:"remote_id"`
	RemotePostID string          `gorm:"column:remote_post_id;size:255" json:"remote_post_id,omitempty"`
	Type         InteractionType `gorm:"column:type;size:16" json:"type"`
	AuthorID     string          `gorm:"column:author_id;size:255" json:"author_id,omitempty"`
	AuthorName   string          `gorm:"column:author_name;size:255" json:"author_name,omitempty"`
	Content      string          `gorm:"column:content;type:text" json:"content"`
	Sentiment    Sentiment       `gorm:"column:sentiment;size:16" json:"sentiment"`
	OccurredAt   time.Time       `gorm:"column:occurred_at" json:"occurred_at"`
	Processed    bool            `gorm:"column:processed;not null;default:false" json:"processed"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoCreateTime;autoUpdateTime" json:"updated_at"`
}

// ReplyResult is the outcome of replying to an interaction.
type ReplyResult struct {
	Success       bool      `json:"success"`
	InteractionID string    `json:"interaction_id"`
	RemoteReplyID string    `json:"remote_reply_id,omitempty"`
	Error         string    `json:"error,omitempty"`
	RepliedAt     time.Time `json:"replied_at"`
}
