package model

import (
	"time"
)

// Info from JWT token
type AuthUser struct {
	ID       string
	Username string
	Exp      time.Time
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	Bio          string    `json:"bio"`
	Avatar       string    `json:"avatar"`
	IsPrivate    bool      `json:"isPrivate"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Tweet struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content" validate:"max=280"`
	Image     string    `json:"image,omitempty"`
	ParentID  *string   `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	TweetID   string    `json:"tweetId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content" validate:"required,max=280"`
	CreatedAt time.Time `json:"createdAt"`
}

// Like is an edge between a user and a tweet or comment. Existence means
// "liked", absence means "not liked".
type Like struct {
	UserID    string    `json:"userId"`
	SubjectID string    `json:"subjectId"`
	CreatedAt time.Time `json:"createdAt"`
}

type FollowRequest struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"senderId"`
	RecipientID string     `json:"recipientId"`
	Content     string     `json:"content" validate:"required,max=1000"`
	CreatedAt   time.Time  `json:"createdAt"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}

type NotificationType string

const (
	NotificationLike          NotificationType = "like"
	NotificationComment       NotificationType = "comment"
	NotificationFollow        NotificationType = "follow"
	NotificationFollowRequest NotificationType = "follow_request"
	NotificationMessage       NotificationType = "message"
)

type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId"`
	ActorID     string           `json:"actorId"`
	Type        NotificationType `json:"type"`
	TargetID    string           `json:"targetId,omitempty"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`
}
