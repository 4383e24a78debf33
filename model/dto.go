package model

import "time"

// TweetDTO is a tweet enriched with the aggregate counters and the
// viewer-specific liked flag, as returned by feed and profile reads.
type TweetDTO struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	Content        string    `json:"content"`
	Image          string    `json:"image,omitempty"`
	ParentID       *string   `json:"parentId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	LikesCount     int       `json:"likesCount"`
	RepostsCount   int       `json:"repostsCount"`
	CommentsCount  int       `json:"commentsCount"`
	LikedByMe      bool      `json:"likedByMe"`
}

// TweetDetail is the single-tweet read shape: the DTO plus the full like
// and comment lists. A freshly created tweet carries empty slices.
type TweetDetail struct {
	TweetDTO
	Likes    []Like    `json:"likes"`
	Comments []Comment `json:"comments"`
}

type FeedPage struct {
	Tweets      []TweetDTO `json:"tweets"`
	TotalTweets int        `json:"totalTweets"`
	TotalPages  int        `json:"totalPages"`
	HasMore     bool       `json:"hasMore"`
}

type ProfileDTO struct {
	User           User `json:"user"`
	FollowersCount int  `json:"followersCount"`
	FollowingCount int  `json:"followingCount"`
	TweetsCount    int  `json:"tweetsCount"`
	IsFollowing    bool `json:"isFollowing"`
	RequestPending bool `json:"requestPending"`
}

// SuggestionDTO is a "who to follow" candidate. MutualCount is the number of
// distinct accounts the viewer follows that in turn follow this candidate.
type SuggestionDTO struct {
	User        User `json:"user"`
	MutualCount int  `json:"mutualCount"`
}

// ConversationDTO summarizes a direct-message thread with one peer.
type ConversationDTO struct {
	Peer        User    `json:"peer"`
	LastMessage Message `json:"lastMessage"`
	UnreadCount int     `json:"unreadCount"`
}
