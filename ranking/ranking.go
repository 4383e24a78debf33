// Package ranking holds the pure scoring and ordering rules used by the
// feed and the follow suggestions. Nothing here touches storage or clocks;
// callers pass "now" in so results are reproducible.
package ranking

import (
	"hash/fnv"
	"math"
	"sort"
	"time"

	"chirp/model"
)

const (
	likeWeight    = 2
	repostWeight  = 3
	commentWeight = 1
	decayExponent = 1.8
	decayOffset   = 2.0
)

// Score computes the popularity score of a tweet from its engagement
// counters and age: (2*likes + 3*reposts + comments) / (ageHours + 2)^1.8.
// Age is clamped at zero so clock skew never inflates a score.
func Score(likeCount, repostCount, commentCount int, createdAt, now time.Time) float64 {
	base := float64(likeWeight*likeCount + repostWeight*repostCount + commentWeight*commentCount)

	ageHours := now.Sub(createdAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}

	return base / math.Pow(ageHours+decayOffset, decayExponent)
}

// SortTweets orders tweets by score descending, breaking ties by createdAt
// descending and finally id descending, so the order is fully deterministic.
func SortTweets(tweets []model.TweetDTO, now time.Time) {
	scores := make(map[string]float64, len(tweets))
	for _, t := range tweets {
		scores[t.ID] = Score(t.LikesCount, t.RepostsCount, t.CommentsCount, t.CreatedAt, now)
	}

	sort.SliceStable(tweets, func(i, j int) bool {
		si, sj := scores[tweets[i].ID], scores[tweets[j].ID]
		if si != sj {
			return si > sj
		}
		if !tweets[i].CreatedAt.Equal(tweets[j].CreatedAt) {
			return tweets[i].CreatedAt.After(tweets[j].CreatedAt)
		}
		return tweets[i].ID > tweets[j].ID
	})
}

// TiebreakJitter derives a stable pseudo-random value for a candidate id
// under a given seed. Suggestions with equal mutual counts are ordered by
// it, so the order varies between requests (different seeds) yet any single
// request is reproducible in tests.
func TiebreakJitter(seed uint64, id string) uint64 {
	h := fnv.New64a()
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(seed >> (8 * i))
	}
	h.Write(b[:])
	h.Write([]byte(id))
	return h.Sum64()
}

// SortSuggestions orders candidates by mutual count descending, with the
// seeded jitter breaking ties.
func SortSuggestions(suggestions []model.SuggestionDTO, seed uint64) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].MutualCount != suggestions[j].MutualCount {
			return suggestions[i].MutualCount > suggestions[j].MutualCount
		}
		return TiebreakJitter(seed, suggestions[i].User.ID) < TiebreakJitter(seed, suggestions[j].User.ID)
	})
}

// Paginate slices items for the requested page and reports the totals the
// REST surface exposes. Pages are 1-based; pageSize defaults to 10.
func Paginate(tweets []model.TweetDTO, page, pageSize int) model.FeedPage {
	if pageSize <= 0 {
		pageSize = 10
	}
	if page <= 0 {
		page = 1
	}

	total := len(tweets)
	totalPages := (total + pageSize - 1) / pageSize

	offset := (page - 1) * pageSize
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}

	items := tweets[offset:end]
	if items == nil {
		items = []model.TweetDTO{}
	}

	return model.FeedPage{
		Tweets:      items,
		TotalTweets: total,
		TotalPages:  totalPages,
		HasMore:     page < totalPages,
	}
}
