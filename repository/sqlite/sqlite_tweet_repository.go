package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"chirp/model"
	"chirp/repository"
)

type SQLiteTweetRepository struct {
	tracer trace.Tracer
	store  *Store
}

func NewSQLiteTweetRepository(store *Store, tracer trace.Tracer) *SQLiteTweetRepository {
	return &SQLiteTweetRepository{
		tracer: tracer,
		store:  store,
	}
}

// tweetDTOColumns selects a tweet together with its aggregate counters and
// the viewer's liked flag. Counters come from correlated subqueries so a
// page of tweets is a single round trip, never one query per tweet.
const tweetDTOColumns = `
	t.id, t.author_id, u.username, t.content, t.image, t.parent_id, t.created_at,
	(SELECT COUNT(*) FROM likes l WHERE l.subject_id = t.id)      AS likes_count,
	(SELECT COUNT(*) FROM tweets r WHERE r.parent_id = t.id)      AS reposts_count,
	(SELECT COUNT(*) FROM comments c WHERE c.tweet_id = t.id)     AS comments_count,
	EXISTS(SELECT 1 FROM likes l WHERE l.subject_id = t.id AND l.user_id = ?) AS liked_by_me
FROM tweets t
JOIN users u ON u.id = t.author_id`

func (r *SQLiteTweetRepository) SaveTweet(ctx context.Context, tweet *model.Tweet) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.SaveTweet")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"INSERT INTO tweets (id, author_id, content, image, parent_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		tweet.ID, tweet.AuthorID, tweet.Content, tweet.Image, tweet.ParentID, encodeTime(tweet.CreatedAt))

	return err
}

func (r *SQLiteTweetRepository) FindTweet(ctx context.Context, id string) (*model.Tweet, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.FindTweet")
	defer span.End()

	var t model.Tweet
	var createdAt int64

	err := r.store.db.QueryRowContext(repoCtx,
		"SELECT id, author_id, content, image, parent_id, created_at FROM tweets WHERE id = ?", id).
		Scan(&t.ID, &t.AuthorID, &t.Content, &t.Image, &t.ParentID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t.CreatedAt = decodeTime(createdAt)
	return &t, nil
}

func (r *SQLiteTweetRepository) GetTweet(ctx context.Context, id string, viewerID string) (*model.TweetDTO, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.GetTweet")
	defer span.End()

	row := r.store.db.QueryRowContext(repoCtx,
		"SELECT "+tweetDTOColumns+" WHERE t.id = ?", viewerID, id)

	dto, err := scanTweetDTORow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return dto, nil
}

func (r *SQLiteTweetRepository) DeleteTweet(ctx context.Context, id string) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.DeleteTweet")
	defer span.End()

	// Likes reference tweets and comments through an untyped subject_id, so
	// the FK cascade cannot reach them; clean them up in the same transaction.
	tx, err := r.store.db.BeginTx(repoCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(repoCtx,
		"DELETE FROM likes WHERE subject_id = ? OR subject_id IN (SELECT id FROM comments WHERE tweet_id = ?)",
		id, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(repoCtx, "DELETE FROM tweets WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return tx.Commit()
}

func (r *SQLiteTweetRepository) GetFeedCandidates(ctx context.Context, viewerID string, mode repository.FeedMode) ([]model.TweetDTO, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.GetFeedCandidates")
	defer span.End()

	var where string
	var args []any

	switch mode {
	case repository.FeedModeFollowing:
		where = `WHERE t.author_id = ?
			OR EXISTS(SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.following_id = t.author_id)`
		args = []any{viewerID, viewerID, viewerID}
	default:
		where = `WHERE u.is_private = 0
			OR t.author_id = ?
			OR EXISTS(SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.following_id = t.author_id)`
		args = []any{viewerID, viewerID, viewerID}
	}

	rows, err := r.store.db.QueryContext(repoCtx, "SELECT "+tweetDTOColumns+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTweetDTOs(rows)
}

func (r *SQLiteTweetRepository) GetProfileTweets(ctx context.Context, authorID string, viewerID string) ([]model.TweetDTO, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.GetProfileTweets")
	defer span.End()

	rows, err := r.store.db.QueryContext(repoCtx,
		"SELECT "+tweetDTOColumns+" WHERE t.author_id = ? ORDER BY t.created_at DESC, t.id DESC",
		viewerID, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTweetDTOs(rows)
}

func (r *SQLiteTweetRepository) SearchTweets(ctx context.Context, query string, viewerID string) ([]model.TweetDTO, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.SearchTweets")
	defer span.End()

	pattern := "%" + escapeLike(query) + "%"

	rows, err := r.store.db.QueryContext(repoCtx,
		"SELECT "+tweetDTOColumns+` WHERE t.content LIKE ? ESCAPE '\'
			AND (u.is_private = 0
				OR t.author_id = ?
				OR EXISTS(SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.following_id = t.author_id))
			ORDER BY t.created_at DESC, t.id DESC`,
		viewerID, pattern, viewerID, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTweetDTOs(rows)
}

func (r *SQLiteTweetRepository) SaveLike(ctx context.Context, like *model.Like) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.SaveLike")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"INSERT INTO likes (user_id, subject_id, created_at) VALUES (?, ?, ?)",
		like.UserID, like.SubjectID, encodeTime(like.CreatedAt))
	if isUniqueViolation(err) {
		return repository.ErrAlreadyExists
	}

	return err
}

func (r *SQLiteTweetRepository) DeleteLike(ctx context.Context, userID, subjectID string) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.DeleteLike")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"DELETE FROM likes WHERE user_id = ? AND subject_id = ?", userID, subjectID)

	return err
}

func (r *SQLiteTweetRepository) GetLikes(ctx context.Context, subjectID string) ([]model.Like, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.GetLikes")
	defer span.End()

	rows, err := r.store.db.QueryContext(repoCtx,
		"SELECT user_id, subject_id, created_at FROM likes WHERE subject_id = ? ORDER BY created_at ASC",
		subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	likes := []model.Like{}
	for rows.Next() {
		var l model.Like
		var createdAt int64
		if err := rows.Scan(&l.UserID, &l.SubjectID, &createdAt); err != nil {
			return nil, err
		}
		l.CreatedAt = decodeTime(createdAt)
		likes = append(likes, l)
	}

	return likes, rows.Err()
}

func (r *SQLiteTweetRepository) SaveComment(ctx context.Context, comment *model.Comment) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.SaveComment")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"INSERT INTO comments (id, tweet_id, author_id, content, created_at) VALUES (?, ?, ?, ?, ?)",
		comment.ID, comment.TweetID, comment.AuthorID, comment.Content, encodeTime(comment.CreatedAt))

	return err
}

func (r *SQLiteTweetRepository) FindComment(ctx context.Context, id string) (*model.Comment, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.FindComment")
	defer span.End()

	var c model.Comment
	var createdAt int64

	err := r.store.db.QueryRowContext(repoCtx,
		"SELECT id, tweet_id, author_id, content, created_at FROM comments WHERE id = ?", id).
		Scan(&c.ID, &c.TweetID, &c.AuthorID, &c.Content, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.CreatedAt = decodeTime(createdAt)
	return &c, nil
}

func (r *SQLiteTweetRepository) GetComments(ctx context.Context, tweetID string) ([]model.Comment, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.GetComments")
	defer span.End()

	rows, err := r.store.db.QueryContext(repoCtx,
		"SELECT id, tweet_id, author_id, content, created_at FROM comments WHERE tweet_id = ? ORDER BY created_at ASC, id ASC",
		tweetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.TweetID, &c.AuthorID, &c.Content, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = decodeTime(createdAt)
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

func (r *SQLiteTweetRepository) DeleteComment(ctx context.Context, id string) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.DeleteComment")
	defer span.End()

	tx, err := r.store.db.BeginTx(repoCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(repoCtx, "DELETE FROM likes WHERE subject_id = ?", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(repoCtx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTweetDTORow(row rowScanner) (*model.TweetDTO, error) {
	var dto model.TweetDTO
	var createdAt int64

	err := row.Scan(&dto.ID, &dto.AuthorID, &dto.AuthorUsername, &dto.Content, &dto.Image,
		&dto.ParentID, &createdAt, &dto.LikesCount, &dto.RepostsCount, &dto.CommentsCount, &dto.LikedByMe)
	if err != nil {
		return nil, err
	}

	dto.CreatedAt = decodeTime(createdAt)
	return &dto, nil
}

func scanTweetDTOs(rows *sql.Rows) ([]model.TweetDTO, error) {
	tweets := []model.TweetDTO{}
	for rows.Next() {
		dto, err := scanTweetDTORow(rows)
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, *dto)
	}

	return tweets, rows.Err()
}

// escapeLike neutralizes LIKE wildcards in user-supplied search terms.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
