package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"chirp/model"
	"chirp/repository"
)

type SQLiteFollowRepository struct {
	tracer trace.Tracer
	store  *Store
}

func NewSQLiteFollowRepository(store *Store, tracer trace.Tracer) *SQLiteFollowRepository {
	return &SQLiteFollowRepository{
		tracer: tracer,
		store:  store,
	}
}

func (r *SQLiteFollowRepository) SaveFollow(ctx context.Context, followerID, followingID string) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.SaveFollow")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"INSERT INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)",
		followerID, followingID, encodeTime(time.Now()))
	if isUniqueViolation(err) {
		return repository.ErrAlreadyExists
	}

	return err
}

func (r *SQLiteFollowRepository) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.DeleteFollow")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"DELETE FROM follows WHERE follower_id = ? AND following_id = ?", followerID, followingID)

	return err
}

func (r *SQLiteFollowRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.IsFollowing")
	defer span.End()

	var following bool
	err := r.store.db.QueryRowContext(repoCtx,
		"SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?)",
		followerID, followingID).Scan(&following)

	return following, err
}

func (r *SQLiteFollowRepository) CountFollowers(ctx context.Context, userID string) (int, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.CountFollowers")
	defer span.End()

	var count int
	err := r.store.db.QueryRowContext(repoCtx,
		"SELECT COUNT(*) FROM follows WHERE following_id = ?", userID).Scan(&count)

	return count, err
}

func (r *SQLiteFollowRepository) GetFollowers(ctx context.Context, userID string) ([]model.User, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.GetFollowers")
	defer span.End()

	return r.listUsers(repoCtx,
		"SELECT "+qualifiedUserColumns+" FROM users JOIN follows f ON f.follower_id = users.id WHERE f.following_id = ? ORDER BY f.created_at DESC",
		userID)
}

func (r *SQLiteFollowRepository) GetFollowing(ctx context.Context, userID string) ([]model.User, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.GetFollowing")
	defer span.End()

	return r.listUsers(repoCtx,
		"SELECT "+qualifiedUserColumns+" FROM users JOIN follows f ON f.following_id = users.id WHERE f.follower_id = ? ORDER BY f.created_at DESC",
		userID)
}

func (r *SQLiteFollowRepository) GetFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.GetFollowerIDs")
	defer span.End()

	rows, err := r.store.db.QueryContext(repoCtx,
		"SELECT follower_id FROM follows WHERE following_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *SQLiteFollowRepository) listUsers(ctx context.Context, query string, arg any) ([]model.User, error) {
	rows, err := r.store.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	return users, rows.Err()
}

func (r *SQLiteFollowRepository) SaveFollowRequest(ctx context.Context, request *model.FollowRequest) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.SaveFollowRequest")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"INSERT INTO follow_requests (id, sender_id, recipient_id, created_at) VALUES (?, ?, ?, ?)",
		request.ID, request.SenderID, request.RecipientID, encodeTime(request.CreatedAt))
	if isUniqueViolation(err) {
		return repository.ErrAlreadyExists
	}

	return err
}

func (r *SQLiteFollowRepository) FindFollowRequest(ctx context.Context, id string) (*model.FollowRequest, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.FindFollowRequest")
	defer span.End()

	var fr model.FollowRequest
	var createdAt int64

	err := r.store.db.QueryRowContext(repoCtx,
		"SELECT id, sender_id, recipient_id, created_at FROM follow_requests WHERE id = ?", id).
		Scan(&fr.ID, &fr.SenderID, &fr.RecipientID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	fr.CreatedAt = decodeTime(createdAt)
	return &fr, nil
}

func (r *SQLiteFollowRepository) GetFollowRequests(ctx context.Context, recipientID string) ([]model.FollowRequest, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.GetFollowRequests")
	defer span.End()

	rows, err := r.store.db.QueryContext(repoCtx,
		"SELECT id, sender_id, recipient_id, created_at FROM follow_requests WHERE recipient_id = ? ORDER BY created_at DESC",
		recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []model.FollowRequest{}
	for rows.Next() {
		var fr model.FollowRequest
		var createdAt int64
		if err := rows.Scan(&fr.ID, &fr.SenderID, &fr.RecipientID, &createdAt); err != nil {
			return nil, err
		}
		fr.CreatedAt = decodeTime(createdAt)
		requests = append(requests, fr)
	}

	return requests, rows.Err()
}

func (r *SQLiteFollowRepository) AcceptFollowRequest(ctx context.Context, request *model.FollowRequest) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.AcceptFollowRequest")
	defer span.End()

	tx, err := r.store.db.BeginTx(repoCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(repoCtx, "DELETE FROM follow_requests WHERE id = ?", request.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	_, err = tx.ExecContext(repoCtx,
		"INSERT INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)",
		request.SenderID, request.RecipientID, encodeTime(time.Now()))
	if err != nil && !isUniqueViolation(err) {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteFollowRepository) DeleteFollowRequest(ctx context.Context, id string) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.DeleteFollowRequest")
	defer span.End()

	res, err := r.store.db.ExecContext(repoCtx, "DELETE FROM follow_requests WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetSuggestions computes, for every candidate the viewer could follow, the
// number of distinct accounts m with viewer->m and m->candidate edges. The
// viewer, accounts already followed, and private accounts are excluded.
// Ordering among equal mutual counts is left to the caller.
func (r *SQLiteFollowRepository) GetSuggestions(ctx context.Context, viewerID string, limit int) ([]model.SuggestionDTO, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteFollowRepository.GetSuggestions")
	defer span.End()

	rows, err := r.store.db.QueryContext(repoCtx, `
		SELECT `+userColumns+`,
			(SELECT COUNT(DISTINCT f1.following_id)
				FROM follows f1
				JOIN follows f2 ON f2.follower_id = f1.following_id
				WHERE f1.follower_id = ? AND f2.following_id = users.id) AS mutual_count
		FROM users
		WHERE users.id <> ?
			AND users.is_private = 0
			AND NOT EXISTS(SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.following_id = users.id)
		ORDER BY mutual_count DESC
		LIMIT ?`,
		viewerID, viewerID, viewerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suggestions := []model.SuggestionDTO{}
	for rows.Next() {
		var s model.SuggestionDTO
		var createdAt int64
		err := rows.Scan(&s.User.ID, &s.User.Username, &s.User.Email, &s.User.PasswordHash,
			&s.User.DisplayName, &s.User.Bio, &s.User.Avatar, &s.User.IsPrivate, &s.User.Verified,
			&createdAt, &s.MutualCount)
		if err != nil {
			return nil, err
		}
		s.User.CreatedAt = decodeTime(createdAt)
		suggestions = append(suggestions, s)
	}

	return suggestions, rows.Err()
}
