package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"go.opentelemetry.io/otel/trace"

	"chirp/model"
	"chirp/repository"
)

type SQLiteUserRepository struct {
	tracer trace.Tracer
	store  *Store
}

func NewSQLiteUserRepository(store *Store, tracer trace.Tracer) *SQLiteUserRepository {
	return &SQLiteUserRepository{
		tracer: tracer,
		store:  store,
	}
}

const userColumns = "id, username, email, password_hash, display_name, bio, avatar, is_private, verified, created_at"

// qualifiedUserColumns disambiguates the user columns in queries that join
// users against tables sharing column names (id, created_at).
const qualifiedUserColumns = "users.id, users.username, users.email, users.password_hash, users.display_name, users.bio, users.avatar, users.is_private, users.verified, users.created_at"

func (r *SQLiteUserRepository) SaveUser(ctx context.Context, user *model.User) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteUserRepository.SaveUser")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.DisplayName,
		user.Bio, user.Avatar, user.IsPrivate, user.Verified, encodeTime(user.CreatedAt))
	if isUniqueViolation(err) {
		return repository.ErrAlreadyExists
	}

	return err
}

func (r *SQLiteUserRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteUserRepository.GetUser")
	defer span.End()

	return r.getUserWhere(repoCtx, "id = ?", id)
}

func (r *SQLiteUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteUserRepository.GetUserByUsername")
	defer span.End()

	return r.getUserWhere(repoCtx, "username = ?", username)
}

func (r *SQLiteUserRepository) getUserWhere(ctx context.Context, where string, arg any) (*model.User, error) {
	row := r.store.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return u, nil
}

func (r *SQLiteUserRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteUserRepository.UpdateProfile")
	defer span.End()

	res, err := r.store.db.ExecContext(repoCtx,
		"UPDATE users SET display_name = ?, bio = ?, avatar = ?, is_private = ? WHERE id = ?",
		user.DisplayName, user.Bio, user.Avatar, user.IsPrivate, user.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteUserRepository) MarkVerified(ctx context.Context, id string) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteUserRepository.MarkVerified")
	defer span.End()

	res, err := r.store.db.ExecContext(repoCtx, "UPDATE users SET verified = 1 WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SQLiteUserRepository) GetProfile(ctx context.Context, username string, viewerID string) (*model.ProfileDTO, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteUserRepository.GetProfile")
	defer span.End()

	row := r.store.db.QueryRowContext(repoCtx, `
		SELECT `+userColumns+`,
			(SELECT COUNT(*) FROM follows f WHERE f.following_id = users.id) AS followers_count,
			(SELECT COUNT(*) FROM follows f WHERE f.follower_id = users.id)  AS following_count,
			(SELECT COUNT(*) FROM tweets t WHERE t.author_id = users.id)     AS tweets_count,
			EXISTS(SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.following_id = users.id) AS is_following,
			EXISTS(SELECT 1 FROM follow_requests fr WHERE fr.sender_id = ? AND fr.recipient_id = users.id) AS request_pending
		FROM users WHERE username = ?`,
		viewerID, viewerID, username)

	var p model.ProfileDTO
	var createdAt int64

	err := row.Scan(&p.User.ID, &p.User.Username, &p.User.Email, &p.User.PasswordHash,
		&p.User.DisplayName, &p.User.Bio, &p.User.Avatar, &p.User.IsPrivate, &p.User.Verified, &createdAt,
		&p.FollowersCount, &p.FollowingCount, &p.TweetsCount, &p.IsFollowing, &p.RequestPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.User.CreatedAt = decodeTime(createdAt)
	return &p, nil
}

func (r *SQLiteUserRepository) SearchUsers(ctx context.Context, query string, limit, offset int) ([]model.User, int, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteUserRepository.SearchUsers")
	defer span.End()

	pattern := "%" + escapeLike(query) + "%"

	var total int
	err := r.store.db.QueryRowContext(repoCtx,
		`SELECT COUNT(*) FROM users WHERE username LIKE ? ESCAPE '\' OR display_name LIKE ? ESCAPE '\'`,
		pattern, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.store.db.QueryContext(repoCtx,
		"SELECT "+userColumns+` FROM users
			WHERE username LIKE ? ESCAPE '\' OR display_name LIKE ? ESCAPE '\'
			ORDER BY username ASC LIMIT ? OFFSET ?`,
		pattern, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}

	return users, total, rows.Err()
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var createdAt int64

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.Bio, &u.Avatar, &u.IsPrivate, &u.Verified, &createdAt)
	if err != nil {
		return nil, err
	}

	u.CreatedAt = decodeTime(createdAt)
	return &u, nil
}
