package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/connecthub/backend/internal/db"
	"github.com/connecthub/backend/internal/logging"
	"github.com/connecthub/backend/internal/models"
)

// PostgresPostRepository provides PostgreSQL-backed persistence for posts,
// their media, and likes.
type PostgresPostRepository struct {
	pool db.Pool
}

// NewPostgresPostRepository constructs a post repository backed by PostgreSQL.
func NewPostgresPostRepository(pool db.Pool) *PostgresPostRepository {
	return &PostgresPostRepository{pool: pool}
}

// Create stores the post and all attached media rows in one transaction, so a
// failed media insert never strands a bare post.
func (r *PostgresPostRepository) Create(ctx context.Context, post models.Post) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin post transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO posts (id, profile_id, caption, created_at)
        VALUES ($1, $2, $3, $4)
    `, post.ID, post.ProfileID, post.Caption, post.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", wrapFKViolation(err))
	}

	for _, m := range post.Media {
		_, err = tx.Exec(ctx, `
            INSERT INTO post_media (id, post_id, file_url, is_video)
            VALUES ($1, $2, $3, $4)
        `, m.ID, post.ID, m.FileURL, m.IsVideo)
		if err != nil {
			return fmt.Errorf("insert post media: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit post transaction: %w", err)
	}

	return nil
}

// ToggleLike flips the like edge for (post, profile) and reports the new
// state. The transaction keeps the count consistent with the flip.
func (r *PostgresPostRepository) ToggleLike(ctx context.Context, postID, profileID string) (models.LikeResult, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.LikeResult{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.LikeResult{}, fmt.Errorf("begin like transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists); err != nil {
		return models.LikeResult{}, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return models.LikeResult{}, ErrNotFound
	}

	tag, err := tx.Exec(ctx, `
        DELETE FROM post_likes
        WHERE post_id = $1 AND profile_id = $2
    `, postID, profileID)
	if err != nil {
		return models.LikeResult{}, fmt.Errorf("delete like: %w", err)
	}

	result := models.LikeResult{Liked: tag.RowsAffected() == 0}
	if result.Liked {
		if _, err := tx.Exec(ctx, `
            INSERT INTO post_likes (post_id, profile_id, created_at)
            VALUES ($1, $2, NOW())
            ON CONFLICT (post_id, profile_id) DO NOTHING
        `, postID, profileID); err != nil {
			return models.LikeResult{}, fmt.Errorf("insert like: %w", wrapFKViolation(err))
		}
	}

	if err := tx.QueryRow(ctx, `
        SELECT count(*) FROM post_likes WHERE post_id = $1
    `, postID).Scan(&result.TotalLikes); err != nil {
		return models.LikeResult{}, fmt.Errorf("count likes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.LikeResult{}, fmt.Errorf("commit like transaction: %w", err)
	}

	return result, nil
}

// Delete removes a post owned by the acting account, cascading to media and likes.
func (r *PostgresPostRepository) Delete(ctx context.Context, postID, actingAccountID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return deleteOwned(ctx, conn, "posts", postID, actingAccountID)
}

// ListFeed returns every post, newest first, with media, like counts, and the
// viewer's like state.
func (r *PostgresPostRepository) ListFeed(ctx context.Context, viewerProfileID string) ([]models.Post, error) {
	ctx, span := logging.StartSpan(ctx, "posts.list_feed")
	defer span.End()

	return r.listPosts(ctx, ``, viewerProfileID)
}

// ListByProfile returns the posts owned by one profile, newest first.
func (r *PostgresPostRepository) ListByProfile(ctx context.Context, profileID, viewerProfileID string) ([]models.Post, error) {
	return r.listPosts(ctx, `WHERE po.profile_id = $2`, viewerProfileID, profileID)
}

func (r *PostgresPostRepository) listPosts(ctx context.Context, where string, args ...any) ([]models.Post, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT po.id, po.profile_id, ac.username, po.caption, po.created_at,
               (SELECT count(*) FROM post_likes pl WHERE pl.post_id = po.id) AS like_count,
               EXISTS(SELECT 1 FROM post_likes pl WHERE pl.post_id = po.id AND pl.profile_id = $1) AS liked
        FROM posts po
        JOIN profiles pr ON pr.id = po.profile_id
        JOIN accounts ac ON ac.id = pr.account_id
    `+where+`
        ORDER BY po.created_at DESC, po.id DESC
    `, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.ProfileID, &post.AuthorUsername, &post.Caption, &post.CreatedAt, &post.LikeCount, &post.LikedByViewer); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	if err := r.attachMedia(ctx, conn, posts); err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *PostgresPostRepository) attachMedia(ctx context.Context, conn queryer, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
		index[post.ID] = i
	}

	rows, err := conn.Query(ctx, `
        SELECT id, post_id, file_url, is_video
        FROM post_media
        WHERE post_id = ANY($1)
        ORDER BY id
    `, ids)
	if err != nil {
		return fmt.Errorf("query post media: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.PostMedia
		if err := rows.Scan(&m.ID, &m.PostID, &m.FileURL, &m.IsVideo); err != nil {
			return fmt.Errorf("scan post media: %w", err)
		}
		if i, ok := index[m.PostID]; ok {
			posts[i].Media = append(posts[i].Media, m)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate post media: %w", err)
	}

	return nil
}

// PostgresStoryRepository provides PostgreSQL-backed persistence for stories.
type PostgresStoryRepository struct {
	pool db.Pool
}

// NewPostgresStoryRepository constructs a story repository backed by PostgreSQL.
func NewPostgresStoryRepository(pool db.Pool) *PostgresStoryRepository {
	return &PostgresStoryRepository{pool: pool}
}

// Create stores a new story record.
func (r *PostgresStoryRepository) Create(ctx context.Context, story models.Story) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO stories (id, profile_id, image_url, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, story.ID, story.ProfileID, story.ImageURL, story.IsActive, story.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert story: %w", wrapFKViolation(err))
	}

	return nil
}

// Delete removes a story owned by the acting account.
func (r *PostgresStoryRepository) Delete(ctx context.Context, storyID, actingAccountID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return deleteOwned(ctx, conn, "stories", storyID, actingAccountID)
}

// ListActive returns active stories, newest first.
func (r *PostgresStoryRepository) ListActive(ctx context.Context) ([]models.Story, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT st.id, st.profile_id, ac.username, st.image_url, st.is_active, st.created_at
        FROM stories st
        JOIN profiles pr ON pr.id = st.profile_id
        JOIN accounts ac ON ac.id = pr.account_id
        WHERE st.is_active
        ORDER BY st.created_at DESC, st.id DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		var story models.Story
		if err := rows.Scan(&story.ID, &story.ProfileID, &story.AuthorUsername, &story.ImageURL, &story.IsActive, &story.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, story)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}

	return stories, nil
}

// deleteOwned removes a row from table by id, but only when the acting
// account owns it through the profile link. The ownership check and delete
// share one transaction so concurrent deletes serialize.
func deleteOwned(ctx context.Context, conn txBeginner, table, id, actingAccountID string) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ownerAccountID string
	err = tx.QueryRow(ctx, `
        SELECT pr.account_id
        FROM `+table+` t
        JOIN profiles pr ON pr.id = t.profile_id
        WHERE t.id = $1
        FOR UPDATE OF t
    `, id).Scan(&ownerAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select %s owner: %w", table, err)
	}

	if ownerAccountID != actingAccountID {
		return ErrForbidden
	}

	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}

	return tx.Commit(ctx)
}

func wrapFKViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrNotFound
	}
	return err
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

var _ ProfileRepository = (*PostgresProfileRepository)(nil)
var _ FriendRepository = (*PostgresFriendRepository)(nil)
var _ PostRepository = (*PostgresPostRepository)(nil)
var _ StoryRepository = (*PostgresStoryRepository)(nil)
