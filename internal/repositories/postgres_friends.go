package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/connecthub/backend/internal/db"
	"github.com/connecthub/backend/internal/models"
)

// PostgresFriendRepository provides PostgreSQL-backed persistence for friend
// requests and the undirected friendship edge set.
type PostgresFriendRepository struct {
	pool db.Pool
}

// NewPostgresFriendRepository constructs a friend repository backed by PostgreSQL.
func NewPostgresFriendRepository(pool db.Pool) *PostgresFriendRepository {
	return &PostgresFriendRepository{pool: pool}
}

// CreateRequest persists a pending friend request. An existing request for
// the same (sender, receiver) pair leaves the table unchanged.
func (r *PostgresFriendRepository) CreateRequest(ctx context.Context, request models.FriendRequest) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friend_requests (id, sender_id, receiver_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (sender_id, receiver_id) DO NOTHING
    `, request.ID, request.SenderID, request.ReceiverID, request.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert friend request: %w", err)
	}

	return nil
}

// AcceptRequest consumes the request edge and records the friendship, both in
// one transaction. The DELETE is guarded by the receiver so two concurrent
// accepts serialize: only the caller that removes the row inserts the edge.
func (r *PostgresFriendRepository) AcceptRequest(ctx context.Context, requestID, actingProfileID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin accept transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var senderID, receiverID string
	err = tx.QueryRow(ctx, `
        DELETE FROM friend_requests
        WHERE id = $1 AND receiver_id = $2
        RETURNING sender_id, receiver_id
    `, requestID, actingProfileID).Scan(&senderID, &receiverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Missing request or acting profile is not the receiver; both are
			// silent no-ops.
			return false, nil
		}
		return false, fmt.Errorf("consume friend request: %w", err)
	}

	a, b := orderedPair(senderID, receiverID)
	if _, err := tx.Exec(ctx, `
        INSERT INTO friendships (profile_a, profile_b, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (profile_a, profile_b) DO NOTHING
    `, a, b); err != nil {
		return false, fmt.Errorf("insert friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit accept transaction: %w", err)
	}

	return true, nil
}

// DeclineRequest deletes the request edge when the acting profile is its receiver.
func (r *PostgresFriendRepository) DeclineRequest(ctx context.Context, requestID, actingProfileID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM friend_requests
        WHERE id = $1 AND receiver_id = $2
    `, requestID, actingProfileID)
	if err != nil {
		return false, fmt.Errorf("delete friend request: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Unfriend removes the undirected edge between the two profiles. Removing an
// absent edge is not an error.
func (r *PostgresFriendRepository) Unfriend(ctx context.Context, profileID, otherProfileID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	a, b := orderedPair(profileID, otherProfileID)
	if _, err := conn.Exec(ctx, `
        DELETE FROM friendships
        WHERE profile_a = $1 AND profile_b = $2
    `, a, b); err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}

	return nil
}

// ListFriends returns the profiles on the other side of every friendship edge
// touching the given profile.
func (r *PostgresFriendRepository) ListFriends(ctx context.Context, profileID string) ([]models.Profile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, profileColumns+`
        JOIN friendships f
          ON pr.id = CASE WHEN f.profile_a = $1 THEN f.profile_b ELSE f.profile_a END
        WHERE f.profile_a = $1 OR f.profile_b = $1
        ORDER BY pr.id
    `, profileID)
	if err != nil {
		return nil, fmt.Errorf("query friends: %w", err)
	}
	defer rows.Close()

	var friends []models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}

	return friends, nil
}

// ListIncomingRequests returns pending requests addressed to the profile,
// newest first, with the sender's username for display.
func (r *PostgresFriendRepository) ListIncomingRequests(ctx context.Context, profileID string) ([]models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT fr.id, fr.sender_id, fr.receiver_id, ac.username, fr.created_at
        FROM friend_requests fr
        JOIN profiles pr ON pr.id = fr.sender_id
        JOIN accounts ac ON ac.id = pr.account_id
        WHERE fr.receiver_id = $1
        ORDER BY fr.created_at DESC, fr.id
    `, profileID)
	if err != nil {
		return nil, fmt.Errorf("query incoming requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var req models.FriendRequest
		if err := rows.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.SenderUsername, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan incoming request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incoming requests: %w", err)
	}

	return requests, nil
}

// orderedPair normalizes an undirected edge so (A,B) and (B,A) address the
// same friendship row.
func orderedPair(x, y string) (string, string) {
	if x < y {
		return x, y
	}
	return y, x
}
