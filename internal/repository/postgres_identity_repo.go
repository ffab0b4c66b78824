package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/wantify/internal/model"
)

const identityColumns = `id, user_id, provider, provider_user_id, provider_username, created_at`

// PostgresIdentityRepo はPostgreSQLを使用したidentityリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider model.Provider, providerUserID string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+`
		 FROM identities
		 WHERE provider = $1 AND provider_user_id = $2`,
		string(provider), providerUserID,
	).Scan(&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderUserID, &identity.ProviderUsername, &identity.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	return identity, nil
}

// ListByUserID はユーザーに紐付くidentityを返す。
func (r *PostgresIdentityRepo) ListByUserID(ctx context.Context, userID string) ([]model.Identity, error) {
	return listIdentities(ctx, r.db, userID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func listIdentities(ctx context.Context, q queryer, userID string) ([]model.Identity, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+identityColumns+`
		 FROM identities
		 WHERE user_id = $1
		 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var identities []model.Identity
	for rows.Next() {
		var ident model.Identity
		if err := rows.Scan(&ident.ID, &ident.UserID, &ident.Provider, &ident.ProviderUserID, &ident.ProviderUsername, &ident.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate identities: %w", err)
	}
	return identities, nil
}

func insertIdentity(ctx context.Context, e execer, identity *model.Identity) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, provider_username, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		identity.ID, identity.UserID, string(identity.Provider), identity.ProviderUserID, identity.ProviderUsername, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
