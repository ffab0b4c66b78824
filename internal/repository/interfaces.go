// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/wantify/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを連携情報付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGuestID はゲストIDでゲストユーザーを取得する。見つからない場合はnilを返す。
	FindByGuestID(ctx context.Context, guestID string) (*model.User, error)

	// CreateGuest はゲストユーザーを作成する。
	CreateGuest(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// PromoteGuest はゲストユーザーを同一IDのまま正規アカウントに昇格させ、
	// identityを同一トランザクションで紐付ける。
	// 対象のゲストが存在しない場合はnilを返す。
	PromoteGuest(ctx context.Context, guestID string, identity *model.Identity, now time.Time) (*model.User, error)

	// Withdraw はユーザーを退会済みにし、所有するウィッシュリストを
	// アイテム・共有リンクごと同一トランザクションで論理削除する。
	// ロック中のウィッシュリストがある場合はLockedエラーを返す。
	Withdraw(ctx context.Context, id string, now time.Time) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider model.Provider, providerUserID string) (*model.Identity, error)

	// ListByUserID はユーザーに紐付くidentityを返す。
	ListByUserID(ctx context.Context, userID string) ([]model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。論理削除済みも返す。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// Touch はlast_activity_atがprevのままの場合に限りnowへ更新する。
	// 他のリクエストが先に更新していた場合はfalseを返す。
	Touch(ctx context.Context, id string, prev, now time.Time) (bool, error)

	// SoftDelete はセッションを論理削除する。対象がなければfalseを返す。
	SoftDelete(ctx context.Context, id string, now time.Time) (bool, error)
}

// WishlistRepository はウィッシュリストの永続化インターフェース。
// 取得系は論理削除済みのレコードを返さない。
type WishlistRepository interface {
	// Create はウィッシュリストを作成する。
	Create(ctx context.Context, wishlist *model.Wishlist) error

	// FindOwned はユーザーが所有する未削除のウィッシュリストを取得する。
	// 存在しない場合と他人の所有の場合はどちらもnilを返す。
	FindOwned(ctx context.Context, id, userID string) (*model.Wishlist, error)

	// FindByID は未削除のウィッシュリストを所有者を問わず取得する。
	FindByID(ctx context.Context, id string) (*model.Wishlist, error)

	// ListByUserID はユーザーの未削除ウィッシュリストを作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]model.Wishlist, error)

	// CountByUserID はユーザーの未削除ウィッシュリスト数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// UpdateName はウィッシュリスト名を更新する。
	UpdateName(ctx context.Context, id, name string, now time.Time) error

	// UpdateLock はロック状態を更新する。
	UpdateLock(ctx context.Context, id string, locked bool, now time.Time) error

	// UpdateAddress は配送先住所を更新する。
	UpdateAddress(ctx context.Context, id string, addr model.Address, now time.Time) error

	// DeleteCascade はアイテム、共有リンク、ウィッシュリスト本体を
	// 同一トランザクションで論理削除する。
	DeleteCascade(ctx context.Context, id string, now time.Time) error
}

// ItemRepository はウィッシュリストアイテムの永続化インターフェース。
type ItemRepository interface {
	// Create はアイテムを作成する。
	Create(ctx context.Context, item *model.WishlistItem) error

	// FindByID はウィッシュリストに属する未削除アイテムを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, wishlistID, itemID string) (*model.WishlistItem, error)

	// ListByWishlistID はウィッシュリストの未削除アイテムを作成順で返す。
	ListByWishlistID(ctx context.Context, wishlistID string) ([]model.WishlistItem, error)

	// Update はアイテムの内容を更新する。
	Update(ctx context.Context, item *model.WishlistItem) error

	// SoftDelete はアイテムを論理削除する。対象がなければfalseを返す。
	SoftDelete(ctx context.Context, wishlistID, itemID string, now time.Time) (bool, error)
}

// ShareRepository は共有リンクの永続化インターフェース。
type ShareRepository interface {
	// FindActiveByWishlistID はウィッシュリストの未削除の共有リンクを取得する。
	// 期限切れかどうかは判定しない。見つからない場合はnilを返す。
	FindActiveByWishlistID(ctx context.Context, wishlistID string) (*model.SharedWishlist, error)

	// FindByID は共有リンクを取得する。論理削除済みも返す。
	FindByID(ctx context.Context, id string) (*model.SharedWishlist, error)

	// Create は共有リンクを作成する。
	Create(ctx context.Context, share *model.SharedWishlist) error

	// UpdateDuration は有効期間と有効期限を更新する。
	UpdateDuration(ctx context.Context, id string, duration model.ShareDuration, expiresAt *time.Time, now time.Time) error

	// SoftDelete は共有リンクを論理削除する。対象がなければfalseを返す。
	SoftDelete(ctx context.Context, id string, now time.Time) (bool, error)
}

// EmailVerificationRepository はメールアドレス確認リクエストの永続化インターフェース。
type EmailVerificationRepository interface {
	// Replace はユーザーの既存リクエストを削除し、新しいリクエストを作成する。
	Replace(ctx context.Context, req *model.EmailVerificationRequest) error

	// FindLatestByUserID はユーザーの最新リクエストを取得する。見つからない場合はnilを返す。
	FindLatestByUserID(ctx context.Context, userID string) (*model.EmailVerificationRequest, error)

	// Confirm はユーザーのメールアドレスを確認済みに更新し、
	// リクエストを同一トランザクションで削除する。
	Confirm(ctx context.Context, req *model.EmailVerificationRequest, now time.Time) error
}
