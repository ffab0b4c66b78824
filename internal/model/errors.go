package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はトランスポートに依存しないエラー種別を表す。
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindLocked          Kind = "locked"
	KindNotCreated      Kind = "not_created"
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindTooLarge        Kind = "too_large"
	KindUnexpected      Kind = "unexpected"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     Kind              // エラー種別
	Code     string            // エラーコード
	Message  string            // エラーメッセージ（errorCauseとしてクライアントに返す）
	Category string            // カテゴリ: auth, validation, wishlist, share, system
	Action   string            // ユーザー向け対処方法
	Fields   map[string]string // フィールド単位のバリデーションメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// AsAPIError はエラーチェーンから*APIErrorを取り出す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind はエラーチェーンに指定種別の*APIErrorが含まれるかを判定する。
func IsKind(err error, kind Kind) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == kind
}

// StatusForKind はエラー種別をHTTPステータスコードに変換する。
func StatusForKind(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindLocked:
		return http.StatusLocked
	case KindNotCreated:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// 定義済みエラーコード
const (
	ErrCodeWishlistNotFound            = "WISHLIST_NOT_FOUND"
	ErrCodeWishlistLocked              = "WISHLIST_LOCKED"
	ErrCodeWishlistNotCreated          = "WISHLIST_NOT_CREATED"
	ErrCodeItemNotFound                = "ITEM_NOT_FOUND"
	ErrCodeItemNotCreated              = "ITEM_NOT_CREATED"
	ErrCodeShareNotFound               = "SHARE_NOT_FOUND"
	ErrCodeShareNotCreated             = "SHARE_NOT_CREATED"
	ErrCodeSessionNotCreated           = "SESSION_NOT_CREATED"
	ErrCodeUserNotFound                = "USER_NOT_FOUND"
	ErrCodeUserNotCreated              = "USER_NOT_CREATED"
	ErrCodeGuestNotFound               = "GUEST_NOT_FOUND"
	ErrCodeOAuthFailed                 = "OAUTH_FAILED"
	ErrCodeProviderNotFound            = "PROVIDER_NOT_FOUND"
	ErrCodeValidation                  = "VALIDATION_FAILED"
	ErrCodeRequestTooLarge             = "REQUEST_TOO_LARGE"
	ErrCodeUnauthenticated             = "UNAUTHENTICATED"
	ErrCodeEmailVerificationNotFound   = "EMAIL_VERIFICATION_NOT_FOUND"
	ErrCodeEmailVerificationNotCreated = "EMAIL_VERIFICATION_NOT_CREATED"
	ErrCodeInternal                    = "INTERNAL_ERROR"
)

// NewWishlistNotFoundError はウィッシュリスト未検出エラーを生成する。
// 他人のウィッシュリストと存在しないウィッシュリストを区別しない。
func NewWishlistNotFoundError(wishlistID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeWishlistNotFound,
		Message:  fmt.Sprintf("Wishlist not found: %s", wishlistID),
		Category: "wishlist",
		Action:   "ウィッシュリストIDを確認してください。",
	}
}

// NewWishlistLockedError はロック中のウィッシュリストへの変更エラーを生成する。
func NewWishlistLockedError(wishlistID string) *APIError {
	return &APIError{
		Kind:     KindLocked,
		Code:     ErrCodeWishlistLocked,
		Message:  fmt.Sprintf("Wishlist is locked: %s", wishlistID),
		Category: "wishlist",
		Action:   "ロックを解除してから再度お試しください。",
	}
}

// NewWishlistNotCreatedError はウィッシュリスト作成失敗エラーを生成する。
func NewWishlistNotCreatedError(reason string) *APIError {
	return &APIError{
		Kind:     KindNotCreated,
		Code:     ErrCodeWishlistNotCreated,
		Message:  fmt.Sprintf("Failed to create wishlist: %s", reason),
		Category: "wishlist",
		Action:   "ゲストユーザーはウィッシュリストを1件のみ作成できます。サインインしてください。",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("Item not found: %s", itemID),
		Category: "wishlist",
		Action:   "アイテムIDを確認してください。",
	}
}

// NewItemNotCreatedError はアイテム作成失敗エラーを生成する。
func NewItemNotCreatedError() *APIError {
	return &APIError{
		Kind:     KindNotCreated,
		Code:     ErrCodeItemNotCreated,
		Message:  "Failed to create item",
		Category: "wishlist",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewShareNotFoundError は共有リンク未検出エラーを生成する。
// 期限切れ・削除済みの共有リンクも同じエラーになる。
func NewShareNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeShareNotFound,
		Message:  "Shared wishlist not found",
		Category: "share",
		Action:   "共有リンクの有効期限が切れている可能性があります。共有元に確認してください。",
	}
}

// NewShareNotCreatedError は共有リンク作成失敗エラーを生成する。
func NewShareNotCreatedError() *APIError {
	return &APIError{
		Kind:     KindNotCreated,
		Code:     ErrCodeShareNotCreated,
		Message:  "Failed to create share link",
		Category: "share",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSessionNotCreatedError はセッション作成失敗エラーを生成する。
func NewSessionNotCreatedError() *APIError {
	return &APIError{
		Kind:     KindNotCreated,
		Code:     ErrCodeSessionNotCreated,
		Message:  "Failed to create session",
		Category: "auth",
		Action:   "もう一度サインインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUserNotCreatedError はユーザー作成失敗エラーを生成する。
func NewUserNotCreatedError() *APIError {
	return &APIError{
		Kind:     KindNotCreated,
		Code:     ErrCodeUserNotCreated,
		Message:  "Failed to create user",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewGuestNotFoundError は昇格対象のゲストユーザーが見つからない場合のエラーを生成する。
func NewGuestNotFoundError() *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeGuestNotFound,
		Message:  "Guest user not found",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度サインインしてください。",
	}
}

// NewOAuthFailedError はOAuthコールバックの検証・トークン交換に失敗した場合のエラーを生成する。
func NewOAuthFailedError(reason string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeOAuthFailed,
		Message:  fmt.Sprintf("OAuth sign-in failed: %s", reason),
		Category: "auth",
		Action:   "もう一度サインインしてください。",
	}
}

// NewProviderNotFoundError は未対応または無効なOAuthプロバイダーが指定された場合のエラーを生成する。
func NewProviderNotFoundError(name string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeProviderNotFound,
		Message:  fmt.Sprintf("Sign-in provider not found: %s", name),
		Category: "auth",
		Action:   "別の方法でサインインしてください。",
	}
}

// NewValidationError は入力バリデーションエラーを生成する。
// fieldsにはフィールド名ごとのメッセージを格納する。
func NewValidationError(message string, fields map[string]string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
		Fields:   fields,
	}
}

// NewRequestTooLargeError はリクエストボディが上限を超えた場合のエラーを生成する。
func NewRequestTooLargeError(limit int64) *APIError {
	return &APIError{
		Kind:     KindTooLarge,
		Code:     ErrCodeRequestTooLarge,
		Message:  fmt.Sprintf("Request body exceeds %d bytes", limit),
		Category: "validation",
		Action:   "入力内容を短くしてください。",
	}
}

// NewUnauthenticatedError は認証が必要な操作での未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Kind:     KindUnauthenticated,
		Code:     ErrCodeUnauthenticated,
		Message:  "Authentication required",
		Category: "auth",
		Action:   "サインインしてください。",
	}
}

// NewEmailVerificationNotFoundError は有効な確認リクエストがない場合のエラーを生成する。
// コード不一致・期限切れも同じエラーとして扱う。
func NewEmailVerificationNotFoundError() *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeEmailVerificationNotFound,
		Message:  "Invalid or expired verification code",
		Category: "auth",
		Action:   "確認コードを再発行してください。",
	}
}

// NewEmailVerificationNotCreatedError は確認リクエスト作成失敗エラーを生成する。
func NewEmailVerificationNotCreatedError() *APIError {
	return &APIError{
		Kind:     KindNotCreated,
		Code:     ErrCodeEmailVerificationNotCreated,
		Message:  "Failed to create email verification request",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はクライアントに返さない。
func NewInternalError() *APIError {
	return &APIError{
		Kind:     KindUnexpected,
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
