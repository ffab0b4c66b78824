package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address はウィッシュリストの配送先住所を表す。
type Address struct {
	StreetAddress string
	AddressLine2  string
	City          string
	State         string
	ZipCode       string
}

// Wishlist はユーザーが所有するウィッシュリストを表す。
type Wishlist struct {
	ID        string
	UserID    string
	Name      string
	Address   Address
	IsLocked  bool
	Deletion  Deletion
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WishlistItem はウィッシュリストに含まれるアイテムを表す。
// Priceは正の値、Quantityは1以上。
type WishlistItem struct {
	ID         string
	WishlistID string
	ItemName   string
	Price      decimal.Decimal
	Quantity   int
	URL        string
	ImageURL   string
	Deletion   Deletion
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WishlistWithItems はウィッシュリストと未削除アイテムの組。
type WishlistWithItems struct {
	Wishlist Wishlist
	Items    []WishlistItem
}

// DefaultItemQuantity は数量が省略されたときの値。
const DefaultItemQuantity = 1

// ItemInput はアイテム作成・更新の入力値。
// Quantityがnilの場合は省略を表し、0とは区別する。
type ItemInput struct {
	ItemName string
	Price    decimal.Decimal
	Quantity *int
	URL      string
	ImageURL string
}

// QuantityOrDefault は数量を返す。省略時はDefaultItemQuantity。
func (in ItemInput) QuantityOrDefault() int {
	if in.Quantity == nil {
		return DefaultItemQuantity
	}
	return *in.Quantity
}

// ShareDuration は共有リンクの有効期間の選択肢。
type ShareDuration string

const (
	ShareOneHour      ShareDuration = "ONE_HOUR"
	ShareOneDay       ShareDuration = "ONE_DAY"
	ShareSevenDays    ShareDuration = "SEVEN_DAYS"
	ShareFourteenDays ShareDuration = "FOURTEEN_DAYS"
	ShareThirtyDays   ShareDuration = "THIRTY_DAYS"
	ShareNinetyDays   ShareDuration = "NINETY_DAYS"
	ShareNever        ShareDuration = "NEVER"
)

// DefaultShareDuration は期間未指定時に使う有効期間。
const DefaultShareDuration = ShareThirtyDays

var shareDurations = map[ShareDuration]time.Duration{
	ShareOneHour:      time.Hour,
	ShareOneDay:       24 * time.Hour,
	ShareSevenDays:    7 * 24 * time.Hour,
	ShareFourteenDays: 14 * 24 * time.Hour,
	ShareThirtyDays:   30 * 24 * time.Hour,
	ShareNinetyDays:   90 * 24 * time.Hour,
	ShareNever:        0,
}

// Valid は定義済みの有効期間かを返す。
func (d ShareDuration) Valid() bool {
	_, ok := shareDurations[d]
	return ok
}

// ExpiresAt はnowを起点にした有効期限を返す。NEVERの場合はnilを返す。
func (d ShareDuration) ExpiresAt(now time.Time) *time.Time {
	dur, ok := shareDurations[d]
	if !ok || d == ShareNever {
		return nil
	}
	t := now.Add(dur)
	return &t
}

// SharedWishlist はウィッシュリストの公開共有リンクを表す。
// ExpiresAtがnilの場合は無期限。
type SharedWishlist struct {
	ID           string
	WishlistID   string
	DurationType ShareDuration
	ExpiresAt    *time.Time
	Deletion     Deletion
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Live は共有リンクが未削除かつ期限内かを返す。
func (s *SharedWishlist) Live(now time.Time) bool {
	if s.Deletion.IsDeleted() {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// SharedItem は共有ページで公開するアイテムの読み取り専用射影。
type SharedItem struct {
	ItemName string
	URL      string
	Price    decimal.Decimal
	Quantity int
}

// SharedWishlistView は共有ページの表示内容。
type SharedWishlistView struct {
	WishlistName string
	Items        []SharedItem
}
