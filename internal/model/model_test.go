package model

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestDeletion_ZeroValueIsActive(t *testing.T) {
	var d Deletion
	if d.IsDeleted() {
		t.Error("zero Deletion should be active")
	}
	if _, ok := d.At(); ok {
		t.Error("At() on active deletion should report false")
	}
}

func TestDeletionFromNullTime(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if DeletionFromNullTime(sql.NullTime{}).IsDeleted() {
		t.Error("NULL deleted_at should be active")
	}

	d := DeletionFromNullTime(sql.NullTime{Time: now, Valid: true})
	if !d.IsDeleted() {
		t.Fatal("non-NULL deleted_at should be deleted")
	}
	at, ok := d.At()
	if !ok || !at.Equal(now) {
		t.Errorf("At() = %v, %v, want %v, true", at, ok, now)
	}
}

func TestShareDuration_ExpiresAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		duration ShareDuration
		want     time.Duration
	}{
		{ShareOneHour, time.Hour},
		{ShareOneDay, 24 * time.Hour},
		{ShareSevenDays, 7 * 24 * time.Hour},
		{ShareFourteenDays, 14 * 24 * time.Hour},
		{ShareThirtyDays, 30 * 24 * time.Hour},
		{ShareNinetyDays, 90 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(string(tt.duration), func(t *testing.T) {
			got := tt.duration.ExpiresAt(now)
			if got == nil {
				t.Fatal("ExpiresAt returned nil")
			}
			if !got.Equal(now.Add(tt.want)) {
				t.Errorf("ExpiresAt = %v, want %v", got, now.Add(tt.want))
			}
		})
	}

	if ShareNever.ExpiresAt(now) != nil {
		t.Error("NEVER should not expire")
	}
	if ShareDuration("FOREVER").Valid() {
		t.Error("unknown duration should be invalid")
	}
}

func TestSharedWishlist_Live(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name  string
		share SharedWishlist
		want  bool
	}{
		{"無期限", SharedWishlist{}, true},
		{"期限内", SharedWishlist{ExpiresAt: &future}, true},
		{"期限切れ", SharedWishlist{ExpiresAt: &past}, false},
		{"期限ちょうど", SharedWishlist{ExpiresAt: &now}, false},
		{"削除済み", SharedWishlist{Deletion: DeletedAt(past)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.share.Live(now); got != tt.want {
				t.Errorf("Live() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindLocked, http.StatusLocked},
		{KindNotCreated, http.StatusUnprocessableEntity},
		{KindValidation, http.StatusBadRequest},
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindTooLarge, http.StatusRequestEntityTooLarge},
		{KindUnexpected, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusForKind(tt.kind); got != tt.want {
			t.Errorf("StatusForKind(%q) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestIsKind_WrappedError(t *testing.T) {
	err := fmt.Errorf("failed to rename wishlist: %w", NewWishlistLockedError("w-1"))
	if !IsKind(err, KindLocked) {
		t.Error("wrapped locked error should be detected")
	}
	if IsKind(err, KindNotFound) {
		t.Error("locked error should not match not_found")
	}
	if IsKind(fmt.Errorf("plain"), KindUnexpected) {
		t.Error("plain error should not match any kind")
	}
}

func TestParseProvider(t *testing.T) {
	for _, s := range []string{"google", "github", "discord"} {
		if _, ok := ParseProvider(s); !ok {
			t.Errorf("ParseProvider(%q) should succeed", s)
		}
	}
	if _, ok := ParseProvider("facebook"); ok {
		t.Error("ParseProvider(facebook) should fail")
	}
}
