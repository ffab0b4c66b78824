package model

import (
	"database/sql"
	"time"
)

// Deletion は論理削除の状態を表す。
// ゼロ値はActive。削除済みの場合のみ削除日時を持つ。
// 削除判定は必ずIsDeletedを通して行う。
type Deletion struct {
	deletedAt *time.Time
}

// Active は未削除状態を返す。
func Active() Deletion {
	return Deletion{}
}

// DeletedAt は指定日時に削除された状態を返す。
func DeletedAt(at time.Time) Deletion {
	return Deletion{deletedAt: &at}
}

// DeletionFromNullTime はDBのdeleted_atカラムからDeletionを生成する。
func DeletionFromNullTime(t sql.NullTime) Deletion {
	if !t.Valid {
		return Active()
	}
	return DeletedAt(t.Time)
}

// IsDeleted は論理削除済みかを返す。
func (d Deletion) IsDeleted() bool {
	return d.deletedAt != nil
}

// At は削除日時を返す。未削除の場合はfalseを返す。
func (d Deletion) At() (time.Time, bool) {
	if d.deletedAt == nil {
		return time.Time{}, false
	}
	return *d.deletedAt, true
}
