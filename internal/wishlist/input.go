package wishlist

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/wantify/internal/model"
)

const (
	maxTextLength = 255
	maxURLLength  = 2048
)

// maxPrice はnumeric(10,2)に収まる最大値。
var maxPrice = decimal.RequireFromString("99999999.99")

// normalizeItem はアイテム入力を検証し、保存する形に整える。
// 名前はタグを除去、価格は小数点以下2桁に丸め、URLはホスト名を正規化する。
func (s *Service) normalizeItem(in model.ItemInput) (model.ItemInput, error) {
	fields := map[string]string{}

	in.ItemName = s.sanitizer.Sanitize(in.ItemName)
	switch {
	case in.ItemName == "":
		fields["itemName"] = "アイテム名を入力してください。"
	case len([]rune(in.ItemName)) > maxTextLength:
		fields["itemName"] = "255文字以内で入力してください。"
	}

	in.Price = in.Price.Round(2)
	switch {
	case !in.Price.IsPositive():
		fields["itemCost"] = "0より大きい金額を入力してください。"
	case in.Price.GreaterThan(maxPrice):
		fields["itemCost"] = fmt.Sprintf("%s以下の金額を入力してください。", maxPrice.StringFixed(2))
	}

	if in.QuantityOrDefault() < 1 {
		fields["itemQuantity"] = "1以上の数量を入力してください。"
	}

	if len(in.URL) > maxURLLength {
		fields["itemUrl"] = "URLが長すぎます。"
	} else if normalized, err := s.guard.NormalizeURL(in.URL); err != nil {
		fields["itemUrl"] = "有効なURLを入力してください。"
	} else {
		in.URL = normalized
	}

	if in.ImageURL != "" {
		if len(in.ImageURL) > maxURLLength {
			fields["imageUrl"] = "URLが長すぎます。"
		} else if normalized, err := s.guard.NormalizeURL(in.ImageURL); err != nil {
			fields["imageUrl"] = "有効な画像URLを入力してください。"
		} else {
			in.ImageURL = normalized
		}
	}

	if len(fields) > 0 {
		return in, model.NewValidationError("Invalid item", fields)
	}
	return in, nil
}

// normalizeAddress は住所の各項目からタグを除去し、長さを検証する。
func (s *Service) normalizeAddress(addr model.Address) (model.Address, error) {
	fields := map[string]string{}
	clean := func(name string, v *string) {
		*v = s.sanitizer.Sanitize(*v)
		if len([]rune(*v)) > maxTextLength {
			fields[name] = "255文字以内で入力してください。"
		}
	}
	clean("streetAddress", &addr.StreetAddress)
	clean("addressLine2", &addr.AddressLine2)
	clean("city", &addr.City)
	clean("state", &addr.State)
	clean("zipCode", &addr.ZipCode)

	if len(fields) > 0 {
		return addr, model.NewValidationError("Invalid address", fields)
	}
	return addr, nil
}
