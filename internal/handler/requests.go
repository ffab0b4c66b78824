package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/wantify/internal/model"
)

// costValue は数値・数値文字列のどちらでも受け付ける金額。
type costValue struct {
	decimal.Decimal
}

// UnmarshalJSON は 12.5 と "12.5" の両方を受け付ける。
func (c *costValue) UnmarshalJSON(b []byte) error {
	if err := c.Decimal.UnmarshalJSON(b); err != nil {
		return &fieldError{field: "itemCost", message: "金額は数値で入力してください。"}
	}
	return nil
}

// itemRequest はアイテム追加・更新リクエストのボディ。
type itemRequest struct {
	ItemName     string    `json:"itemName" validate:"required,max=255"`
	ItemURL      string    `json:"itemUrl" validate:"required,max=2048"`
	ItemQuantity *int      `json:"itemQuantity" validate:"omitempty,min=1"`
	ItemCost     costValue `json:"itemCost"`
	ImageURL     string    `json:"imageUrl" validate:"max=2048"`
}

func (req *itemRequest) bindForm(v url.Values) error {
	req.ItemName = v.Get("itemName")
	req.ItemURL = v.Get("itemUrl")
	req.ImageURL = v.Get("imageUrl")

	if s := strings.TrimSpace(v.Get("itemQuantity")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return &fieldError{field: "itemQuantity", message: "数量は整数で入力してください。"}
		}
		req.ItemQuantity = &n
	}
	if s := strings.TrimSpace(v.Get("itemCost")); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return &fieldError{field: "itemCost", message: "金額は数値で入力してください。"}
		}
		req.ItemCost = costValue{d}
	}
	return nil
}

func (req *itemRequest) input() model.ItemInput {
	return model.ItemInput{
		ItemName: req.ItemName,
		Price:    req.ItemCost.Decimal,
		Quantity: req.ItemQuantity,
		URL:      req.ItemURL,
		ImageURL: req.ImageURL,
	}
}

// renameRequest はウィッシュリスト名変更リクエストのボディ。
type renameRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (req *renameRequest) bindForm(v url.Values) error {
	req.Name = v.Get("name")
	return nil
}

// addressRequest は住所保存リクエストのボディ。
type addressRequest struct {
	StreetAddress string `json:"streetAddress" validate:"max=255"`
	AddressLine2  string `json:"addressLine2" validate:"max=255"`
	City          string `json:"city" validate:"max=255"`
	State         string `json:"state" validate:"max=255"`
	ZipCode       string `json:"zipCode" validate:"max=255"`
}

func (req *addressRequest) bindForm(v url.Values) error {
	req.StreetAddress = v.Get("streetAddress")
	req.AddressLine2 = v.Get("addressLine2")
	req.City = v.Get("city")
	req.State = v.Get("state")
	req.ZipCode = v.Get("zipCode")
	return nil
}

func (req *addressRequest) address() model.Address {
	return model.Address{
		StreetAddress: req.StreetAddress,
		AddressLine2:  req.AddressLine2,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
	}
}

// shareRequest は共有リンク発行リクエストのボディ。期間は省略可能。
type shareRequest struct {
	Duration string `json:"duration" validate:"omitempty,oneof=ONE_HOUR ONE_DAY SEVEN_DAYS FOURTEEN_DAYS THIRTY_DAYS NINETY_DAYS NEVER"`
}

func (req *shareRequest) bindForm(v url.Values) error {
	req.Duration = v.Get("duration")
	return nil
}

// updateShareRequest は共有リンクの期間変更リクエストのボディ。
type updateShareRequest struct {
	NewDuration string `json:"newDuration" validate:"required,oneof=ONE_HOUR ONE_DAY SEVEN_DAYS FOURTEEN_DAYS THIRTY_DAYS NINETY_DAYS NEVER"`
}

func (req *updateShareRequest) bindForm(v url.Values) error {
	req.NewDuration = v.Get("newDuration")
	return nil
}

// emailVerificationRequest はメールアドレス確認コードの発行リクエスト。
type emailVerificationRequest struct {
	Email string `json:"email" validate:"required,max=255"`
}

func (req *emailVerificationRequest) bindForm(v url.Values) error {
	req.Email = v.Get("email")
	return nil
}

// confirmEmailRequest は確認コードの照合リクエスト。
type confirmEmailRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

func (req *confirmEmailRequest) bindForm(v url.Values) error {
	req.Code = v.Get("code")
	return nil
}
