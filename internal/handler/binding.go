package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/wantify/internal/model"
)

// maxBodySize はリクエストボディの最大サイズ（64KB）。
const maxBodySize = 64 << 10

// formBinder はapplication/x-www-form-urlencodedのボディを受け付けるリクエスト型。
type formBinder interface {
	bindForm(values url.Values) error
}

// fieldError は単一フィールドの解析エラー。
type fieldError struct {
	field   string
	message string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// エラーのフィールド名をJSONの名前にそろえる
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind はJSONまたはフォームのボディをdstに読み込み、validateタグで検証する。
// 失敗した場合はフィールド単位のメッセージを持つバリデーションエラーを返す。
// 空のJSONボディはゼロ値として扱う。
func bind(w http.ResponseWriter, r *http.Request, dst formBinder) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			if tooLarge := bodyTooLarge(err); tooLarge != nil {
				return tooLarge
			}
			return model.NewValidationError("Invalid form body", nil)
		}
		if err := dst.bindForm(r.PostForm); err != nil {
			return decodeError(err)
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return decodeError(err)
		}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate request: %w", err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		return model.NewValidationError("Invalid request body", fields)
	}
	return nil
}

// bodyTooLarge はMaxBytesReaderの上限超過をエラー種別に変換する。該当しなければnilを返す。
func bodyTooLarge(err error) error {
	var mbErr *http.MaxBytesError
	if errors.As(err, &mbErr) {
		return model.NewRequestTooLargeError(mbErr.Limit)
	}
	return nil
}

func decodeError(err error) error {
	if tooLarge := bodyTooLarge(err); tooLarge != nil {
		return tooLarge
	}
	var fe *fieldError
	if errors.As(err, &fe) {
		return model.NewValidationError("Invalid request body", map[string]string{fe.field: fe.message})
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return model.NewValidationError("Invalid request body", map[string]string{
			typeErr.Field: fmt.Sprintf("%sの形式が正しくありません。", typeErr.Field),
		})
	}
	return model.NewValidationError("Invalid request body", nil)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sは必須です。", fe.Field())
	case "max":
		return fmt.Sprintf("%sは%s文字以内で入力してください。", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%sは%s以上で入力してください。", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%sは%sのいずれかを指定してください。", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%sが正しくありません。", fe.Field())
	}
}
