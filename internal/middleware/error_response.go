package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/wantify/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	ErrorCause string            `json:"errorCause"`
	Code       string            `json:"code"`
	Category   string            `json:"category"`
	Action     string            `json:"action"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		ErrorCause: apiErr.Message,
		Code:       apiErr.Code,
		Category:   apiErr.Category,
		Action:     apiErr.Action,
		Fields:     apiErr.Fields,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// WriteError はエラーの種別に応じたステータスコードでレスポンスを書き込む。
// *model.APIErrorを含まないエラーは500とし、詳細はログにのみ記録する。
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := model.AsAPIError(err)
	if !ok || apiErr.Kind == model.KindUnexpected {
		slog.Error("unexpected error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteInternalServerError(w)
		return
	}
	WriteErrorResponse(w, model.StatusForKind(apiErr.Kind), apiErr)
}
