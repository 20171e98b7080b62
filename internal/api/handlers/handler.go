// Пакет handlers — HTTP-обработчики JSON API Web Module.
// Контракт ошибок единый: {"error": {"code": "...", "message": "..."}}
// через пакет api/errors.
package handlers

import (
	"encoding/json"
	"net/http"
)

// writeJSON сериализует payload в ответ с указанным статус-кодом.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
