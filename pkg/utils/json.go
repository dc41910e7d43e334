// Package utils
package utils

import (
	"encoding/json"
	"net/http"
)

type Body map[string]any

func ReplyJSON(w http.ResponseWriter, status int, body Body) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func replyError(w http.ResponseWriter, status int, msg string) {
	ReplyJSON(w, status, Body{
		"error": msg,
	})
}

func ReplyBadRequest(w http.ResponseWriter, msg string) {
	replyError(w, http.StatusBadRequest, msg)
}

func ReplyInternalServerError(w http.ResponseWriter, msg string) {
	replyError(w, http.StatusInternalServerError, msg)
}
