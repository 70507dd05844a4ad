package handler

import (
	"encoding/json"
	"net/http"
)

// Status は health エンドポイントが報告する状態です。
type Status interface {
	Alive() bool
	SessionCount() int
}

type healthBody struct {
	Alive    bool `json:"alive"`
	Sessions int  `json:"sessions"`
}

func NewHealthHandler(status Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := healthBody{Alive: status.Alive(), Sessions: status.SessionCount()}
		code := http.StatusOK
		if !body.Alive {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
