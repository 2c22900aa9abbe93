package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"swiftchat/chat"
	"swiftchat/database"
	"swiftchat/middleware"
	"swiftchat/models"
)

// UserHandler serves the user directory endpoints.
type UserHandler struct {
	store *database.Store
	hub   *chat.Hub
}

func NewUserHandler(store *database.Store, hub *chat.Hub) *UserHandler {
	return &UserHandler{store: store, hub: hub}
}

// List returns every other user, with their live presence.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user := middleware.GetUserFromContext(r)
	if user == nil {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	users, err := h.store.ListUsers(user.ID)
	if err != nil {
		http.Error(w, `{"error": "Failed to list users"}`, http.StatusInternalServerError)
		return
	}
	h.writeWithPresence(w, users)
}

// Search finds users by username or email substring.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user := middleware.GetUserFromContext(r)
	if user == nil {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, `{"error": "Search query is required"}`, http.StatusBadRequest)
		return
	}

	users, err := h.store.SearchUsers(query, user.ID)
	if err != nil {
		http.Error(w, `{"error": "Failed to search users"}`, http.StatusInternalServerError)
		return
	}
	h.writeWithPresence(w, users)
}

func (h *UserHandler) writeWithPresence(w http.ResponseWriter, users []models.UserResponse) {
	if users == nil {
		users = []models.UserResponse{}
	}
	for i := range users {
		users[i].Online = h.hub.IsOnline(users[i].ID)
	}
	json.NewEncoder(w).Encode(users)
}
