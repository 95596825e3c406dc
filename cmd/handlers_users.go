package main

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/cheapeats/internal/model"
)

type userResponse struct {
	Success bool               `json:"success"`
	Profile *model.UserProfile `json:"profile"`
}

type favoritesResponse struct {
	Success   bool     `json:"success"`
	Favorites []string `json:"favorites"`
}

// getUser handles GET /api/users/{userID}.
func (h *apiHandler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.env.Users.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, Profile: u})
}

// putUser handles PUT /api/users/{userID}. Favorites, the newsletter flag
// and the creation time are kept across updates.
func (h *apiHandler) putUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Image string `json:"image"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	addr, err := mail.ParseAddress(body.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	u, err := h.env.Users.UpsertUser(r.Context(), model.UserProfile{
		ID:    chi.URLParam(r, "userID"),
		Email: strings.ToLower(addr.Address),
		Name:  strings.TrimSpace(body.Name),
		Image: body.Image,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, Profile: u})
}

// listFavorites handles GET /api/users/{userID}/favorites.
func (h *apiHandler) listFavorites(w http.ResponseWriter, r *http.Request) {
	h.writeFavorites(w, r, chi.URLParam(r, "userID"))
}

// addFavorite handles POST /api/users/{userID}/favorites.
func (h *apiHandler) addFavorite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DealID string `json:"dealId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	dealID := strings.TrimSpace(body.DealID)
	if dealID == "" {
		writeError(w, http.StatusBadRequest, "dealId is required")
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.env.Users.AddFavorite(r.Context(), userID, dealID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeFavorites(w, r, userID)
}

// removeFavorite handles DELETE /api/users/{userID}/favorites/{dealID}.
func (h *apiHandler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.env.Users.RemoveFavorite(r.Context(), userID, chi.URLParam(r, "dealID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeFavorites(w, r, userID)
}

func (h *apiHandler) writeFavorites(w http.ResponseWriter, r *http.Request, userID string) {
	u, err := h.env.Users.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favoritesResponse{Success: true, Favorites: u.FavoriteDeals})
}

// updateNewsletter handles POST /api/newsletter {email, name, action}.
func (h *apiHandler) updateNewsletter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email  string `json:"email"`
		Name   string `json:"name"`
		Action string `json:"action"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	addr, err := mail.ParseAddress(body.Email)
	if err != nil || body.Action == "" {
		writeError(w, http.StatusBadRequest, "email and action required")
		return
	}
	email := strings.ToLower(addr.Address)

	switch body.Action {
	case "subscribe":
		if err := h.env.Users.Subscribe(r.Context(), email, strings.TrimSpace(body.Name)); err != nil {
			writeServiceError(w, r, err)
			return
		}
	case "unsubscribe":
		ok, err := h.env.Users.Unsubscribe(r.Context(), email)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "email is not subscribed")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "action must be subscribe or unsubscribe")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// listSubscribers handles GET /api/newsletter?key=. The daily generation
// key doubles as the admin key.
func (h *apiHandler) listSubscribers(w http.ResponseWriter, r *http.Request) {
	if err := h.env.Deals.Authorize(r.URL.Query().Get("key")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	subs, err := h.env.Users.ActiveSubscribers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if subs == nil {
		subs = []model.NewsletterSubscriber{}
	}
	writeJSON(w, http.StatusOK, struct {
		Success     bool                         `json:"success"`
		Subscribers []model.NewsletterSubscriber `json:"subscribers"`
		Total       int                          `json:"total"`
	}{true, subs, len(subs)})
}
