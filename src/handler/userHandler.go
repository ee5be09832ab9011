package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"exchangeapi/src/auth"
	"exchangeapi/src/model"
)

type userStore interface {
	Save(ctx context.Context, user *model.User) error
}

// UpdateUserHandler lets the authenticated user change their own contact
// data.
func UpdateUserHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			logger.Warn("user not found in context during profile update")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload model.UpdateUserPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid user update payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.Phone != nil {
			user.Phone = strings.TrimSpace(*payload.Phone)
		}

		if err := users.Save(r.Context(), user); err != nil {
			logger.WithError(err).Error("failed to update user profile")
			http.Error(w, "Unable to update profile", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

// ChangePasswordHandler verifies the current password and stores a bcrypt
// hash of the new one.
func ChangePasswordHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			logger.Warn("user not found in context during password change")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload model.ChangePasswordPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid change password payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.CurrentPassword == "" || payload.NewPassword == "" {
			http.Error(w, "Current and new passwords are required", http.StatusBadRequest)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.CurrentPassword)); err != nil {
			logger.WithField("user_id", user.ID).Warn("current password mismatch")
			http.Error(w, "Invalid current password", http.StatusUnauthorized)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			logger.WithError(err).Error("failed to hash new password")
			http.Error(w, "Unable to update password", http.StatusInternalServerError)
			return
		}

		user.PasswordHash = string(hashedPassword)

		if err := users.Save(r.Context(), user); err != nil {
			logger.WithError(err).Error("failed to persist new password")
			http.Error(w, "Unable to update password", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
