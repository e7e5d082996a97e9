package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	resp "github.com/sudo-simon/amazon-scraper-bot/internal/lib/api/response"
	sl "github.com/sudo-simon/amazon-scraper-bot/internal/lib/logger"
	authMiddleware "github.com/sudo-simon/amazon-scraper-bot/internal/middleware/auth"
	"github.com/sudo-simon/amazon-scraper-bot/internal/models"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"
)

type GrantRequest struct {
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	FirstName string `json:"first_name" validate:"required"`
}

type UserResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Role      string `json:"role"`
}

type ListResponse struct {
	resp.Response
	Users []UserResponse `json:"users"`
}

type UserAdmin interface {
	GrantUser(callerID, userID int64, firstName string) error
	RevokeUser(callerID, userID int64) error
	Users(callerID int64) ([]models.AuthUser, error)
}

// NewGrant authorizes a new user. Admin only.
func NewGrant(
	log *slog.Logger,
	store UserAdmin,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.NewGrant"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req GrantRequest

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		callerID, ok := authMiddleware.UserID(r.Context())
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		err := store.GrantUser(callerID, req.UserID, req.FirstName)
		switch {
		case errors.Is(err, storage.ErrUnauthorized):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("Admin only"))
			return

		case errors.Is(err, storage.ErrUserExists):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, resp.Error("User already exists"))
			return

		case err != nil:
			log.Error("Failed to grant user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User granted", slog.Int64("user_id", req.UserID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, resp.OK())
	}
}

// NewRevoke bans a user and drops their entry. Admin only.
func NewRevoke(
	log *slog.Logger,
	store UserAdmin,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.NewRevoke"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || userID <= 0 {
			log.Error("Invalid id")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid id"))

			return
		}

		callerID, ok := authMiddleware.UserID(r.Context())
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		err = store.RevokeUser(callerID, userID)
		switch {
		case errors.Is(err, storage.ErrUnauthorized):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("Admin only"))
			return

		case errors.Is(err, storage.ErrUserMissing):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("User not found"))
			return

		case err != nil:
			log.Error("Failed to revoke user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User revoked", slog.Int64("user_id", userID))

		render.JSON(w, r, resp.OK())
	}
}

// NewList returns every row of the authorization list. Admin only.
func NewList(
	log *slog.Logger,
	store UserAdmin,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.NewList"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		callerID, ok := authMiddleware.UserID(r.Context())
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		authUsers, err := store.Users(callerID)
		switch {
		case errors.Is(err, storage.ErrUnauthorized):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("Admin only"))
			return

		case err != nil:
			log.Error("Failed to list users", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		users := make([]UserResponse, 0, len(authUsers))
		for _, u := range authUsers {
			users = append(users, UserResponse{
				ID:        u.ID,
				FirstName: u.FirstName,
				Role:      u.Role,
			})
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Users:    users,
		})
	}
}
