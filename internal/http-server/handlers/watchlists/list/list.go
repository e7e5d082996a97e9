package listWatchlists

import (
	"errors"
	"log/slog"
	"net/http"

	resp "github.com/sudo-simon/amazon-scraper-bot/internal/lib/api/response"
	sl "github.com/sudo-simon/amazon-scraper-bot/internal/lib/logger"
	authMiddleware "github.com/sudo-simon/amazon-scraper-bot/internal/middleware/auth"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Watchlists []string `json:"watchlists"`
}

type WatchlistsLister interface {
	Watchlists(userID int64) ([]string, error)
}

func New(
	log *slog.Logger,
	store WatchlistsLister,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.watchlists.list.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authMiddleware.UserID(r.Context())
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		names, err := store.Watchlists(userID)
		switch {
		case errors.Is(err, storage.ErrUnauthorized):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("User is not authorized"))
			return

		// an empty profile is a normal state, not a failure
		case errors.Is(err, storage.ErrEmptyProfile):
			render.JSON(w, r, Response{
				Response:   resp.OK(),
				Watchlists: []string{},
			})
			return

		case err != nil:
			log.Error("Failed to list watchlists", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response:   resp.OK(),
			Watchlists: names,
		})
	}
}
