package removeWatchlist

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
}

type WatchlistRemover interface {
	RemoveWatchlist(userID int64, name string) error
}

func New(
	log *slog.Logger,
	store WatchlistRemover,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.watchlists.remove.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		name := r.URL.Query().Get("name")
		if name == "" {
			log.Error("Missing watchlist name")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Missing watchlist name"))

			return
		}

		userID, ok := authMiddleware.UserID(r.Context())
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		err := store.RemoveWatchlist(userID, name)
		switch {
		case errors.Is(err, storage.ErrUnauthorized):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("User is not authorized"))
			return

		case errors.Is(err, storage.ErrWatchlistNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Watchlist not found"))
			return

		case err != nil:
			log.Error("Failed to remove watchlist", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Watchlist removed",
			slog.String("name", name),
			slog.Int64("user_id", userID),
		)

		render.JSON(w, r, Response{Response: resp.OK()})
	}
}
