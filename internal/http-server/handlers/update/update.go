package updateWatchlists

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "github.com/sudo-simon/amazon-scraper-bot/internal/lib/api/response"
	sl "github.com/sudo-simon/amazon-scraper-bot/internal/lib/logger"
	authMiddleware "github.com/sudo-simon/amazon-scraper-bot/internal/middleware/auth"
	"github.com/sudo-simon/amazon-scraper-bot/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// updateTimeout covers a full on-demand update pass, fetches included.
const updateTimeout = 10 * time.Minute

type Response struct {
	resp.Response
	Digest string `json:"digest"`
}

type Updater interface {
	UpdateAll(ctx context.Context, userID int64) (string, error)
}

func New(
	log *slog.Logger,
	store Updater,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.update.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), updateTimeout)
		defer cancel()

		digest, err := store.UpdateAll(ctx, userID)
		switch {
		case errors.Is(err, storage.ErrUnauthorized):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("User is not authorized"))
			return

		case err != nil:
			log.Error("Failed to update watchlists", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Watchlists updated",
			slog.Int64("user_id", userID),
			slog.Bool("notified", digest != ""),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Digest:   digest,
		})
	}
}
