package removeProduct

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

type ProductRemover interface {
	RemoveProduct(userID int64, wlName, prodName string) error
}

func New(
	log *slog.Logger,
	store ProductRemover,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.remove.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		wlName := r.URL.Query().Get("watchlist")
		prodName := r.URL.Query().Get("name")
		if wlName == "" || prodName == "" {
			log.Error("Missing watchlist or product name")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Missing watchlist or product name"))

			return
		}

		userID, ok := authMiddleware.UserID(r.Context())
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		err := store.RemoveProduct(userID, wlName, prodName)
		switch {
		case errors.Is(err, storage.ErrUnauthorized):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("User is not authorized"))
			return

		case errors.Is(err, storage.ErrWatchlistNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Watchlist not found"))
			return

		case errors.Is(err, storage.ErrProductNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Product not found"))
			return

		case err != nil:
			log.Error("Failed to remove product", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Product removed",
			slog.String("name", prodName),
			slog.String("watchlist", wlName),
			slog.Int64("user_id", userID),
		)

		render.JSON(w, r, Response{Response: resp.OK()})
	}
}
