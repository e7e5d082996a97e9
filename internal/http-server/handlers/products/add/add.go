package addProduct

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
	validator "github.com/go-playground/validator/v10"
)

// addTimeout caps the fetch that a product construction performs.
const addTimeout = 3 * time.Minute

type Request struct {
	Watchlist string `json:"watchlist" validate:"required"`
	URL       string `json:"url" validate:"required,url"`
	Name      string `json:"name,omitempty"`
}

type Response struct {
	resp.Response
	Key string `json:"key"`
}

type ProductAdder interface {
	AddProduct(ctx context.Context, userID int64, wlName, url, prodName string) (string, error)
}

func New(
	log *slog.Logger,
	store ProductAdder,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.add.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

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

		userID, ok := authMiddleware.UserID(r.Context())
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), addTimeout)
		defer cancel()

		key, err := store.AddProduct(ctx, userID, req.Watchlist, req.URL, req.Name)
		switch {
		case errors.Is(err, storage.ErrUnauthorized):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("User is not authorized"))
			return

		case errors.Is(err, storage.ErrWatchlistNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Watchlist not found"))
			return

		case errors.Is(err, storage.ErrDuplicateProduct):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, resp.Error("Product is already tracked"))
			return

		case errors.Is(err, storage.ErrFetchFailed):
			log.Error("Failed to fetch product", sl.Err(err), slog.String("url", req.URL))

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, resp.Error("Could not fetch the product page"))

			return

		case err != nil:
			log.Error("Failed to add product", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Product added",
			slog.String("key", key),
			slog.String("watchlist", req.Watchlist),
			slog.Int64("user_id", userID),
		)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			Key:      key,
		})
	}
}
