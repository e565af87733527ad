package articles

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter exposes the read model over HTTP:
//
//	GET /articles                    newest first, ?account= ?limit= ?offset=
//	GET /articles/{account}/{title}  one article by identity
//	GET /accounts                    per-account summaries
func NewRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/articles", svc.handleListArticles)
	r.Get("/articles/{account}/{title}", svc.handleGetArticle)
	r.Get("/accounts", svc.handleListAccounts)
	return r
}

func (s Service) handleListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
	offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)

	items, err := s.List(r.Context(), q.Get("account"), limit, offset)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": items})
}

func (s Service) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	title := chi.URLParam(r, "title")

	article, err := s.Get(r.Context(), account, title)
	if errors.Is(err, ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s Service) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.Accounts(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": summaries})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
