// Package v1 implements the version 1 HTTP routes.
package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/helixml/trialdex/application/service"
	"github.com/helixml/trialdex/infrastructure/api/middleware"
	"github.com/helixml/trialdex/infrastructure/api/v1/dto"
)

// TrialSearcher runs the structured keyword search.
type TrialSearcher interface {
	SearchStructured(ctx context.Context, keyword string) (service.TrialMatches, error)
}

// TrialsRouter handles structured trial search endpoints.
type TrialsRouter struct {
	searcher TrialSearcher
	logger   *slog.Logger
}

// NewTrialsRouter creates a new TrialsRouter.
func NewTrialsRouter(searcher TrialSearcher, logger *slog.Logger) *TrialsRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrialsRouter{searcher: searcher, logger: logger}
}

// Routes returns the chi router for trial endpoints.
func (r *TrialsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.Search)

	return router
}

// Search handles GET /api/v1/trials.
//
//	@Summary		Search trials
//	@Description	Case-insensitive keyword match on conditions or title, at most five rows
//	@Tags			trials
//	@Produce		json
//	@Param			q	query		string	true	"Condition or title keyword"
//	@Success		200	{object}	dto.TrialsResponse
//	@Failure		400	{object}	middleware.ErrorResponse
//	@Failure		500	{object}	middleware.ErrorResponse
//	@Router			/trials [get]
func (r *TrialsRouter) Search(w http.ResponseWriter, req *http.Request) {
	keyword := strings.TrimSpace(req.URL.Query().Get("q"))
	if keyword == "" {
		middleware.WriteError(w, req, middleware.BadRequest("query parameter q is required"), r.logger)
		return
	}

	matches, err := r.searcher.SearchStructured(req.Context(), keyword)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, trialsResponse(matches))
}

func trialsResponse(matches service.TrialMatches) dto.TrialsResponse {
	trials := matches.Trials()
	data := make([]dto.TrialData, len(trials))
	for i, t := range trials {
		data[i] = dto.TrialData{
			NCTID:      t.NCTID(),
			Title:      t.Title(),
			Status:     t.Status(),
			Phase:      t.Phase(),
			Conditions: t.Conditions(),
		}
	}

	response := dto.TrialsResponse{Data: data}
	if matches.Empty() {
		response.Message = service.NoTrialsFound
	}
	return response
}
