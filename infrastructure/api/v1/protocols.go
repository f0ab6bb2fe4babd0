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

// ProtocolSearcher runs the semantic protocol search.
type ProtocolSearcher interface {
	SearchSemantic(ctx context.Context, question, nctID string) (service.ProtocolContext, error)
}

// ProtocolsRouter handles semantic protocol search endpoints.
type ProtocolsRouter struct {
	searcher ProtocolSearcher
	logger   *slog.Logger
}

// NewProtocolsRouter creates a new ProtocolsRouter.
func NewProtocolsRouter(searcher ProtocolSearcher, logger *slog.Logger) *ProtocolsRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProtocolsRouter{searcher: searcher, logger: logger}
}

// Routes returns the chi router for protocol endpoints.
func (r *ProtocolsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.Search)

	return router
}

// Search handles GET /api/v1/protocols.
//
//	@Summary		Search protocol documents
//	@Description	Top two protocol documents nearest to the question, optionally restricted to one trial
//	@Tags			protocols
//	@Produce		json
//	@Param			question	query		string	true	"Natural-language question"
//	@Param			nct_id		query		string	false	"Restrict to one trial"
//	@Success		200			{object}	dto.ProtocolsResponse
//	@Failure		400			{object}	middleware.ErrorResponse
//	@Failure		500			{object}	middleware.ErrorResponse
//	@Router			/protocols [get]
func (r *ProtocolsRouter) Search(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	question := strings.TrimSpace(query.Get("question"))
	if question == "" {
		middleware.WriteError(w, req, middleware.BadRequest("query parameter question is required"), r.logger)
		return
	}

	result, err := r.searcher.SearchSemantic(req.Context(), question, strings.TrimSpace(query.Get("nct_id")))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, protocolsResponse(result))
}

func protocolsResponse(result service.ProtocolContext) dto.ProtocolsResponse {
	results := result.Results()
	matches := make([]dto.ProtocolMatch, len(results))
	for i, res := range results {
		matches[i] = dto.ProtocolMatch{
			NCTID:    res.ID(),
			Score:    res.Score(),
			Document: res.Document(),
		}
	}

	return dto.ProtocolsResponse{
		Context: result.Text(),
		Found:   result.Found(),
		Matches: matches,
	}
}
