package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a middleware that answers preflight requests and sets the
// access-control headers for the given origins. An empty list allows any
// origin. The MCP session headers are exposed so browser clients can keep a
// streamable HTTP session.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposedHeaders:   []string{"Mcp-Session-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
