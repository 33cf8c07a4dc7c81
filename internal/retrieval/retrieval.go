// Package retrieval provides access to the external content-retrieval (RAG)
// service used to ground generated step content.
package retrieval

import (
	"context"

	"github.com/ashureev/edupath/internal/domain"
)

// Searcher finds supporting context snippets for a query.
//
// Retrieval is optional enrichment: callers must tolerate failures and treat
// them as zero results.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Citation, error)
}
