package elasticsearch

import (
	"time"

	"github.com/DeafMist/deep-research/internal/models"
	"github.com/DeafMist/deep-research/internal/processing"
)

// NewReportDocument converts a finished run into its archived form. The ID is
// derived from the query and createdAt, so re-indexing the same run overwrites it.
func NewReportDocument(res *models.ResearchResult, createdAt time.Time) models.ReportDocument {
	return models.ReportDocument{
		ID:          processing.BuildDocumentID(res.Query, createdAt),
		Query:       res.Query,
		Report:      res.Report,
		Sources:     res.Sources,
		SourceCount: len(res.Sources),
		CreatedAt:   createdAt.UTC(),
	}
}
