package screening

import (
	"context"

	"github.com/tphakala/gridscreen-go/internal/capacity"
	"github.com/tphakala/gridscreen-go/internal/observability/metrics"
	"github.com/tphakala/gridscreen-go/internal/transformer"
)

// RowIssue reports one transformer row that could not be parsed.
type RowIssue struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// TransformerResult is the outcome of parsing one transformer table.
// Records holds the rows that survived parsing and the requested filter;
// Dropped counts rows isolated for bad geometry or values.
type TransformerResult struct {
	Records   []transformer.Record `json:"records"`
	RowIssues []RowIssue           `json:"row_issues,omitempty"`
	TotalRows int                  `json:"total_rows"`
	Dropped   int                  `json:"dropped"`
}

// ParseTransformers decodes a transformer capacity table and returns its
// records with the filter applied. Row-level parse failures are isolated
// into RowIssues; the returned error covers table-level failures only.
func (s *Service) ParseTransformers(ctx context.Context, input TableInput, filter transformer.Filter) (*TransformerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := capacity.ReadTable(input.Label, input.Reader)
	if err != nil {
		return nil, err
	}

	records, rowErrors, err := transformer.ParseRecords(table)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AddTransformerRows(metrics.LabelParsed, len(records))
		s.metrics.AddTransformerRows(metrics.LabelFailed, len(rowErrors))
	}

	result := &TransformerResult{
		Records:   filter.Apply(records),
		TotalRows: len(table.Rows),
		Dropped:   len(rowErrors),
	}
	for i := range rowErrors {
		result.RowIssues = append(result.RowIssues, RowIssue{
			Row:   rowErrors[i].Row,
			Error: rowErrors[i].Err.Error(),
		})
	}

	screeningLogger.Info("Transformer table parsed",
		"label", table.Label,
		"rows", result.TotalRows,
		"records", len(records),
		"row_issues", result.Dropped,
		"returned", len(result.Records))

	return result, nil
}
