package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// exportJSON writes every entry in s as an indented FeedbackExport and
// returns the number of entries written.
func exportJSON(ctx context.Context, s Store, writer io.Writer) (int, error) {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list feedback: %w", err)
	}
	if all == nil {
		all = []*Feedback{}
	}

	export := &FeedbackExport{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return export.Count, nil
}

// importJSON saves entries that do not already exist in s. Invalid entries
// are skipped.
func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		if fb == nil || fb.Validate() != nil {
			skipped++
			continue
		}

		existing, err := s.Get(ctx, fb.EvaluationID, fb.Region)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		fb.ID = 0
		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
