package submissionservice

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	submissiondb "github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories"
	"github.com/clubmint/allowgate/app/modules/tier"
)

// ExportWorkbook snapshots every tier sheet into an .xlsx workbook, one
// worksheet per tier, for offline processing of the allowlist.
func (s *SubmissionService) ExportWorkbook(ctx context.Context) (OperationResult, error) {
	return s.withTelemetry(ctx, "ExportWorkbook", "", func(ctx context.Context) (OperationResult, error) {
		rows, err := s.store.ListRows(ctx)
		if err != nil {
			return OperationResult{}, fmt.Errorf("failed to list rows: %w", err)
		}

		content, err := buildWorkbook(rows)
		if err != nil {
			return OperationResult{}, err
		}

		return OperationResult{Success: ExportFile{
			Filename: fmt.Sprintf("allowlist-%s.xlsx", time.Now().UTC().Format("2006-01-02")),
			Content:  content,
		}}, nil
	})
}

func buildWorkbook(rows []submissiondb.RowRecord) ([]byte, error) {
	workbook := excelize.NewFile()
	defer workbook.Close()

	byTier := make(map[tier.Tier][]submissiondb.RowRecord)
	for _, row := range rows {
		byTier[row.Tier] = append(byTier[row.Tier], row)
	}

	for _, t := range tier.TiersByPriority {
		if _, err := workbook.NewSheet(t.SheetName()); err != nil {
			return nil, fmt.Errorf("failed to create worksheet %s: %w", t.SheetName(), err)
		}

		header := make([]any, len(submissiondb.HeaderRow))
		for i, h := range submissiondb.HeaderRow {
			header[i] = h
		}
		if err := workbook.SetSheetRow(t.SheetName(), "A1", &header); err != nil {
			return nil, fmt.Errorf("failed to write header for %s: %w", t.SheetName(), err)
		}

		for i, row := range byTier[t] {
			cells := []any{row.Username, row.UserID, row.RoleLabel, row.Wallet}
			anchor, err := excelize.JoinCellName("A", i+2)
			if err != nil {
				return nil, err
			}
			if err := workbook.SetSheetRow(t.SheetName(), anchor, &cells); err != nil {
				return nil, fmt.Errorf("failed to write row to %s: %w", t.SheetName(), err)
			}
		}
	}

	// The workbook starts with a default sheet that is not one of ours.
	if err := workbook.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	buffer, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buffer.Bytes(), nil
}
