// Package export renders topic lists as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single sheet WriteTopics produces.
const SheetName = "Topics"

// ContentType is the MIME type of the workbook WriteTopics writes.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteTopics writes an xlsx workbook with one row per topic under a
// (#, Topic) header. title becomes the workbook title.
func WriteTopics(w io.Writer, title string, topics []string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: title, Creator: "Minerva"}); err != nil {
			return fmt.Errorf("setting properties: %w", err)
		}
	}

	if err := f.SetSheetRow(SheetName, "A1", &[]any{"#", "Topic"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "B1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, topic := range topics {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &[]any{i + 1, topic}); err != nil {
			return fmt.Errorf("writing topic %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(SheetName, "B", "B", 60); err != nil {
		return fmt.Errorf("sizing column: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
