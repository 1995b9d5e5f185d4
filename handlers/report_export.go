package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"p9e.in/loto/config"
	"p9e.in/loto/models"
)

// ExportReportsToExcel exports the full report registry to an Excel
// workbook for offline audit review.
// GET /api/v1/reports/export
func ExportReportsToExcel(w http.ResponseWriter, r *http.Request) {
	var reports []models.Report
	if err := config.DB.
		Preload("UploadedBy").
		Order("date_added DESC").
		Find(&reports).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	excelFile, err := createRegistryWorkbook(reports)
	if err != nil {
		http.Error(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}

	buffer, err := excelFile.WriteToBuffer()
	if err != nil {
		http.Error(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("loto_reports_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

var registryHeaders = []string{"Report Name", "Date Added", "Last Generated", "Photos", "Uploaded By", "Tags", "Notes"}

// createRegistryWorkbook lays out the report registry sheet: title,
// generation timestamp, styled header row, then one row per report.
func createRegistryWorkbook(reports []models.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Reports"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 16,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})
	f.SetCellValue(sheetName, "A1", "Lockout/Tagout Report Registry")
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)

	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for colIdx, header := range registryHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 4)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		f.SetColWidth(sheetName, columnIndexToLetter(colIdx+1), columnIndexToLetter(colIdx+1), 22)
	}

	dataStyle, _ := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "CCCCCC", Style: 1},
			{Type: "right", Color: "CCCCCC", Style: 1},
			{Type: "top", Color: "CCCCCC", Style: 1},
			{Type: "bottom", Color: "CCCCCC", Style: 1},
		},
	})

	for rowIdx, rep := range reports {
		var attachments []models.PhotoAttachment
		json.Unmarshal(rep.Photos, &attachments)

		uploadedBy := ""
		if rep.UploadedBy != nil {
			uploadedBy = rep.UploadedBy.Username
		}
		lastGenerated := ""
		if rep.LastGenerated != nil {
			lastGenerated = rep.LastGenerated.Format("2006-01-02 15:04:05")
		}

		values := []interface{}{
			rep.Name,
			rep.DateAdded.Format("2006-01-02 15:04:05"),
			lastGenerated,
			len(attachments),
			uploadedBy,
			strings.Join(rep.Tags, ", "),
			rep.Notes,
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+5)
			f.SetCellValue(sheetName, cell, value)
			f.SetCellStyle(sheetName, cell, cell, dataStyle)
		}
	}

	return f, nil
}

func columnIndexToLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+(col%26))) + result
		col /= 26
	}
	return result
}
