package export

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/store"
)

// ExportService handles data export functionality
type ExportService struct{}

// NewExportService creates a new export service instance
func NewExportService() *ExportService {
	return &ExportService{}
}

// SnapshotPayload is the downloadable snapshot JSON: a pass-through of the
// latest tick plus the context it was exported under.
type SnapshotPayload struct {
	ExportedAt time.Time       `json:"exportedAt"`
	Route      string          `json:"route"`
	Filters    models.Filters  `json:"filters"`
	Scenario   string          `json:"scenario"`
	Tick       int             `json:"tick"`
	Snapshot   models.Snapshot `json:"snapshot"`
}

// BuildSnapshotPayload assembles the snapshot export for the latest tick.
// It fails when no tick has been applied yet.
func (es *ExportService) BuildSnapshotPayload(state store.AppState, now time.Time) (SnapshotPayload, error) {
	snapshot, ok := state.Sim.LatestSnapshot()
	if !ok {
		return SnapshotPayload{}, fmt.Errorf("no simulation snapshot available yet")
	}

	return SnapshotPayload{
		ExportedAt: now,
		Route:      state.UI.Route,
		Filters:    state.UI.Filters,
		Scenario:   state.Sim.Scenario,
		Tick:       state.Sim.Tick,
		Snapshot:   snapshot,
	}, nil
}

// GenerateExcel creates an Excel workbook with the simulation history:
// a summary sheet, the per-tick history, the latest sensor grid, and the
// open incident list.
func (es *ExportService) GenerateExcel(state store.AppState) (*excelize.File, error) {
	f := excelize.NewFile()

	generatedAt := time.Now()
	f.SetDocProps(&excelize.DocProperties{
		Category:       "EcoFlow Drainage Network",
		Created:        generatedAt.Format(time.RFC3339),
		Creator:        "EcoFlow System",
		Description:    "Drainage network simulation history export",
		LastModifiedBy: "EcoFlow Backend",
		Modified:       generatedAt.Format(time.RFC3339),
		Subject:        "Simulation History",
		Title:          "EcoFlow Network Report",
		Version:        "1.0",
	})

	es.createSummarySheet(f, state, generatedAt)
	es.createHistorySheet(f, state.Sim.History)
	es.createSensorSheet(f, state.Network.Sensors)
	es.createIncidentSheet(f, state.Network.Incidents)

	f.SetActiveSheet(0)
	return f, nil
}

func headerStyle(f *excelize.File, color string) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	return style
}

func (es *ExportService) createSummarySheet(f *excelize.File, state store.AppState, generatedAt time.Time) {
	sheetName := "Summary"
	f.SetSheetName("Sheet1", sheetName)

	style := headerStyle(f, "4472C4")
	f.SetCellValue(sheetName, "A1", "EcoFlow Drainage Network Report")
	f.MergeCell(sheetName, "A1", "D1")
	f.SetCellStyle(sheetName, "A1", "D1", style)
	f.SetRowHeight(sheetName, 1, 25)

	f.SetCellValue(sheetName, "A3", "Generated At:")
	f.SetCellValue(sheetName, "B3", generatedAt.Format("2006-01-02 15:04:05"))
	f.SetCellValue(sheetName, "A4", "Scenario:")
	f.SetCellValue(sheetName, "B4", state.Sim.Scenario)
	f.SetCellValue(sheetName, "A5", "Current Tick:")
	f.SetCellValue(sheetName, "B5", state.Sim.Tick)

	f.SetCellValue(sheetName, "A7", "Network Statistics")
	f.SetCellStyle(sheetName, "A7", "A7", style)

	f.SetCellValue(sheetName, "A8", "Sensors:")
	f.SetCellValue(sheetName, "B8", len(state.Network.Sensors))
	f.SetCellValue(sheetName, "A9", "Snapshots Retained:")
	f.SetCellValue(sheetName, "B9", len(state.Sim.History))
	f.SetCellValue(sheetName, "A10", "Open Incidents:")
	f.SetCellValue(sheetName, "B10", len(state.Network.Incidents))
	f.SetCellValue(sheetName, "A11", "Health Score:")
	f.SetCellValue(sheetName, "B11", state.Sim.Health.Score)
	f.SetCellValue(sheetName, "A12", "Pump Uptime:")
	f.SetCellValue(sheetName, "B12", fmt.Sprintf("%.2f%%", state.Sim.Health.PumpUptime))

	f.SetColWidth(sheetName, "A", "A", 22)
	f.SetColWidth(sheetName, "B", "D", 15)
}

func (es *ExportService) createHistorySheet(f *excelize.File, history []models.Snapshot) {
	sheetName := "Tick History"
	f.NewSheet(sheetName)

	headers := []string{"Tick", "Timestamp", "Network Load", "Urgent Tasks", "Scheduled Tasks", "Healthy Sensors"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	f.SetCellStyle(sheetName, "A1", "F1", headerStyle(f, "70AD47"))

	for i, snapshot := range history {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), snapshot.Tick)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), snapshot.Timestamp.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), snapshot.NetworkLoad)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), snapshot.MaintenanceStats.Urgent)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), snapshot.MaintenanceStats.Scheduled)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), snapshot.MaintenanceStats.Healthy)
	}

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 20)
	f.SetColWidth(sheetName, "C", "F", 14)
}

func (es *ExportService) createSensorSheet(f *excelize.File, sensors []models.Sensor) {
	sheetName := "Sensors"
	f.NewSheet(sheetName)

	headers := []string{"ID", "Name", "Zone", "Flow (L/s)", "Sludge (L)", "Risk", "Status", "Clog Probability"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	f.SetCellStyle(sheetName, "A1", "H1", headerStyle(f, "C55A11"))

	for i, sensor := range sensors {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), sensor.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), sensor.Name)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), sensor.Zone)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), sensor.Flow)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), sensor.Sludge)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), sensor.Risk)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), string(sensor.Status))
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), sensor.ClogProbability)
	}

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 26)
	f.SetColWidth(sheetName, "C", "H", 14)
}

func (es *ExportService) createIncidentSheet(f *excelize.File, incidents []models.Incident) {
	sheetName := "Incidents"
	f.NewSheet(sheetName)

	headers := []string{"ID", "Tick", "Sensor", "Zone", "Severity", "Message", "Resolved"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	f.SetCellStyle(sheetName, "A1", "G1", headerStyle(f, "7030A0"))

	for i, incident := range incidents {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), incident.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), incident.Tick)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), incident.SensorID)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), incident.Zone)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), incident.Severity)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), incident.Message)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), incident.Resolved)
	}

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "B", 8)
	f.SetColWidth(sheetName, "C", "E", 14)
	f.SetColWidth(sheetName, "F", "F", 42)
	f.SetColWidth(sheetName, "G", "G", 10)
}

// GenerateCSV creates CSV records for the per-tick history
func (es *ExportService) GenerateCSV(history []models.Snapshot) ([][]string, error) {
	records := [][]string{
		{"Tick", "Timestamp", "Network Load", "Urgent Tasks", "Scheduled Tasks", "Healthy Sensors"},
	}

	for _, snapshot := range history {
		record := []string{
			strconv.Itoa(snapshot.Tick),
			snapshot.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(snapshot.NetworkLoad, 'f', 1, 64),
			strconv.Itoa(snapshot.MaintenanceStats.Urgent),
			strconv.Itoa(snapshot.MaintenanceStats.Scheduled),
			strconv.Itoa(snapshot.MaintenanceStats.Healthy),
		}
		records = append(records, record)
	}

	return records, nil
}

// WriteCSV writes CSV data to a writer
func (es *ExportService) WriteCSV(w *csv.Writer, records [][]string) error {
	return w.WriteAll(records)
}
