package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

const sampleYAML = `
agents:
  - username: sarah_travel
    first_name: Sarah
    last_name: Johnson
    company_name: Wanderlust Adventures
  - username: solo
tours:
  - title: Bali Paradise Escape
    description: Beaches and temples.
    destination: Bali, Indonesia
    hotel_name: Grand Hyatt Bali
    price: 2899.00
    start_date: 2026-12-15
    end_date: 2026-12-22
    visa_required: false
    meal_plan: half_board
    flight_type: direct
    agent: sarah_travel
  - title: Quiet Retreat
    destination: Kyoto, Japan
    price: 950
    start_date: "2027-03-01"
    end_date: "2027-03-05"
    visa_required: true
    meal_plan: room_only
    flight_type: layover
    agent: solo
    is_active: false
`

func TestParseYAMLBuildsEntries(t *testing.T) {
	entries, err := ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	bali := entries[0]
	if bali.Tour.Price != 289900 || !bali.Tour.IsActive || bali.Tour.MealPlan != domain.MealPlanHalfBoard {
		t.Fatalf("unexpected tour %+v", bali.Tour)
	}
	if bali.Agent.CompanyName == nil || *bali.Agent.CompanyName != "Wanderlust Adventures" {
		t.Fatalf("expected company, got %v", bali.Agent.CompanyName)
	}
	if bali.Tour.StartDate.Format(dateLayout) != "2026-12-15" {
		t.Fatalf("unexpected start date %v", bali.Tour.StartDate)
	}

	retreat := entries[1]
	if retreat.Tour.IsActive || retreat.Agent.CompanyName != nil || !retreat.Tour.VisaRequired {
		t.Fatalf("unexpected retreat %+v", retreat)
	}
}

func TestParseYAMLRejectsUnknownAgent(t *testing.T) {
	_, err := ParseYAML([]byte(`
tours:
  - title: Orphan
    destination: Nowhere
    price: 10
    start_date: 2026-01-01
    end_date: 2026-01-02
    meal_plan: room_only
    flight_type: direct
    agent: ghost
`))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestParseYAMLRejectsInvalidTour(t *testing.T) {
	_, err := ParseYAML([]byte(`
agents:
  - username: a
tours:
  - title: Backwards
    destination: Lima, Peru
    price: 10
    start_date: 2026-01-05
    end_date: 2026-01-02
    meal_plan: room_only
    flight_type: direct
    agent: a
`))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoadFileReadsBundledSeedCatalog(t *testing.T) {
	entries, err := LoadFile(filepath.Join("..", "..", "..", "deploy", "seed", "tours.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(entries) != 15 {
		t.Fatalf("expected 15 seed tours, got %d", len(entries))
	}
	independent := 0
	for _, entry := range entries {
		if entry.Agent.CompanyName == nil {
			independent++
		}
	}
	if independent == 0 {
		t.Fatalf("expected at least one independent agent in seed data")
	}
}

func TestLoadFileRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tours.csv")
	if err := os.WriteFile(path, []byte("title\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadFile(path); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func writeWorkbook(t *testing.T, rows ...[]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := row
		if err := f.SetSheetRow("Sheet1", cell, &values); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "tours.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	return path
}

func TestLoadFileReadsWorkbook(t *testing.T) {
	header := make([]interface{}, 0, len(XLSXColumns))
	for _, name := range XLSXColumns {
		header = append(header, name)
	}
	path := writeWorkbook(t,
		header,
		[]interface{}{"Tokyo Cultural Journey", "Temples", "Tokyo, Japan", "Park Hyatt", 3599.5, "2027-02-05", "2027-02-12", "yes", "room_only", "direct", "sarah", "Sarah", "Johnson", "Wanderlust", ""},
		[]interface{}{},
		[]interface{}{"Lisbon City Break", "", "Lisbon, Portugal", "", 899, "2027-04-01", "2027-04-04", "FALSE", "bed_breakfast", "layover", "marco", "", "", "", "no"},
	)

	entries, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	tokyo := entries[0]
	if tokyo.Tour.Price != 359950 || !tokyo.Tour.VisaRequired || !tokyo.Tour.IsActive {
		t.Fatalf("unexpected tokyo tour %+v", tokyo.Tour)
	}
	if tokyo.Agent.CompanyName == nil || *tokyo.Agent.CompanyName != "Wanderlust" {
		t.Fatalf("unexpected agent %+v", tokyo.Agent)
	}
	lisbon := entries[1]
	if lisbon.Tour.IsActive || lisbon.Tour.VisaRequired || lisbon.Agent.CompanyName != nil {
		t.Fatalf("unexpected lisbon tour %+v", lisbon)
	}
}

func TestLoadXLSXRequiresHeaderColumns(t *testing.T) {
	path := writeWorkbook(t, []interface{}{"title", "destination"})
	if _, err := LoadXLSX(path); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

type recordingWriter struct {
	agents  []domain.TourAgent
	tours   []domain.Tour
	failFor string
}

func (w *recordingWriter) UpsertAgent(_ context.Context, agent domain.TourAgent) (int64, error) {
	w.agents = append(w.agents, agent)
	return int64(len(w.agents) * 10), nil
}

func (w *recordingWriter) CreateTour(_ context.Context, tour domain.Tour) (int64, error) {
	if tour.Title == w.failFor {
		return 0, errors.New("duplicate")
	}
	w.tours = append(w.tours, tour)
	return int64(len(w.tours)), nil
}

func TestSeedUpsertsAgentsOnceAndSkipsFailures(t *testing.T) {
	entries, err := ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	entries = append(entries, entries[0])
	entries[2].Tour.Title = "Bali Again"

	writer := &recordingWriter{failFor: "Quiet Retreat"}
	created, err := Seed(context.Background(), writer, entries)
	if err == nil {
		t.Fatalf("expected joined failure")
	}
	if created != 2 {
		t.Fatalf("expected 2 created tours, got %d", created)
	}
	if len(writer.agents) != 2 {
		t.Fatalf("expected one upsert per agent, got %d", len(writer.agents))
	}
	if writer.tours[0].Agent.ID != 10 || writer.tours[1].Agent.ID != 10 {
		t.Fatalf("expected agent id propagated, got %+v", writer.tours)
	}
}
