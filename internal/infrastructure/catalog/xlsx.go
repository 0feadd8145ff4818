package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

// XLSXColumns is the header row expected on the first sheet of a catalog workbook.
var XLSXColumns = []string{
	"title",
	"description",
	"destination",
	"hotel_name",
	"price",
	"start_date",
	"end_date",
	"visa_required",
	"meal_plan",
	"flight_type",
	"agent_username",
	"agent_first_name",
	"agent_last_name",
	"agent_company_name",
	"is_active",
}

var requiredXLSXColumns = []string{"title", "destination", "price", "start_date", "end_date", "meal_plan", "flight_type", "agent_username"}

// LoadXLSX reads one tour per row from the first sheet. Agents are inlined
// per row; the last row wins when the same username appears twice.
func LoadXLSX(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load catalog workbook", fmt.Errorf("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return []Entry{}, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredXLSXColumns {
		if _, ok := index[name]; !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load catalog workbook", fmt.Errorf("missing column %q", name))
		}
	}

	entries := make([]Entry, 0, len(rows)-1)
	for rowNum, row := range rows[1:] {
		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if isBlankRow(row) {
			continue
		}

		line := rowNum + 2
		price, err := strconv.ParseFloat(cell("price"), 64)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load catalog workbook", fmt.Errorf("row %d: price: %w", line, err))
		}
		visa, err := parseBoolCell(cell("visa_required"), false)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load catalog workbook", fmt.Errorf("row %d: visa_required: %w", line, err))
		}
		active, err := parseBoolCell(cell("is_active"), true)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load catalog workbook", fmt.Errorf("row %d: is_active: %w", line, err))
		}

		agent := agentFromRecord(agentRecord{
			Username:    cell("agent_username"),
			FirstName:   cell("agent_first_name"),
			LastName:    cell("agent_last_name"),
			CompanyName: cell("agent_company_name"),
		})
		if agent.Username == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load catalog workbook", fmt.Errorf("row %d: agent_username is required", line))
		}

		entry, err := buildEntry(agent, tourRecord{
			Title:        cell("title"),
			Description:  cell("description"),
			Destination:  cell("destination"),
			HotelName:    cell("hotel_name"),
			Price:        price,
			StartDate:    cell("start_date"),
			EndDate:      cell("end_date"),
			VisaRequired: visa,
			MealPlan:     cell("meal_plan"),
			FlightType:   cell("flight_type"),
			IsActive:     &active,
		})
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseBoolCell(raw string, fallback bool) (bool, error) {
	switch strings.ToLower(raw) {
	case "":
		return fallback, nil
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	default:
		return strconv.ParseBool(raw)
	}
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
