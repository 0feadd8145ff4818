package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

const dateLayout = "2006-01-02"

// Entry is one tour together with the agent that sells it.
type Entry struct {
	Agent domain.TourAgent
	Tour  domain.Tour
}

type yamlCatalog struct {
	Agents []agentRecord `yaml:"agents"`
	Tours  []tourRecord  `yaml:"tours"`
}

type agentRecord struct {
	Username    string `yaml:"username"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	CompanyName string `yaml:"company_name"`
}

type tourRecord struct {
	Title        string  `yaml:"title"`
	Description  string  `yaml:"description"`
	Destination  string  `yaml:"destination"`
	HotelName    string  `yaml:"hotel_name"`
	Price        float64 `yaml:"price"`
	StartDate    string  `yaml:"start_date"`
	EndDate      string  `yaml:"end_date"`
	VisaRequired bool    `yaml:"visa_required"`
	MealPlan     string  `yaml:"meal_plan"`
	FlightType   string  `yaml:"flight_type"`
	Agent        string  `yaml:"agent"`
	IsActive     *bool   `yaml:"is_active"`
}

// LoadFile reads a catalog from a .yaml/.yml or .xlsx file. Every entry is
// validated; the first invalid row fails the whole load.
func LoadFile(path string) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		return ParseYAML(data)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "load catalog", fmt.Errorf("unsupported catalog format %q", filepath.Ext(path)))
	}
}

func ParseYAML(data []byte) ([]Entry, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	agents := make(map[string]domain.TourAgent, len(doc.Agents))
	for _, rec := range doc.Agents {
		username := strings.TrimSpace(rec.Username)
		if username == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse catalog", fmt.Errorf("agent username is required"))
		}
		agents[username] = agentFromRecord(rec)
	}

	entries := make([]Entry, 0, len(doc.Tours))
	for i, rec := range doc.Tours {
		agent, ok := agents[strings.TrimSpace(rec.Agent)]
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse catalog", fmt.Errorf("tour %d (%q): unknown agent %q", i+1, rec.Title, rec.Agent))
		}
		entry, err := buildEntry(agent, rec)
		if err != nil {
			return nil, fmt.Errorf("tour %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func agentFromRecord(rec agentRecord) domain.TourAgent {
	agent := domain.TourAgent{
		Username:  strings.TrimSpace(rec.Username),
		FirstName: strings.TrimSpace(rec.FirstName),
		LastName:  strings.TrimSpace(rec.LastName),
	}
	if company := strings.TrimSpace(rec.CompanyName); company != "" {
		agent.CompanyName = &company
	}
	return agent
}

func buildEntry(agent domain.TourAgent, rec tourRecord) (Entry, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(rec.StartDate))
	if err != nil {
		return Entry{}, domain.WrapError(domain.ErrInvalidInput, "parse catalog", fmt.Errorf("start_date of %q: %w", rec.Title, err))
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(rec.EndDate))
	if err != nil {
		return Entry{}, domain.WrapError(domain.ErrInvalidInput, "parse catalog", fmt.Errorf("end_date of %q: %w", rec.Title, err))
	}
	active := true
	if rec.IsActive != nil {
		active = *rec.IsActive
	}

	tour := domain.Tour{
		Title:        strings.TrimSpace(rec.Title),
		Description:  strings.TrimSpace(rec.Description),
		Destination:  strings.TrimSpace(rec.Destination),
		HotelName:    strings.TrimSpace(rec.HotelName),
		Price:        domain.MoneyFromFloat(rec.Price),
		StartDate:    start,
		EndDate:      end,
		VisaRequired: rec.VisaRequired,
		MealPlan:     domain.MealPlan(strings.TrimSpace(rec.MealPlan)),
		FlightType:   domain.FlightType(strings.TrimSpace(rec.FlightType)),
		IsActive:     active,
		Agent:        agent,
	}
	if err := tour.Validate(); err != nil {
		return Entry{}, err
	}
	return Entry{Agent: agent, Tour: tour}, nil
}
