package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

func newTourRepoWithMock(t *testing.T) (*TourRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewTourRepository(db), mock, func() { _ = db.Close() }
}

func tourRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "destination", "hotel_name", "price_cents",
		"start_date", "end_date", "visa_required", "meal_plan", "flight_type", "is_active", "created_at",
		"agent_id", "username", "first_name", "last_name", "company_name",
	})
}

func addTourRow(rows *sqlmock.Rows, id int64, destination string, cents int64, company interface{}) *sqlmock.Rows {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, "Tour", "desc", destination, "Hotel", cents,
		start, start.AddDate(0, 0, 7), true, "half_board", "direct", true, start,
		int64(9), "agent1", "Ann", "Lee", company,
	)
}

func TestTourRepositoryFindBuildsPredicates(t *testing.T) {
	repo, mock, done := newTourRepoWithMock(t)
	defer done()

	maxPrice := domain.MoneyFromFloat(1000)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tours t JOIN tour_agents a ON a.id = t.agent_id WHERE t.is_active = $1 AND t.destination ILIKE $2 AND t.price_cents <= $3 ORDER BY t.price_cents ASC, t.id ASC LIMIT 5")).
		WithArgs(true, "%Japan%", int64(100000)).
		WillReturnRows(addTourRow(tourRows(), 8, "Kyoto, Japan", 95000, "Sakura Travel"))

	tours, err := repo.Find(context.Background(), domain.TourFilter{
		DestinationContains: "Japan",
		MaxPrice:            &maxPrice,
		OrderBy:             domain.TourOrderPrice,
		Limit:               5,
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(tours) != 1 {
		t.Fatalf("expected 1 tour, got %d", len(tours))
	}
	tour := tours[0]
	if tour.Price != 95000 || tour.MealPlan != domain.MealPlanHalfBoard || tour.FlightType != domain.FlightTypeDirect {
		t.Fatalf("unexpected tour %+v", tour)
	}
	if tour.Agent.CompanyName == nil || *tour.Agent.CompanyName != "Sakura Travel" {
		t.Fatalf("expected company name, got %v", tour.Agent.CompanyName)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTourRepositoryFindEscapesLikePatterns(t *testing.T) {
	repo, mock, done := newTourRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM tours t").
		WithArgs(true, `%100\%%`, `%100\%%`).
		WillReturnRows(tourRows())

	tours, err := repo.Find(context.Background(), domain.TourFilter{TextContains: "100%"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(tours) != 0 {
		t.Fatalf("expected no tours, got %d", len(tours))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTourRepositoryGetActiveByIDs(t *testing.T) {
	repo, mock, done := newTourRepoWithMock(t)
	defer done()

	rows := addTourRow(tourRows(), 3, "Tokyo, Japan", 359900, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.is_active = $1 AND t.id IN ($2,$3)")).
		WithArgs(true, int64(3), int64(8)).
		WillReturnRows(rows)

	tours, err := repo.GetActiveByIDs(context.Background(), []int64{3, 8})
	if err != nil {
		t.Fatalf("GetActiveByIDs() error = %v", err)
	}
	if len(tours) != 1 || tours[0].Agent.CompanyName != nil {
		t.Fatalf("unexpected tours %+v", tours)
	}

	empty, err := repo.GetActiveByIDs(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no query for empty ids, got %v %v", empty, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTourRepositoryListDestinations(t *testing.T) {
	repo, mock, done := newTourRepoWithMock(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT destination FROM tours WHERE is_active = $1")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"destination"}).AddRow("Bali, Indonesia").AddRow("Tokyo, Japan"))

	got, err := repo.ListDestinations(context.Background())
	if err != nil {
		t.Fatalf("ListDestinations() error = %v", err)
	}
	if len(got) != 2 || got[0] != "Bali, Indonesia" {
		t.Fatalf("unexpected destinations %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTourRepositoryUpsertAgent(t *testing.T) {
	repo, mock, done := newTourRepoWithMock(t)
	defer done()

	mock.ExpectQuery("INSERT INTO tour_agents").
		WithArgs("sarah", "Sarah", "Lee", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	blank := "  "
	id, err := repo.UpsertAgent(context.Background(), domain.TourAgent{Username: "sarah", FirstName: "Sarah", LastName: "Lee", CompanyName: &blank})
	if err != nil {
		t.Fatalf("UpsertAgent() error = %v", err)
	}
	if id != 7 {
		t.Fatalf("expected id 7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTourRepositoryCreateTourValidatesBeforeInsert(t *testing.T) {
	repo, mock, done := newTourRepoWithMock(t)
	defer done()

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.CreateTour(context.Background(), domain.Tour{
		Title:       "Backwards",
		Destination: "Lima, Peru",
		StartDate:   start,
		EndDate:     start,
		MealPlan:    domain.MealPlanRoomOnly,
		FlightType:  domain.FlightTypeDirect,
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTourRepositoryCreateTourReturnsID(t *testing.T) {
	repo, mock, done := newTourRepoWithMock(t)
	defer done()

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO tours").
		WithArgs(int64(7), "Inca Trail", "", "Cusco, Peru", "", int64(189900), start, start.AddDate(0, 0, 5), true,
			"full_board", "layover", true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.CreateTour(context.Background(), domain.Tour{
		Title:        "Inca Trail",
		Destination:  "Cusco, Peru",
		Price:        domain.MoneyFromFloat(1899),
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, 5),
		VisaRequired: true,
		MealPlan:     domain.MealPlanFullBoard,
		FlightType:   domain.FlightTypeLayover,
		IsActive:     true,
		Agent:        domain.TourAgent{ID: 7},
	})
	if err != nil {
		t.Fatalf("CreateTour() error = %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTourRepositoryPropagatesQueryError(t *testing.T) {
	repo, mock, done := newTourRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM tours t").WillReturnError(sql.ErrConnDone)
	if _, err := repo.ListActive(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
