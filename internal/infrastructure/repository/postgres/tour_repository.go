package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
)

var tourColumns = []string{
	"t.id",
	"t.title",
	"t.description",
	"t.destination",
	"t.hotel_name",
	"t.price_cents",
	"t.start_date",
	"t.end_date",
	"t.visa_required",
	"t.meal_plan",
	"t.flight_type",
	"t.is_active",
	"t.created_at",
	"a.id",
	"a.username",
	"a.first_name",
	"a.last_name",
	"a.company_name",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// TourRepository reads and writes the tour catalog. Reads only ever see active tours.
type TourRepository struct {
	sb sq.StatementBuilderType
}

func NewTourRepository(db *sql.DB) *TourRepository {
	return &TourRepository{
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db),
	}
}

func (r *TourRepository) activeTours() sq.SelectBuilder {
	return r.sb.
		Select(tourColumns...).
		From("tours t").
		Join("tour_agents a ON a.id = t.agent_id").
		Where(sq.Eq{"t.is_active": true})
}

func (r *TourRepository) Find(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error) {
	qry := r.activeTours()

	if destination := strings.TrimSpace(filter.DestinationContains); destination != "" {
		qry = qry.Where(sq.ILike{"t.destination": containsPattern(destination)})
	}
	if text := strings.TrimSpace(filter.TextContains); text != "" {
		pattern := containsPattern(text)
		qry = qry.Where(sq.Or{
			sq.ILike{"t.title": pattern},
			sq.ILike{"t.description": pattern},
		})
	}
	if filter.MinPrice != nil {
		qry = qry.Where(sq.GtOrEq{"t.price_cents": int64(*filter.MinPrice)})
	}
	if filter.MaxPrice != nil {
		qry = qry.Where(sq.LtOrEq{"t.price_cents": int64(*filter.MaxPrice)})
	}
	if filter.VisaRequired != nil {
		qry = qry.Where(sq.Eq{"t.visa_required": *filter.VisaRequired})
	}
	if filter.MealPlan != "" {
		qry = qry.Where(sq.Eq{"t.meal_plan": filter.MealPlan})
	}
	if filter.StartFrom != nil {
		qry = qry.Where(sq.GtOrEq{"t.start_date": *filter.StartFrom})
	}
	if filter.StartTo != nil {
		qry = qry.Where(sq.LtOrEq{"t.start_date": *filter.StartTo})
	}

	qry = applyTourOrder(qry, filter.OrderBy)
	if filter.Limit > 0 {
		qry = qry.Limit(uint64(filter.Limit))
	}
	return r.query(ctx, qry, "find tours")
}

func (r *TourRepository) ListActive(ctx context.Context) ([]domain.Tour, error) {
	return r.query(ctx, applyTourOrder(r.activeTours(), domain.TourOrderDefault), "list active tours")
}

func (r *TourRepository) GetActiveByIDs(ctx context.Context, ids []int64) ([]domain.Tour, error) {
	if len(ids) == 0 {
		return []domain.Tour{}, nil
	}
	qry := r.activeTours().Where(sq.Eq{"t.id": ids})
	return r.query(ctx, applyTourOrder(qry, domain.TourOrderDefault), "get tours by ids")
}

func (r *TourRepository) ListDestinations(ctx context.Context) ([]string, error) {
	rows, err := r.sb.
		Select("DISTINCT destination").
		From("tours").
		Where(sq.Eq{"is_active": true}).
		OrderBy("destination ASC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var destination string
		if err := rows.Scan(&destination); err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}
		out = append(out, destination)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate destinations: %w", err)
	}
	return out, nil
}

// UpsertAgent inserts the agent or refreshes its profile, keyed by username.
func (r *TourRepository) UpsertAgent(ctx context.Context, agent domain.TourAgent) (int64, error) {
	var id int64
	err := r.sb.
		Insert("tour_agents").
		Columns("username", "first_name", "last_name", "company_name").
		Values(agent.Username, agent.FirstName, agent.LastName, nullableString(agent.CompanyName)).
		Suffix("ON CONFLICT (username) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, company_name = EXCLUDED.company_name RETURNING id").
		QueryRowContext(ctx).
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert agent %s: %w", agent.Username, err)
	}
	return id, nil
}

func (r *TourRepository) CreateTour(ctx context.Context, tour domain.Tour) (int64, error) {
	if err := tour.Validate(); err != nil {
		return 0, err
	}
	createdAt := tour.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id int64
	err := r.sb.
		Insert("tours").
		Columns(
			"agent_id",
			"title",
			"description",
			"destination",
			"hotel_name",
			"price_cents",
			"start_date",
			"end_date",
			"visa_required",
			"meal_plan",
			"flight_type",
			"is_active",
			"created_at",
		).
		Values(
			tour.Agent.ID,
			tour.Title,
			tour.Description,
			tour.Destination,
			tour.HotelName,
			int64(tour.Price),
			tour.StartDate,
			tour.EndDate,
			tour.VisaRequired,
			string(tour.MealPlan),
			string(tour.FlightType),
			tour.IsActive,
			createdAt,
		).
		Suffix("RETURNING id").
		QueryRowContext(ctx).
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert tour %q: %w", tour.Title, err)
	}
	return id, nil
}

func (r *TourRepository) query(ctx context.Context, qry sq.SelectBuilder, operation string) ([]domain.Tour, error) {
	rows, err := qry.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer rows.Close()

	out := make([]domain.Tour, 0)
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", operation, err)
		}
		out = append(out, tour)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s iterate: %w", operation, err)
	}
	return out, nil
}

func applyTourOrder(qry sq.SelectBuilder, order domain.TourOrder) sq.SelectBuilder {
	switch order {
	case domain.TourOrderPrice:
		return qry.OrderBy("t.price_cents ASC", "t.id ASC")
	case domain.TourOrderDestination:
		return qry.OrderBy("t.destination ASC", "t.id ASC")
	case domain.TourOrderStartDate:
		return qry.OrderBy("t.start_date ASC", "t.id ASC")
	default:
		return qry.OrderBy("t.created_at DESC", "t.id DESC")
	}
}

func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTour(row rowScanner) (domain.Tour, error) {
	var (
		tour       domain.Tour
		priceCents int64
		mealPlan   string
		flightType string
		company    sql.NullString
	)
	err := row.Scan(
		&tour.ID,
		&tour.Title,
		&tour.Description,
		&tour.Destination,
		&tour.HotelName,
		&priceCents,
		&tour.StartDate,
		&tour.EndDate,
		&tour.VisaRequired,
		&mealPlan,
		&flightType,
		&tour.IsActive,
		&tour.CreatedAt,
		&tour.Agent.ID,
		&tour.Agent.Username,
		&tour.Agent.FirstName,
		&tour.Agent.LastName,
		&company,
	)
	if err != nil {
		return domain.Tour{}, err
	}
	tour.Price = domain.Money(priceCents)
	tour.MealPlan = domain.MealPlan(mealPlan)
	tour.FlightType = domain.FlightType(flightType)
	if company.Valid {
		name := company.String
		tour.Agent.CompanyName = &name
	}
	return tour, nil
}

func nullableString(v *string) interface{} {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return *v
}
