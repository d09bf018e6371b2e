package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OldStager01/predictify/pkg/database"
	"github.com/OldStager01/predictify/pkg/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `
	id, slug, title, description, short_description, category, status,
	start_date, location, capacity, interested_count, registered_count,
	price, currency, is_free, is_featured, is_trending, tags, organizer,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *EventRepository) List(ctx context.Context) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *EventRepository) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slug = $1`
	return r.getOne(ctx, query, slug)
}

func (r *EventRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Event, error) {
	event, err := scanEvent(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, models.ErrEventNotFound
	}
	return event, err
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	location, organizer, tags, err := marshalEventJSON(event)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO events (
			id, slug, title, description, short_description, category, status,
			start_date, location, capacity, interested_count, registered_count,
			price, currency, is_free, is_featured, is_trending, tags,
			organizer_id, organizer, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22)`

	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.Slug, event.Title, event.Description, event.ShortDescription,
		event.Category, event.Status, event.StartDate, location, event.Capacity,
		event.InterestedCount, event.RegisteredCount, event.Price, event.Currency,
		event.IsFree, event.IsFeatured, event.IsTrending, tags,
		event.Organizer.ID, organizer, event.CreatedAt, event.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return models.ErrSlugTaken
	}
	return err
}

// Update writes the editable columns of an event. Status and the interest
// counters have their own statements and are left untouched.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	location, organizer, tags, err := marshalEventJSON(event)
	if err != nil {
		return err
	}

	query := `
		UPDATE events SET
			slug = $2, title = $3, description = $4, short_description = $5,
			category = $6, start_date = $7, location = $8, capacity = $9,
			price = $10, currency = $11, is_free = $12, is_featured = $13,
			is_trending = $14, tags = $15, organizer_id = $16, organizer = $17,
			updated_at = $18
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		event.ID, event.Slug, event.Title, event.Description, event.ShortDescription,
		event.Category, event.StartDate, location, event.Capacity,
		event.Price, event.Currency, event.IsFree, event.IsFeatured, event.IsTrending,
		tags, event.Organizer.ID, organizer, event.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return models.ErrSlugTaken
	}
	if err != nil {
		return err
	}
	return requireAffected(result, models.ErrEventNotFound)
}

// UpdateStatus moves an event from one status to another. It fails with
// models.ErrStatusConflict when the stored status is no longer from.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, from, to models.EventStatus, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		id, to, at, from,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return models.ErrEventNotFound
	}
	return models.ErrStatusConflict
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result, models.ErrEventNotFound)
}

// AddInterest records a user's interest once and returns the new count.
func (r *EventRepository) AddInterest(ctx context.Context, eventID string, userID int) (int, error) {
	var count int
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, eventID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return models.ErrEventNotFound
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO event_interests (event_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, eventID, userID)
		if err != nil {
			return err
		}
		if err := requireAffected(result, models.ErrAlreadyInterested); err != nil {
			return err
		}

		return tx.QueryRowContext(ctx, `
			UPDATE events SET interested_count = interested_count + 1, updated_at = $2
			WHERE id = $1
			RETURNING interested_count`, eventID, time.Now().UTC()).Scan(&count)
	})
	return count, err
}

func marshalEventJSON(event *models.Event) (location, organizer, tags []byte, err error) {
	if location, err = json.Marshal(event.Location); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode location: %w", err)
	}
	if organizer, err = json.Marshal(event.Organizer); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode organizer: %w", err)
	}
	eventTags := event.Tags
	if eventTags == nil {
		eventTags = []string{}
	}
	if tags, err = json.Marshal(eventTags); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return location, organizer, tags, nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		event                     models.Event
		location, organizer, tags []byte
	)

	err := row.Scan(
		&event.ID, &event.Slug, &event.Title, &event.Description, &event.ShortDescription,
		&event.Category, &event.Status, &event.StartDate, &location, &event.Capacity,
		&event.InterestedCount, &event.RegisteredCount, &event.Price, &event.Currency,
		&event.IsFree, &event.IsFeatured, &event.IsTrending, &tags, &organizer,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(location, &event.Location); err != nil {
		return nil, fmt.Errorf("failed to decode location: %w", err)
	}
	if err := json.Unmarshal(organizer, &event.Organizer); err != nil {
		return nil, fmt.Errorf("failed to decode organizer: %w", err)
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &event.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}

	return &event, nil
}
