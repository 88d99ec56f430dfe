package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/query"
	"github.com/shenikar/pothole_tracker/internal/service"
)

// PostgresIncidentRepository хранит документы инцидентов в таблице incidents (id, doc jsonb)
type PostgresIncidentRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewPostgresIncidentRepository(db *pgxpool.Pool) service.IncidentRepository {
	return &PostgresIncidentRepository{
		db:  db,
		now: time.Now,
	}
}

// Save создает новую запись об инциденте в бд
func (r *PostgresIncidentRepository) Save(ctx context.Context, incident *models.Incident) (string, error) {
	stampCreated(incident, r.now())
	incident.ID = uuid.NewString()

	doc, err := incident.Document()
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO incidents (id, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4);
	`
	if _, err := r.db.Exec(ctx, query, incident.ID, doc, incident.CreatedAt.Time, incident.UpdatedAt.Time); err != nil {
		return "", fmt.Errorf("failed to create incident: %w", err)
	}
	return incident.ID, nil
}

// Get возвращает инцидент по id или nil, если его нет
func (r *PostgresIncidentRepository) Get(ctx context.Context, id string) (*models.Incident, error) {
	var doc models.Document
	err := r.db.QueryRow(ctx, `SELECT doc FROM incidents WHERE id = $1;`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return decodeIncident(id, doc)
}

// List возвращает инциденты; severity и status отбираются в бд, остальные условия - фильтром
func (r *PostgresIncidentRepository) List(ctx context.Context, filter query.Filter) ([]*models.Incident, error) {
	sql := `
		SELECT id, doc
		FROM incidents
		WHERE ($1 = '' OR doc->>'severity' = $1)
			AND ($2 = '' OR doc->>'status' = $2);
	`
	rows, err := r.db.Query(ctx, sql, string(filter.Severity), string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		var (
			id  string
			doc models.Document
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incident, err := decodeIncident(id, doc)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return query.Apply(incidents, filter), nil
}

// Update блокирует строку, применяет частичное обновление и записывает документ обратно
func (r *PostgresIncidentRepository) Update(ctx context.Context, id string, update models.IncidentUpdate) (bool, error) {
	found := false
	err := r.withLockedIncident(ctx, id, func(incident *models.Incident) bool {
		found = true
		models.Apply(incident, update, r.now())
		return true
	})
	if err != nil {
		return false, fmt.Errorf("failed to update incident: %w", err)
	}
	return found, nil
}

// Delete удаляет запись об инциденте
func (r *PostgresIncidentRepository) Delete(ctx context.Context, id string) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1;`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete incident: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// AppendComment добавляет комментарий под блокировкой строки
func (r *PostgresIncidentRepository) AppendComment(ctx context.Context, id string, draft models.Comment) (*models.Comment, error) {
	var comment *models.Comment
	err := r.withLockedIncident(ctx, id, func(incident *models.Incident) bool {
		now := r.now()
		c := incident.NextComment(draft.Text, draft.Author, draft.AuthorID, now)
		models.Apply(incident, models.IncidentUpdate{}, now)
		comment = &c
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append comment: %w", err)
	}
	return comment, nil
}

// withLockedIncident читает документ с SELECT ... FOR UPDATE и сохраняет его, если fn вернула true.
// Отсутствие строки не ошибка: fn просто не вызывается.
func (r *PostgresIncidentRepository) withLockedIncident(ctx context.Context, id string, fn func(*models.Incident) bool) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var doc models.Document
		err := tx.QueryRow(ctx, `SELECT doc FROM incidents WHERE id = $1 FOR UPDATE;`, id).Scan(&doc)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}

		incident, err := decodeIncident(id, doc)
		if err != nil {
			return err
		}
		if !fn(incident) {
			return nil
		}

		updated, err := incident.Document()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE incidents SET doc = $1, updated_at = $2 WHERE id = $3;`,
			updated, incident.UpdatedAt.Time, id)
		return err
	})
}

// decodeIncident восстанавливает инцидент из jsonb; id берется из строки, а не из документа
func decodeIncident(id string, doc models.Document) (*models.Incident, error) {
	incident, err := models.IncidentFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("incident %s: %w", id, err)
	}
	incident.ID = id
	return incident, nil
}
