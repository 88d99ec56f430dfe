package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/query"
	"github.com/shenikar/pothole_tracker/internal/service"
	"github.com/sirupsen/logrus"
)

const incidentsFile = "incidents.json"

// FileIncidentRepository хранит все инциденты одним документом incidents.json, ключ - id
type FileIncidentRepository struct {
	incidents *Collection[*models.Incident]
	now       func() time.Time
}

func NewFileIncidentRepository(dataDir string, logger *logrus.Logger) service.IncidentRepository {
	return &FileIncidentRepository{
		incidents: NewCollection[*models.Incident](dataDir, incidentsFile, logger),
		now:       time.Now,
	}
}

// Save присваивает инциденту новый id и created_at и сохраняет его
func (r *FileIncidentRepository) Save(ctx context.Context, incident *models.Incident) (string, error) {
	stampCreated(incident, r.now())

	err := r.incidents.Mutate(func(docs map[string]*models.Incident) (bool, error) {
		incident.ID = uuid.NewString()
		for docs[incident.ID] != nil {
			incident.ID = uuid.NewString()
		}
		docs[incident.ID] = incident.Clone()
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return incident.ID, nil
}

// Get возвращает инцидент по id или nil, если его нет
func (r *FileIncidentRepository) Get(ctx context.Context, id string) (*models.Incident, error) {
	docs := r.incidents.Load()
	incident, ok := docs[id]
	if !ok || incident == nil {
		return nil, nil
	}
	incident.ID = id
	return incident, nil
}

// List возвращает все инциденты или только прошедшие фильтр; порядок не определен
func (r *FileIncidentRepository) List(ctx context.Context, filter query.Filter) ([]*models.Incident, error) {
	docs := r.incidents.Load()
	incidents := make([]*models.Incident, 0, len(docs))
	for id, incident := range docs {
		if incident == nil {
			continue
		}
		incident.ID = id
		incidents = append(incidents, incident)
	}
	if filter.IsEmpty() {
		return incidents, nil
	}
	return query.Apply(incidents, filter), nil
}

// Update применяет частичное обновление; false - инцидента с таким id нет
func (r *FileIncidentRepository) Update(ctx context.Context, id string, update models.IncidentUpdate) (bool, error) {
	found := false
	err := r.incidents.Mutate(func(docs map[string]*models.Incident) (bool, error) {
		incident, ok := docs[id]
		if !ok || incident == nil {
			return false, nil
		}
		found = true
		models.Apply(incident, update, r.now())
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Delete физически удаляет инцидент; false - инцидента с таким id нет
func (r *FileIncidentRepository) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := r.incidents.Mutate(func(docs map[string]*models.Incident) (bool, error) {
		if _, ok := docs[id]; !ok {
			return false, nil
		}
		found = true
		delete(docs, id)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// AppendComment добавляет комментарий в рамках одной записи коллекции; nil - инцидента нет
func (r *FileIncidentRepository) AppendComment(ctx context.Context, id string, draft models.Comment) (*models.Comment, error) {
	var comment *models.Comment
	err := r.incidents.Mutate(func(docs map[string]*models.Incident) (bool, error) {
		incident, ok := docs[id]
		if !ok || incident == nil {
			return false, nil
		}
		now := r.now()
		c := incident.NextComment(draft.Text, draft.Author, draft.AuthorID, now)
		models.Apply(incident, models.IncidentUpdate{}, now)
		comment = &c
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func stampCreated(incident *models.Incident, now time.Time) {
	incident.CreatedAt = models.NewTimestamp(now)
	if incident.UpdatedAt.IsZero() || incident.UpdatedAt.Before(incident.CreatedAt.Time) {
		incident.UpdatedAt = incident.CreatedAt
	}
}
