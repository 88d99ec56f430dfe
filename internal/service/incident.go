package service

//go:generate mockgen -source=incident.go -destination=mocks/incident_mock.go -package=mocks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/query"
	"github.com/shenikar/pothole_tracker/internal/webhook"
	"github.com/sirupsen/logrus"
)

// IncidentRepository определяет контракт хранилища инцидентов.
// Отсутствие записи не ошибка: Get/AppendComment возвращают nil, Update/Delete - false.
type IncidentRepository interface {
	Save(ctx context.Context, incident *models.Incident) (string, error)
	Get(ctx context.Context, id string) (*models.Incident, error)
	List(ctx context.Context, filter query.Filter) ([]*models.Incident, error)
	Update(ctx context.Context, id string, update models.IncidentUpdate) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	AppendComment(ctx context.Context, id string, draft models.Comment) (*models.Comment, error)
}

// IncidentCache определяет контракт кэша инцидентов; промах - (nil, nil)
type IncidentCache interface {
	GetIncidentFromCache(ctx context.Context, id string) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id string) error
}

// IncidentService определяет контракт для бизнес-логики управления инцидентами
type IncidentService interface {
	ReportIncident(ctx context.Context, input models.NewIncidentInput) (*models.Incident, error)
	CreateIncident(ctx context.Context, principal models.Principal, input models.NewIncidentInput) (*models.Incident, error)
	GetIncident(ctx context.Context, id string) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter query.Filter) ([]*models.Incident, error)
	UpdateIncident(ctx context.Context, principal models.Principal, id string, update models.IncidentUpdate) (*models.Incident, error)
	UpdateStatus(ctx context.Context, principal models.Principal, id string, status models.Status) (*models.Incident, error)
	AssignIncident(ctx context.Context, principal models.Principal, id, userID string) (*models.Incident, error)
	AddComment(ctx context.Context, principal models.Principal, id, text string) (*models.Comment, error)
	DeleteIncident(ctx context.Context, principal models.Principal, id string) error
}

type incidentService struct {
	repo      IncidentRepository
	cache     IncidentCache
	publisher webhook.WebhookPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewIncidentService(repo IncidentRepository, cache IncidentCache, publisher webhook.WebhookPublisher, logger *logrus.Logger) IncidentService {
	return &incidentService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ReportIncident сохраняет анонимное сообщение с публичной страницы
func (s *incidentService) ReportIncident(ctx context.Context, input models.NewIncidentInput) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "ReportIncident",
		"severity": input.Severity,
	})
	log.Info("Attempting to save a public report")

	input.CreatedBy = ""
	incident, err := s.create(ctx, input)
	if err != nil {
		log.WithError(err).Warn("Failed to save public report")
		return nil, err
	}

	log.WithField("incident_id", incident.ID).Info("Public report saved")
	s.publish(ctx, webhook.EventReported, incident.ID, "", incident)
	return incident, nil
}

// CreateIncident создает инцидент от имени оператора
func (s *incidentService) CreateIncident(ctx context.Context, principal models.Principal, input models.NewIncidentInput) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "CreateIncident",
		"user_id": principal.ID,
	})
	log.Info("Attempting to create a new incident")

	input.CreatedBy = principal.ID
	incident, err := s.create(ctx, input)
	if err != nil {
		log.WithError(err).Warn("Failed to create incident")
		return nil, err
	}

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	s.publish(ctx, webhook.EventCreated, incident.ID, principal.ID, incident)
	return incident, nil
}

func (s *incidentService) create(ctx context.Context, input models.NewIncidentInput) (*models.Incident, error) {
	incident, err := models.NewIncident(input, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.repo.Save(ctx, incident); err != nil {
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}
	return incident, nil
}

// GetIncident получает инцидент по ID, сначала из кэша
func (s *incidentService) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})
	log.Debug("Fetching incident by ID")

	cached, err := s.cache.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.Get(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to get incident in repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}
	if incident == nil {
		return nil, fmt.Errorf("service: incident %s: %w", id, ErrNotFound)
	}

	if err := s.cache.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents возвращает инциденты, прошедшие фильтр; порядок задает вызывающий
func (s *incidentService) ListIncidents(ctx context.Context, filter query.Filter) ([]*models.Incident, error) {
	incidents, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service": "incident",
			"method":  "ListIncidents",
		}).WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}
	return incidents, nil
}

// UpdateIncident применяет правку полей инцидента
func (s *incidentService) UpdateIncident(ctx context.Context, principal models.Principal, id string, update models.IncidentUpdate) (*models.Incident, error) {
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	event := webhook.EventUpdated
	if update.Status.Set && onlyStatus(update) {
		event = webhook.EventStatusChanged
	}
	return s.update(ctx, principal, "UpdateIncident", id, update, event)
}

// UpdateStatus меняет статус инцидента
func (s *incidentService) UpdateStatus(ctx context.Context, principal models.Principal, id string, status models.Status) (*models.Incident, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.update(ctx, principal, "UpdateStatus", id, models.IncidentUpdate{Status: models.Set(status)}, webhook.EventStatusChanged)
}

// AssignIncident назначает исполнителя и переводит инцидент в работу.
// Пустой userID означает назначение на самого вызывающего.
func (s *incidentService) AssignIncident(ctx context.Context, principal models.Principal, id, userID string) (*models.Incident, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = principal.ID
	}
	update := models.IncidentUpdate{
		AssignedTo: models.Set(&userID),
		Status:     models.Set(models.StatusInProgress),
	}
	return s.update(ctx, principal, "AssignIncident", id, update, webhook.EventAssigned)
}

func (s *incidentService) update(ctx context.Context, principal models.Principal, method, id string, update models.IncidentUpdate, event webhook.EventType) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      method,
		"incident_id": id,
		"user_id":     principal.ID,
	})
	log.Info("Attempting to update incident")

	found, err := s.repo.Update(ctx, id, update)
	if err != nil {
		log.WithError(err).Error("Failed to update incident in repository")
		return nil, fmt.Errorf("service: could not update incident: %w", err)
	}
	if !found {
		log.Warn("Attempted to update a non-existent incident")
		return nil, fmt.Errorf("service: incident %s not found for update: %w", id, ErrNotFound)
	}
	s.invalidate(ctx, log, id)

	incident, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not reload incident: %w", err)
	}
	if incident == nil {
		return nil, fmt.Errorf("service: incident %s: %w", id, ErrNotFound)
	}

	log.Info("Incident updated successfully")
	s.publish(ctx, event, id, principal.ID, incident)
	return incident, nil
}

// AddComment добавляет комментарий от имени вызывающего
func (s *incidentService) AddComment(ctx context.Context, principal models.Principal, id, text string) (*models.Comment, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "AddComment",
		"incident_id": id,
		"user_id":     principal.ID,
	})

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment cannot be empty", ErrValidation)
	}

	comment, err := s.repo.AppendComment(ctx, id, models.Comment{
		Text:     text,
		Author:   principal.Username,
		AuthorID: principal.ID,
	})
	if err != nil {
		log.WithError(err).Error("Failed to append comment in repository")
		return nil, fmt.Errorf("service: could not add comment: %w", err)
	}
	if comment == nil {
		log.Warn("Attempted to comment a non-existent incident")
		return nil, fmt.Errorf("service: incident %s not found for comment: %w", id, ErrNotFound)
	}
	s.invalidate(ctx, log, id)

	log.WithField("comment_id", comment.ID).Info("Comment added")
	s.publish(ctx, webhook.EventCommented, id, principal.ID, nil)
	return comment, nil
}

// DeleteIncident удаляет инцидент; доступно только администратору
func (s *incidentService) DeleteIncident(ctx context.Context, principal models.Principal, id string) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "DeleteIncident",
		"incident_id": id,
		"user_id":     principal.ID,
	})
	log.Info("Attempting to delete incident")

	if !principal.IsAdmin() {
		log.Warn("Non-admin attempted to delete incident")
		return fmt.Errorf("service: only admins can delete incidents: %w", ErrForbidden)
	}

	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to delete incident in repository")
		return fmt.Errorf("service: could not delete incident: %w", err)
	}
	if !found {
		log.Warn("Attempted to delete a non-existent incident")
		return fmt.Errorf("service: incident %s not found for delete: %w", id, ErrNotFound)
	}
	s.invalidate(ctx, log, id)

	log.Info("Incident deleted successfully")
	s.publish(ctx, webhook.EventDeleted, id, principal.ID, nil)
	return nil
}

func (s *incidentService) invalidate(ctx context.Context, log *logrus.Entry, id string) {
	if err := s.cache.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
}

// publish отправляет событие; ошибка доставки в очередь не влияет на результат операции
func (s *incidentService) publish(ctx context.Context, eventType webhook.EventType, id, actorID string, incident *models.Incident) {
	event := webhook.IncidentEvent{
		Type:       eventType,
		IncidentID: id,
		ActorID:    actorID,
		Timestamp:  s.now().UTC(),
		Incident:   incident,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Warn("Failed to publish incident event")
	}
}

func validStatus(status models.Status) bool {
	for _, st := range models.Statuses {
		if st == status {
			return true
		}
	}
	return false
}

func onlyStatus(u models.IncidentUpdate) bool {
	u.Status = models.Patch[models.Status]{}
	return u.IsEmpty()
}
