package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/query"
	"github.com/shenikar/pothole_tracker/internal/service/mocks"
	"github.com/shenikar/pothole_tracker/internal/webhook"
	webhook_mocks "github.com/shenikar/pothole_tracker/internal/webhook/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

var (
	operator = models.Principal{ID: "op-1", Username: "olga", Role: models.RoleOperator}
	admin    = models.Principal{ID: "admin", Username: "admin", Role: models.RoleAdmin}
)

type incidentMocks struct {
	repo      *mocks.MockIncidentRepository
	cache     *mocks.MockIncidentCache
	publisher *webhook_mocks.MockWebhookPublisher
}

// newTestIncidentService - вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, incidentMocks) {
	ctrl := gomock.NewController(t)
	m := incidentMocks{
		repo:      mocks.NewMockIncidentRepository(ctrl),
		cache:     mocks.NewMockIncidentCache(ctrl),
		publisher: webhook_mocks.NewMockWebhookPublisher(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	svc := NewIncidentService(m.repo, m.cache, m.publisher, logger).(*incidentService)
	svc.now = func() time.Time { return testNow }
	return svc, m
}

func expectEvent(t *testing.T, m incidentMocks, eventType webhook.EventType, incidentID, actorID string) {
	m.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event webhook.IncidentEvent) error {
			assert.Equal(t, eventType, event.Type)
			assert.Equal(t, incidentID, event.IncidentID)
			assert.Equal(t, actorID, event.ActorID)
			assert.Equal(t, testNow, event.Timestamp)
			return nil
		}).
		Times(1)
}

func TestGetIncident_Success_FromCache(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	expected := &models.Incident{ID: "inc-1", Location: "Main St"}

	// Ожидания
	m.cache.EXPECT().GetIncidentFromCache(ctx, "inc-1").Return(expected, nil).Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, "inc-1")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_Success_FromRepository(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	expected := &models.Incident{ID: "inc-1", Location: "Main St"}

	// Ожидания
	// 1. Промах кеша
	m.cache.EXPECT().GetIncidentFromCache(ctx, "inc-1").Return(nil, nil).Times(1)
	// 2. Чтение из хранилища
	m.repo.EXPECT().Get(ctx, "inc-1").Return(expected, nil).Times(1)
	// 3. Запись в кеш
	m.cache.EXPECT().SetIncidentCache(ctx, expected).Return(nil).Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, "inc-1")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_CacheErrorFallsBackToRepository(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	expected := &models.Incident{ID: "inc-1"}

	// Ожидания
	m.cache.EXPECT().GetIncidentFromCache(ctx, "inc-1").Return(nil, errors.New("redis down")).Times(1)
	m.repo.EXPECT().Get(ctx, "inc-1").Return(expected, nil).Times(1)
	m.cache.EXPECT().SetIncidentCache(ctx, expected).Return(errors.New("redis down")).Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, "inc-1")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	m.cache.EXPECT().GetIncidentFromCache(ctx, "missing").Return(nil, nil).Times(1)
	m.repo.EXPECT().Get(ctx, "missing").Return(nil, nil).Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, "missing")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetIncident_RepositoryError(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	m.cache.EXPECT().GetIncidentFromCache(ctx, "inc-1").Return(nil, nil).Times(1)
	m.repo.EXPECT().Get(ctx, "inc-1").Return(nil, errors.New("disk failure")).Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, "inc-1")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorContains(t, err, "could not get incident")
}

func TestCreateIncident_Success(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	input := models.NewIncidentInput{
		Location:    "  5th Avenue & Pine  ",
		Severity:    models.SeverityCritical,
		Description: "Wheel-sized hole",
	}

	// Ожидания
	m.repo.EXPECT().
		Save(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (string, error) {
			// Симулируем, что хранилище присвоило ID
			inc.ID = "inc-42"
			return inc.ID, nil
		}).Times(1)
	expectEvent(t, m, webhook.EventCreated, "inc-42", operator.ID)

	// Действие
	incident, err := svc.CreateIncident(ctx, operator, input)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, "inc-42", incident.ID)
	assert.Equal(t, "5th Avenue & Pine", incident.Location)
	assert.Equal(t, models.PriorityHigh, incident.Priority)
	assert.Equal(t, models.StatusReported, incident.Status)
	require.NotNil(t, incident.CreatedBy)
	assert.Equal(t, operator.ID, *incident.CreatedBy)
	assert.Nil(t, incident.AssignedTo)
}

func TestCreateIncident_EmptyLocation(t *testing.T) {
	// Подготовка
	svc, _ := newTestIncidentService(t)

	// Действие
	incident, err := svc.CreateIncident(context.Background(), operator, models.NewIncidentInput{Location: "   "})

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReportIncident_Anonymous(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	input := models.NewIncidentInput{Location: "Elm St", CreatedBy: "spoofed"}

	// Ожидания
	m.repo.EXPECT().
		Save(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (string, error) {
			inc.ID = "rep-1"
			return inc.ID, nil
		}).Times(1)
	expectEvent(t, m, webhook.EventReported, "rep-1", "")

	// Действие
	incident, err := svc.ReportIncident(ctx, input)

	// Проверки
	require.NoError(t, err)
	assert.Nil(t, incident.CreatedBy)
	assert.Equal(t, models.SeverityModerate, incident.Severity)
	assert.Equal(t, models.PriorityMedium, incident.Priority)
}

func TestReportIncident_PublishFailureDoesNotFail(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	m.repo.EXPECT().Save(ctx, gomock.Any()).Return("rep-1", nil).Times(1)
	m.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("queue full")).Times(1)

	// Действие
	incident, err := svc.ReportIncident(ctx, models.NewIncidentInput{Location: "Elm St"})

	// Проверки
	require.NoError(t, err)
	assert.NotNil(t, incident)
}

func TestListIncidents_PassesFilter(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	filter := query.Filter{Severity: models.SeverityMajor, AssignedTo: query.Unassigned}
	expected := []*models.Incident{{ID: "a"}, {ID: "b"}}

	// Ожидания
	m.repo.EXPECT().List(ctx, filter).Return(expected, nil).Times(1)

	// Действие
	incidents, err := svc.ListIncidents(ctx, filter)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}

func TestUpdateIncident_Success(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	update := models.IncidentUpdate{Severity: models.Set(models.SeverityMinor)}
	updated := &models.Incident{ID: "inc-1", Severity: models.SeverityMinor, Priority: models.PriorityLow}

	// Ожидания
	m.repo.EXPECT().Update(ctx, "inc-1", update).Return(true, nil).Times(1)
	m.cache.EXPECT().InvalidateIncidentCache(ctx, "inc-1").Return(nil).Times(1)
	m.repo.EXPECT().Get(ctx, "inc-1").Return(updated, nil).Times(1)
	expectEvent(t, m, webhook.EventUpdated, "inc-1", operator.ID)

	// Действие
	incident, err := svc.UpdateIncident(ctx, operator, "inc-1", update)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, updated, incident)
}

func TestUpdateIncident_StatusOnlyPublishesStatusChange(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	update := models.IncidentUpdate{Status: models.Set(models.StatusResolved)}

	// Ожидания
	m.repo.EXPECT().Update(ctx, "inc-1", update).Return(true, nil).Times(1)
	m.cache.EXPECT().InvalidateIncidentCache(ctx, "inc-1").Return(nil).Times(1)
	m.repo.EXPECT().Get(ctx, "inc-1").Return(&models.Incident{ID: "inc-1"}, nil).Times(1)
	expectEvent(t, m, webhook.EventStatusChanged, "inc-1", operator.ID)

	// Действие
	_, err := svc.UpdateIncident(ctx, operator, "inc-1", update)

	// Проверки
	require.NoError(t, err)
}

func TestUpdateIncident_EmptyLocationRejected(t *testing.T) {
	// Подготовка
	svc, _ := newTestIncidentService(t)

	// Действие
	_, err := svc.UpdateIncident(context.Background(), operator, "inc-1", models.IncidentUpdate{Location: models.Set("")})

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateIncident_NotFound(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	update := models.IncidentUpdate{Description: models.Set("deeper now")}

	// Ожидания
	m.repo.EXPECT().Update(ctx, "missing", update).Return(false, nil).Times(1)

	// Действие
	incident, err := svc.UpdateIncident(ctx, operator, "missing", update)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	// Подготовка
	svc, _ := newTestIncidentService(t)

	// Действие
	_, err := svc.UpdateStatus(context.Background(), operator, "inc-1", models.Status("closed"))

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus_Success(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	expectedUpdate := models.IncidentUpdate{Status: models.Set(models.StatusResolved)}

	// Ожидания
	m.repo.EXPECT().Update(ctx, "inc-1", expectedUpdate).Return(true, nil).Times(1)
	m.cache.EXPECT().InvalidateIncidentCache(ctx, "inc-1").Return(nil).Times(1)
	m.repo.EXPECT().Get(ctx, "inc-1").Return(&models.Incident{ID: "inc-1", Status: models.StatusResolved}, nil).Times(1)
	expectEvent(t, m, webhook.EventStatusChanged, "inc-1", operator.ID)

	// Действие
	incident, err := svc.UpdateStatus(ctx, operator, "inc-1", models.StatusResolved)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, incident.Status)
}

func TestAssignIncident_DefaultsToCaller(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	m.repo.EXPECT().
		Update(ctx, "inc-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, u models.IncidentUpdate) (bool, error) {
			require.True(t, u.AssignedTo.Set)
			require.NotNil(t, u.AssignedTo.Value)
			assert.Equal(t, operator.ID, *u.AssignedTo.Value)
			assert.Equal(t, models.Set(models.StatusInProgress), u.Status)
			return true, nil
		}).Times(1)
	m.cache.EXPECT().InvalidateIncidentCache(ctx, "inc-1").Return(nil).Times(1)
	m.repo.EXPECT().Get(ctx, "inc-1").Return(&models.Incident{ID: "inc-1"}, nil).Times(1)
	expectEvent(t, m, webhook.EventAssigned, "inc-1", operator.ID)

	// Действие
	_, err := svc.AssignIncident(ctx, operator, "inc-1", "  ")

	// Проверки
	require.NoError(t, err)
}

func TestAssignIncident_ExplicitUser(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	m.repo.EXPECT().
		Update(ctx, "inc-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, u models.IncidentUpdate) (bool, error) {
			assert.Equal(t, "op-2", *u.AssignedTo.Value)
			return true, nil
		}).Times(1)
	m.cache.EXPECT().InvalidateIncidentCache(ctx, "inc-1").Return(nil).Times(1)
	m.repo.EXPECT().Get(ctx, "inc-1").Return(&models.Incident{ID: "inc-1"}, nil).Times(1)
	expectEvent(t, m, webhook.EventAssigned, "inc-1", admin.ID)

	// Действие
	_, err := svc.AssignIncident(ctx, admin, "inc-1", "op-2")

	// Проверки
	require.NoError(t, err)
}

func TestAddComment_Success(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()
	stored := &models.Comment{ID: 3, Text: "Crew dispatched", Author: operator.Username, AuthorID: operator.ID}

	// Ожидания
	m.repo.EXPECT().
		AppendComment(ctx, "inc-1", models.Comment{Text: "Crew dispatched", Author: operator.Username, AuthorID: operator.ID}).
		Return(stored, nil).
		Times(1)
	m.cache.EXPECT().InvalidateIncidentCache(ctx, "inc-1").Return(nil).Times(1)
	expectEvent(t, m, webhook.EventCommented, "inc-1", operator.ID)

	// Действие
	comment, err := svc.AddComment(ctx, operator, "inc-1", "  Crew dispatched ")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, 3, comment.ID)
}

func TestAddComment_EmptyText(t *testing.T) {
	// Подготовка
	svc, _ := newTestIncidentService(t)

	// Действие
	comment, err := svc.AddComment(context.Background(), operator, "inc-1", " ")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, comment)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddComment_NotFound(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	m.repo.EXPECT().AppendComment(ctx, "missing", gomock.Any()).Return(nil, nil).Times(1)

	// Действие
	_, err := svc.AddComment(ctx, operator, "missing", "hello")

	// Проверки
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIncident_AdminOnly(t *testing.T) {
	// Подготовка
	svc, _ := newTestIncidentService(t)

	// Действие
	err := svc.DeleteIncident(context.Background(), operator, "inc-1")

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteIncident_Success(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	m.repo.EXPECT().Delete(ctx, "inc-1").Return(true, nil).Times(1)
	m.cache.EXPECT().InvalidateIncidentCache(ctx, "inc-1").Return(nil).Times(1)
	expectEvent(t, m, webhook.EventDeleted, "inc-1", admin.ID)

	// Действие
	err := svc.DeleteIncident(ctx, admin, "inc-1")

	// Проверки
	require.NoError(t, err)
}

func TestDeleteIncident_NotFound(t *testing.T) {
	// Подготовка
	svc, m := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	m.repo.EXPECT().Delete(ctx, "missing").Return(false, nil).Times(1)

	// Действие
	err := svc.DeleteIncident(ctx, admin, "missing")

	// Проверки
	assert.ErrorIs(t, err, ErrNotFound)
}
