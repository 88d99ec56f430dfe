package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// newTestIncidentRepository возвращает репозиторий с управляемыми часами
func newTestIncidentRepository(t *testing.T) (*FileIncidentRepository, *time.Time) {
	logger, _ := newTestLogger()
	repo := NewFileIncidentRepository(t.TempDir(), logger).(*FileIncidentRepository)
	now := repoNow
	repo.now = func() time.Time { return now }
	return repo, &now
}

func saveIncident(t *testing.T, repo *FileIncidentRepository, location string, severity models.Severity) *models.Incident {
	t.Helper()
	incident, err := models.NewIncident(models.NewIncidentInput{Location: location, Severity: severity}, repoNow)
	require.NoError(t, err)
	_, err = repo.Save(context.Background(), incident)
	require.NoError(t, err)
	return incident
}

func TestFileIncidentRepository_SaveAndGet(t *testing.T) {
	// Подготовка
	repo, _ := newTestIncidentRepository(t)
	ctx := context.Background()
	lat, lng := 40.71, -74.0
	incident, err := models.NewIncident(models.NewIncidentInput{
		Location:  "5th Ave & 23rd",
		Severity:  models.SeverityMajor,
		Latitude:  &lat,
		Longitude: &lng,
		CreatedBy: "op-1",
	}, repoNow.Add(-time.Hour))
	require.NoError(t, err)

	// Действие
	id, err := repo.Save(ctx, incident)

	// Проверки
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, incident.ID)
	assert.True(t, incident.CreatedAt.Equal(repoNow))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "5th Ave & 23rd", got.Location)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, models.StatusReported, got.Status)
	require.True(t, got.HasCoordinates())
	assert.Equal(t, lat, *got.Latitude)
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, "op-1", *got.CreatedBy)
}

func TestFileIncidentRepository_SaveStoresCopy(t *testing.T) {
	repo, _ := newTestIncidentRepository(t)
	incident := saveIncident(t, repo, "Elm Road", models.SeverityMinor)

	// изменения исходного объекта после Save не попадают в хранилище
	incident.Location = "changed"

	got, err := repo.Get(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, "Elm Road", got.Location)
}

func TestFileIncidentRepository_GetMissing(t *testing.T) {
	repo, _ := newTestIncidentRepository(t)

	got, err := repo.Get(context.Background(), "no-such-id")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileIncidentRepository_ListWithFilter(t *testing.T) {
	repo, _ := newTestIncidentRepository(t)
	ctx := context.Background()
	critical := saveIncident(t, repo, "Main St", models.SeverityCritical)
	saveIncident(t, repo, "Oak Ave", models.SeverityMinor)
	saveIncident(t, repo, "Main Street Bridge", models.SeverityMinor)

	all, err := repo.List(ctx, query.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := repo.List(ctx, query.Filter{Severity: models.SeverityCritical})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, critical.ID, filtered[0].ID)

	byLocation, err := repo.List(ctx, query.Filter{Location: "main"})
	require.NoError(t, err)
	assert.Len(t, byLocation, 2)
}

func TestFileIncidentRepository_ListCorruptFileIsEmpty(t *testing.T) {
	logger, buf := newTestLogger()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, incidentsFile), []byte("[1, 2"), 0o644))
	repo := NewFileIncidentRepository(dir, logger)

	incidents, err := repo.List(context.Background(), query.Filter{})

	require.NoError(t, err)
	assert.Empty(t, incidents)
	assert.Contains(t, buf.String(), "corrupted")
}

func TestFileIncidentRepository_UpdateRederivesPriority(t *testing.T) {
	// Подготовка
	repo, now := newTestIncidentRepository(t)
	ctx := context.Background()
	incident := saveIncident(t, repo, "Oak Ave", models.SeverityMinor)
	*now = repoNow.Add(time.Hour)

	// Действие
	found, err := repo.Update(ctx, incident.ID, models.IncidentUpdate{
		Severity: models.Set(models.SeverityCritical),
		Status:   models.Set(models.StatusInProgress),
	})

	// Проверки
	require.NoError(t, err)
	assert.True(t, found)
	got, err := repo.Get(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, got.Severity)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.True(t, got.UpdatedAt.Equal(repoNow.Add(time.Hour)))
	assert.True(t, got.CreatedAt.Equal(repoNow))
}

func TestFileIncidentRepository_UpdateExplicitPriorityWins(t *testing.T) {
	repo, _ := newTestIncidentRepository(t)
	ctx := context.Background()
	incident := saveIncident(t, repo, "Oak Ave", models.SeverityMinor)

	_, err := repo.Update(ctx, incident.ID, models.IncidentUpdate{
		Severity: models.Set(models.SeverityCritical),
		Priority: models.Set(models.PriorityLow),
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityLow, got.Priority)
}

// snapshot возвращает содержимое incidents.json и полный список инцидентов
func snapshot(t *testing.T, repo *FileIncidentRepository) ([]byte, []*models.Incident) {
	t.Helper()
	raw, err := os.ReadFile(repo.incidents.Path())
	require.NoError(t, err)
	all, err := repo.List(context.Background(), query.Filter{})
	require.NoError(t, err)
	return raw, all
}

func TestFileIncidentRepository_UpdateMissing(t *testing.T) {
	// Подготовка
	repo, now := newTestIncidentRepository(t)
	saveIncident(t, repo, "Oak Ave", models.SeverityMinor)
	saveIncident(t, repo, "Main St", models.SeverityCritical)
	rawBefore, listBefore := snapshot(t, repo)
	*now = now.Add(time.Hour)

	// Действие
	found, err := repo.Update(context.Background(), "no-such-id", models.IncidentUpdate{
		Status: models.Set(models.StatusResolved),
	})

	// Проверки
	require.NoError(t, err)
	assert.False(t, found)
	rawAfter, listAfter := snapshot(t, repo)
	assert.Equal(t, rawBefore, rawAfter)
	assert.Equal(t, listBefore, listAfter)
}

func TestFileIncidentRepository_DeleteMissing(t *testing.T) {
	// Подготовка
	repo, _ := newTestIncidentRepository(t)
	saveIncident(t, repo, "Oak Ave", models.SeverityMinor)
	saveIncident(t, repo, "Main St", models.SeverityCritical)
	rawBefore, listBefore := snapshot(t, repo)

	// Действие
	found, err := repo.Delete(context.Background(), "no-such-id")

	// Проверки
	require.NoError(t, err)
	assert.False(t, found)
	rawAfter, listAfter := snapshot(t, repo)
	assert.Equal(t, rawBefore, rawAfter)
	assert.Equal(t, listBefore, listAfter)
	assert.Len(t, listAfter, 2)
}

func TestFileIncidentRepository_Delete(t *testing.T) {
	repo, _ := newTestIncidentRepository(t)
	ctx := context.Background()
	incident := saveIncident(t, repo, "Oak Ave", models.SeverityMinor)

	found, err := repo.Delete(ctx, incident.ID)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := repo.Get(ctx, incident.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	found, err = repo.Delete(ctx, incident.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileIncidentRepository_AppendCommentSequence(t *testing.T) {
	// Подготовка
	repo, now := newTestIncidentRepository(t)
	ctx := context.Background()
	incident := saveIncident(t, repo, "Oak Ave", models.SeverityMinor)
	*now = repoNow.Add(10 * time.Minute)

	// Действие
	first, err := repo.AppendComment(ctx, incident.ID, models.Comment{Text: "crew dispatched", Author: "olga", AuthorID: "op-1"})
	require.NoError(t, err)
	second, err := repo.AppendComment(ctx, incident.ID, models.Comment{Text: "filled", Author: "olga", AuthorID: "op-1"})
	require.NoError(t, err)

	// Проверки
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.True(t, first.CreatedAt.Equal(repoNow.Add(10*time.Minute)))

	got, err := repo.Get(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "crew dispatched", got.Comments[0].Text)
	assert.True(t, got.UpdatedAt.Equal(repoNow.Add(10*time.Minute)))
}

func TestFileIncidentRepository_CommentIDsNotReusedAfterReplace(t *testing.T) {
	repo, _ := newTestIncidentRepository(t)
	ctx := context.Background()
	incident := saveIncident(t, repo, "Oak Ave", models.SeverityMinor)

	_, err := repo.AppendComment(ctx, incident.ID, models.Comment{Text: "one"})
	require.NoError(t, err)
	_, err = repo.AppendComment(ctx, incident.ID, models.Comment{Text: "two"})
	require.NoError(t, err)

	// полная замена ленты оставляет один комментарий
	got, err := repo.Get(ctx, incident.ID)
	require.NoError(t, err)
	_, err = repo.Update(ctx, incident.ID, models.IncidentUpdate{Comments: models.Set(got.Comments[:1])})
	require.NoError(t, err)

	third, err := repo.AppendComment(ctx, incident.ID, models.Comment{Text: "three"})
	require.NoError(t, err)
	assert.Equal(t, 3, third.ID)
}

func TestFileIncidentRepository_AppendCommentMissing(t *testing.T) {
	repo, _ := newTestIncidentRepository(t)

	comment, err := repo.AppendComment(context.Background(), "no-such-id", models.Comment{Text: "lost"})

	require.NoError(t, err)
	assert.Nil(t, comment)
}
