package v1

import (
	"strings"

	"github.com/shenikar/pothole_tracker/internal/models"
)

// DTOToIncidentInput преобразует DTO сообщения в данные для создания инцидента
func DTOToIncidentInput(dto ReportIncidentRequest) models.NewIncidentInput {
	return models.NewIncidentInput{
		Location:    dto.Location,
		Severity:    models.Severity(dto.Severity),
		Description: dto.Description,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
	}
}

// DTOToIncidentUpdate переносит в обновление только переданные поля
func DTOToIncidentUpdate(dto UpdateIncidentRequest) models.IncidentUpdate {
	var u models.IncidentUpdate
	if dto.Location != nil {
		u.Location = models.Set(*dto.Location)
	}
	if dto.Severity != nil {
		u.Severity = models.Set(models.Severity(*dto.Severity))
	}
	if dto.Description != nil {
		u.Description = models.Set(*dto.Description)
	}
	if dto.Latitude != nil {
		u.Latitude = models.Set(dto.Latitude)
	}
	if dto.Longitude != nil {
		u.Longitude = models.Set(dto.Longitude)
	}
	if dto.ClearCoordinates {
		u.Latitude = models.Set[*float64](nil)
		u.Longitude = models.Set[*float64](nil)
	}
	if dto.Status != nil {
		u.Status = models.Set(models.Status(*dto.Status))
	}
	if dto.Priority != nil {
		u.Priority = models.Set(models.Priority(*dto.Priority))
	}
	if dto.AssignedTo != nil {
		assignee := strings.TrimSpace(*dto.AssignedTo)
		u.AssignedTo = models.Set(&assignee)
	}
	return u
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	comments := make([]*CommentResponse, len(model.Comments))
	for i, c := range model.Comments {
		comments[i] = ModelToCommentResponse(&c)
	}
	return &IncidentResponse{
		ID:          model.ID,
		Location:    model.Location,
		Severity:    string(model.Severity),
		Description: model.Description,
		Latitude:    model.Latitude,
		Longitude:   model.Longitude,
		Status:      string(model.Status),
		Priority:    string(model.Priority),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		CreatedBy:   model.CreatedBy,
		AssignedTo:  model.AssignedTo,
		Comments:    comments,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

func ModelToCommentResponse(c *models.Comment) *CommentResponse {
	return &CommentResponse{
		ID:        c.ID,
		Text:      c.Text,
		Author:    c.Author,
		AuthorID:  c.AuthorID,
		CreatedAt: c.CreatedAt,
	}
}

// ModelToPublicResponse отдает только поля, разрешенные для публикации
func ModelToPublicResponse(model *models.Incident) *PublicIncidentResponse {
	p := model.Public()
	return &PublicIncidentResponse{
		ID:        p.ID,
		Location:  p.Location,
		Severity:  string(p.Severity),
		Status:    string(p.Status),
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		CreatedAt: p.CreatedAt,
	}
}

func ModelsToPublicResponses(models []*models.Incident) []*PublicIncidentResponse {
	responses := make([]*PublicIncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToPublicResponse(model)
	}
	return responses
}

func ModelToUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		IsActive:  user.IsActive,
	}
}

func ModelsToUserResponses(users []*models.User) []*UserResponse {
	responses := make([]*UserResponse, len(users))
	for i, user := range users {
		responses[i] = ModelToUserResponse(user)
	}
	return responses
}

// DTOToUserUpdate преобразует запрос изменения пользователя
func DTOToUserUpdate(dto UpdateUserRequest) models.UserUpdate {
	u := models.UserUpdate{
		Email:    dto.Email,
		Password: dto.Password,
		IsActive: dto.IsActive,
	}
	if dto.Role != nil {
		role := models.Role(*dto.Role)
		u.Role = &role
	}
	return u
}
