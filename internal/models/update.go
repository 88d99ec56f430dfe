package models

import (
	"strings"
	"time"
)

// Patch - значение поля частичного обновления; применяется только если Set == true
type Patch[T any] struct {
	Value T
	Set   bool
}

// Set помечает значение как переданное
func Set[T any](v T) Patch[T] {
	return Patch[T]{Value: v, Set: true}
}

// IncidentUpdate - поверхностное слияние полей инцидента.
// Вложенные поля (Comments) заменяются целиком.
type IncidentUpdate struct {
	Location    Patch[string]
	Severity    Patch[Severity]
	Description Patch[string]
	Latitude    Patch[*float64]
	Longitude   Patch[*float64]
	Status      Patch[Status]
	Priority    Patch[Priority]
	AssignedTo  Patch[*string]
	Comments    Patch[[]Comment]
}

// IsEmpty сообщает, что обновление не меняет ни одного поля
func (u IncidentUpdate) IsEmpty() bool {
	return !u.Location.Set && !u.Severity.Set && !u.Description.Set &&
		!u.Latitude.Set && !u.Longitude.Set && !u.Status.Set &&
		!u.Priority.Set && !u.AssignedTo.Set && !u.Comments.Set
}

// Validate проверяет, что обновление не оставит инцидент без адреса
func (u IncidentUpdate) Validate() error {
	if u.Location.Set && strings.TrimSpace(u.Location.Value) == "" {
		return ErrEmptyLocation
	}
	return nil
}

// Apply переносит переданные поля в инцидент и обновляет updated_at.
// Смена severity без явного priority пересчитывает приоритет.
func Apply(i *Incident, u IncidentUpdate, now time.Time) {
	if u.Location.Set {
		i.Location = strings.TrimSpace(u.Location.Value)
	}
	if u.Severity.Set {
		i.Severity = u.Severity.Value
		if !u.Priority.Set {
			i.Priority = PriorityFor(i.Severity)
		}
	}
	if u.Description.Set {
		i.Description = strings.TrimSpace(u.Description.Value)
	}
	if u.Latitude.Set {
		i.Latitude = cloneFloat(u.Latitude.Value)
	}
	if u.Longitude.Set {
		i.Longitude = cloneFloat(u.Longitude.Value)
	}
	if u.Status.Set {
		i.Status = u.Status.Value
	}
	if u.Priority.Set {
		i.Priority = u.Priority.Value
	}
	if u.AssignedTo.Set {
		i.AssignedTo = cloneString(u.AssignedTo.Value)
		if i.AssignedTo != nil && *i.AssignedTo == "" {
			i.AssignedTo = nil
		}
	}
	if u.Comments.Set {
		i.Comments = append([]Comment(nil), u.Comments.Value...)
		if i.CommentSeq < len(i.Comments) {
			i.CommentSeq = len(i.Comments)
		}
	}

	ts := NewTimestamp(now)
	// часы могли уйти назад; updated_at не должен уменьшаться
	if ts.Before(i.UpdatedAt.Time) {
		ts = i.UpdatedAt
	}
	i.UpdatedAt = ts
}
