package models

import (
	"errors"
	"strings"
	"time"
)

// Severity - классификация дефекта дорожного покрытия, указывается при сообщении
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// Severities перечисляет известные уровни в порядке убывания важности
var Severities = []Severity{SeverityCritical, SeverityMajor, SeverityModerate, SeverityMinor}

// Status - стадия обработки инцидента
type Status string

const (
	StatusReported   Status = "reported"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// Statuses перечисляет все стадии в порядке жизненного цикла
var Statuses = []Status{StatusReported, StatusInProgress, StatusResolved}

// Priority - операционная срочность, выводится из Severity
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var ErrEmptyLocation = errors.New("location is required")

var severityPriority = map[Severity]Priority{
	SeverityCritical: PriorityHigh,
	SeverityMajor:    PriorityHigh,
	SeverityModerate: PriorityMedium,
	SeverityMinor:    PriorityLow,
}

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityMajor:    1,
	SeverityModerate: 2,
	SeverityMinor:    3,
}

// PriorityFor возвращает приоритет для уровня серьезности, для неизвестного уровня - medium
func PriorityFor(s Severity) Priority {
	if p, ok := severityPriority[s]; ok {
		return p
	}
	return PriorityMedium
}

// SeverityRank возвращает ранг для сортировки: critical=0 ... minor=3, неизвестный уровень считается minor
func SeverityRank(s Severity) int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return severityRank[SeverityMinor]
}

// Comment - запись в ленте комментариев инцидента
type Comment struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	AuthorID  string    `json:"author_id"`
	CreatedAt Timestamp `json:"created_at"`
}

type Incident struct {
	ID          string    `json:"id"`
	Location    string    `json:"location"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
	CreatedBy   *string   `json:"created_by,omitempty"`
	AssignedTo  *string   `json:"assigned_to"`
	Comments    []Comment `json:"comments,omitempty"`
	// CommentSeq - последний выданный номер комментария, только растет
	CommentSeq int `json:"comment_seq,omitempty"`
}

// NewIncidentInput - сырые данные для создания инцидента
type NewIncidentInput struct {
	Location    string
	Severity    Severity
	Description string
	Latitude    *float64
	Longitude   *float64
	CreatedBy   string
}

// NewIncident собирает корректный инцидент: проставляет значения по умолчанию и выводит приоритет
func NewIncident(in NewIncidentInput, now time.Time) (*Incident, error) {
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return nil, ErrEmptyLocation
	}

	severity := in.Severity
	if severity == "" {
		severity = SeverityModerate
	}

	ts := NewTimestamp(now)
	incident := &Incident{
		Location:    location,
		Severity:    severity,
		Description: strings.TrimSpace(in.Description),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Status:      StatusReported,
		Priority:    PriorityFor(severity),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if in.CreatedBy != "" {
		createdBy := in.CreatedBy
		incident.CreatedBy = &createdBy
	}
	return incident, nil
}

// IsAssigned сообщает, назначен ли инцидент какому-либо пользователю
func (i *Incident) IsAssigned() bool {
	return i.AssignedTo != nil && *i.AssignedTo != ""
}

// IsAssignedTo сообщает, назначен ли инцидент пользователю userID
func (i *Incident) IsAssignedTo(userID string) bool {
	return i.IsAssigned() && *i.AssignedTo == userID
}

// HasCoordinates сообщает, можно ли показать инцидент на карте
func (i *Incident) HasCoordinates() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// NextComment выдает следующий номер комментария и сдвигает счетчик
func (i *Incident) NextComment(text, author, authorID string, now time.Time) Comment {
	// старые записи не хранили счетчик
	if i.CommentSeq < len(i.Comments) {
		i.CommentSeq = len(i.Comments)
	}
	i.CommentSeq++
	c := Comment{
		ID:        i.CommentSeq,
		Text:      text,
		Author:    author,
		AuthorID:  authorID,
		CreatedAt: NewTimestamp(now),
	}
	i.Comments = append(i.Comments, c)
	return c
}

// Clone возвращает глубокую копию инцидента
func (i *Incident) Clone() *Incident {
	c := *i
	c.Latitude = cloneFloat(i.Latitude)
	c.Longitude = cloneFloat(i.Longitude)
	c.CreatedBy = cloneString(i.CreatedBy)
	c.AssignedTo = cloneString(i.AssignedTo)
	if i.Comments != nil {
		c.Comments = append([]Comment(nil), i.Comments...)
	}
	return &c
}

// PublicIncident - обезличенное представление инцидента для публичных страниц
type PublicIncident struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"`
	Severity  Severity  `json:"severity"`
	Status    Status    `json:"status"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt Timestamp `json:"created_at"`
}

// Public убирает из инцидента все поля, кроме разрешенных к публикации
func (i *Incident) Public() PublicIncident {
	return PublicIncident{
		ID:        i.ID,
		Location:  i.Location,
		Severity:  i.Severity,
		Status:    i.Status,
		Latitude:  cloneFloat(i.Latitude),
		Longitude: cloneFloat(i.Longitude),
		CreatedAt: i.CreatedAt,
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
