package query

import (
	"sort"
	"strings"

	"github.com/shenikar/pothole_tracker/internal/models"
)

// Unassigned - значение AssignedTo, выбирающее инциденты без исполнителя
const Unassigned = "unassigned"

// Filter - набор условий отбора инцидентов; пустое поле не ограничивает выборку,
// заданные условия объединяются через И
type Filter struct {
	Severity   models.Severity
	Status     models.Status
	Location   string
	AssignedTo string
}

func (f Filter) IsEmpty() bool {
	return f.Severity == "" && f.Status == "" && f.Location == "" && f.AssignedTo == ""
}

// Match проверяет инцидент на соответствие всем заданным условиям
func (f Filter) Match(i *models.Incident) bool {
	if f.Severity != "" && i.Severity != f.Severity {
		return false
	}
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(i.Location), strings.ToLower(f.Location)) {
		return false
	}
	switch f.AssignedTo {
	case "":
	case Unassigned:
		if i.IsAssigned() {
			return false
		}
	default:
		if !i.IsAssignedTo(f.AssignedTo) {
			return false
		}
	}
	return true
}

// Apply возвращает новый слайс с инцидентами, прошедшими фильтр
func Apply(incidents []*models.Incident, f Filter) []*models.Incident {
	out := make([]*models.Incident, 0, len(incidents))
	for _, incident := range incidents {
		if f.Match(incident) {
			out = append(out, incident)
		}
	}
	return out
}

// SortForOperators упорядочивает список для панели операторов:
// сначала по рангу серьезности (critical первым), затем самые новые
func SortForOperators(incidents []*models.Incident) {
	sort.SliceStable(incidents, func(a, b int) bool {
		ra, rb := models.SeverityRank(incidents[a].Severity), models.SeverityRank(incidents[b].Severity)
		if ra != rb {
			return ra < rb
		}
		return incidents[a].CreatedAt.After(incidents[b].CreatedAt.Time)
	})
}

// SortByNewest упорядочивает инциденты по created_at по убыванию
func SortByNewest(incidents []*models.Incident) {
	sort.SliceStable(incidents, func(a, b int) bool {
		return incidents[a].CreatedAt.After(incidents[b].CreatedAt.Time)
	})
}

// Newest возвращает до n самых новых инцидентов, не меняя исходный слайс
func Newest(incidents []*models.Incident, n int) []*models.Incident {
	sorted := append([]*models.Incident(nil), incidents...)
	SortByNewest(sorted)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// WithCoordinates оставляет инциденты, которые можно показать на карте
func WithCoordinates(incidents []*models.Incident) []*models.Incident {
	out := make([]*models.Incident, 0, len(incidents))
	for _, incident := range incidents {
		if incident.HasCoordinates() {
			out = append(out, incident)
		}
	}
	return out
}
