// Package stats считает сводную статистику по снимку инцидентов.
// Все функции чистые: без ввода-вывода и общего состояния.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/shenikar/pothole_tracker/internal/models"
)

const (
	monthKeyLayout   = "2006-01"
	monthLabelLayout = "Jan 2006"
	dayKeyLayout     = "2006-01-02"
	dayLabelLayout   = "01/02"
)

// StatusCounts - количество инцидентов по статусам
type StatusCounts struct {
	Reported   int `json:"reported"`
	InProgress int `json:"in-progress"`
	Resolved   int `json:"resolved"`
}

// SeverityCounts - количество инцидентов по уровням серьезности
type SeverityCounts struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
}

// SummaryStats - сводка для панели управления
type SummaryStats struct {
	Total          int            `json:"total"`
	Status         StatusCounts   `json:"status"`
	Severity       SeverityCounts `json:"severity"`
	ResolutionRate float64        `json:"resolution_rate"`
	RecentCount    int            `json:"recent_count"`
	Unassigned     int            `json:"unassigned"`
}

// Bucket - одна точка временного ряда
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Series - временной ряд в виде, удобном для графиков
type Series struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// AnalyticsData - данные страницы аналитики
type AnalyticsData struct {
	MonthlyTrend         Series         `json:"monthly_trend"`
	SeverityDistribution SeverityCounts `json:"severity_distribution"`
	StatusDistribution   StatusCounts   `json:"status_distribution"`
}

// PublicStats - агрегаты для публичной главной страницы
type PublicStats struct {
	TotalIncidents    int `json:"total_incidents"`
	ResolvedIncidents int `json:"resolved_incidents"`
	CriticalIncidents int `json:"critical_incidents"`
	InProgress        int `json:"in_progress"`
}

// UserStats - активность оператора по назначенным ему инцидентам
type UserStats struct {
	AssignedIncidents int `json:"assigned_incidents"`
	ResolvedIncidents int `json:"resolved_incidents"`
	PendingIncidents  int `json:"pending_incidents"`
}

// StatusDistribution считает инциденты по статусам; неизвестные статусы не учитываются
func StatusDistribution(incidents []*models.Incident) StatusCounts {
	var c StatusCounts
	for _, i := range incidents {
		switch i.Status {
		case models.StatusReported:
			c.Reported++
		case models.StatusInProgress:
			c.InProgress++
		case models.StatusResolved:
			c.Resolved++
		}
	}
	return c
}

// SeverityDistribution считает инциденты по уровням серьезности
func SeverityDistribution(incidents []*models.Incident) SeverityCounts {
	var c SeverityCounts
	for _, i := range incidents {
		switch i.Severity {
		case models.SeverityCritical:
			c.Critical++
		case models.SeverityMajor:
			c.Major++
		case models.SeverityModerate:
			c.Moderate++
		case models.SeverityMinor:
			c.Minor++
		}
	}
	return c
}

// Summary собирает сводку; recentWindow задает окно "недавних" инцидентов, отсчитываемое от now
func Summary(incidents []*models.Incident, now time.Time, recentWindow time.Duration) SummaryStats {
	s := SummaryStats{
		Total:    len(incidents),
		Status:   StatusDistribution(incidents),
		Severity: SeverityDistribution(incidents),
	}
	if s.Total > 0 {
		s.ResolutionRate = round1(float64(s.Status.Resolved) / float64(s.Total) * 100)
	}

	since := now.Add(-recentWindow)
	for _, i := range incidents {
		if !i.CreatedAt.IsZero() && i.CreatedAt.After(since) {
			s.RecentCount++
		}
		if !i.IsAssigned() {
			s.Unassigned++
		}
	}
	return s
}

// MonthlyTrend группирует инциденты по календарному месяцу created_at.
// Месяцы идут по возрастанию, месяцы без инцидентов не попадают в результат.
func MonthlyTrend(incidents []*models.Incident) []Bucket {
	counts := make(map[string]int)
	for _, i := range incidents {
		if i.CreatedAt.IsZero() {
			continue
		}
		counts[i.CreatedAt.UTC().Format(monthKeyLayout)]++
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	buckets := make([]Bucket, 0, len(months))
	for _, m := range months {
		t, _ := time.Parse(monthKeyLayout, m)
		buckets = append(buckets, Bucket{Label: t.Format(monthLabelLayout), Count: counts[m]})
	}
	return buckets
}

// DailyTimeline считает инциденты по дням за последние days суток, заканчивая now.
// В результате days+1 точка: каждый день окна присутствует, даже если инцидентов не было.
func DailyTimeline(incidents []*models.Incident, days int, now time.Time) []Bucket {
	if days < 0 {
		days = 0
	}
	end := now.UTC()
	start := end.AddDate(0, 0, -days)

	counts := make(map[string]int, days+1)
	for _, i := range incidents {
		if i.CreatedAt.IsZero() {
			continue
		}
		created := i.CreatedAt.UTC()
		if created.Before(start) || created.After(end) {
			continue
		}
		counts[created.Format(dayKeyLayout)]++
	}

	buckets := make([]Bucket, 0, days+1)
	for d := 0; d <= days; d++ {
		day := start.AddDate(0, 0, d)
		buckets = append(buckets, Bucket{
			Label: day.Format(dayLabelLayout),
			Count: counts[day.Format(dayKeyLayout)],
		})
	}
	return buckets
}

// AsSeries раскладывает точки на подписи и значения
func AsSeries(buckets []Bucket) Series {
	s := Series{
		Labels: make([]string, 0, len(buckets)),
		Data:   make([]int, 0, len(buckets)),
	}
	for _, b := range buckets {
		s.Labels = append(s.Labels, b.Label)
		s.Data = append(s.Data, b.Count)
	}
	return s
}

func Analytics(incidents []*models.Incident) AnalyticsData {
	return AnalyticsData{
		MonthlyTrend:         AsSeries(MonthlyTrend(incidents)),
		SeverityDistribution: SeverityDistribution(incidents),
		StatusDistribution:   StatusDistribution(incidents),
	}
}

func Public(incidents []*models.Incident) PublicStats {
	status := StatusDistribution(incidents)
	return PublicStats{
		TotalIncidents:    len(incidents),
		ResolvedIncidents: status.Resolved,
		CriticalIncidents: SeverityDistribution(incidents).Critical,
		InProgress:        status.InProgress,
	}
}

// ForUser считает инциденты, назначенные пользователю userID
func ForUser(incidents []*models.Incident, userID string) UserStats {
	var s UserStats
	for _, i := range incidents {
		if !i.IsAssignedTo(userID) {
			continue
		}
		s.AssignedIncidents++
		if i.Status == models.StatusResolved {
			s.ResolvedIncidents++
		} else {
			s.PendingIncidents++
		}
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
