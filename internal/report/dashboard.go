// Package report derives a student's dashboard from their results. Every
// figure is recomputed from the store on each call.
package report

import (
	"context"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/exam"
	"github.com/mind-engage/mindengage-assess/internal/grading"
)

const (
	TrendWindow  = 20
	RecentWindow = 10

	trendDateLayout = "1/2/2006"
)

type TrendPoint struct {
	Date       string `json:"date"`
	Percentage int    `json:"percentage"`
	Subject    string `json:"subject"`
}

type Stats struct {
	SkillSummary  map[string]int `json:"skillSummary"`
	TrendData     []TrendPoint   `json:"trendData"`
	RecentResults []exam.Result  `json:"recentResults"`
}

type Source interface {
	ListResults(ctx context.Context, studentID string) ([]exam.Result, error)
}

type Service struct {
	src Source
}

func NewService(src Source) *Service { return &Service{src: src} }

func (s *Service) DashboardStats(ctx context.Context, studentID string) (Stats, error) {
	rs, err := s.src.ListResults(ctx, studentID)
	if err != nil {
		return Stats{}, err
	}
	return Build(rs), nil
}

// Build computes the dashboard over rs. rs is reordered in place.
func Build(rs []exam.Result) Stats {
	exam.SortByCompletion(rs, false)

	bySubject := map[string][]int{}
	for _, r := range rs {
		if r.Subject.Name == "" {
			continue
		}
		bySubject[r.Subject.Name] = append(bySubject[r.Subject.Name], r.Percentage)
	}
	skills := make(map[string]int, len(bySubject))
	for name, pcts := range bySubject {
		skills[name] = grading.Mean(pcts)
	}

	start := 0
	if len(rs) > TrendWindow {
		start = len(rs) - TrendWindow
	}
	trend := make([]TrendPoint, 0, len(rs)-start)
	for _, r := range rs[start:] {
		trend = append(trend, TrendPoint{
			Date:       formatDate(r.CompletedAt),
			Percentage: r.Percentage,
			Subject:    r.Subject.Name,
		})
	}

	recent := make([]exam.Result, 0, RecentWindow)
	for i := len(rs) - 1; i >= 0 && len(recent) < RecentWindow; i-- {
		recent = append(recent, rs[i])
	}

	return Stats{SkillSummary: skills, TrendData: trend, RecentResults: recent}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(trendDateLayout)
}
