package service

import (
	"context"
	"errors"
	"time"

	"pipersmart/internal/domain"
)

// ErrContentNotFound is returned for unknown news item ids.
var ErrContentNotFound = errors.New("content not found")

// ContentService serves the curated agronomy catalog. The catalog is static
// by product design; it ships with the binary and involves no storage I/O.
type ContentService interface {
	ListNews(ctx context.Context) ([]domain.NewsItem, error)
	GetNews(ctx context.Context, id string) (*domain.NewsItem, error)
	ListStatistics(ctx context.Context) ([]domain.Statistic, error)
}

type contentService struct {
	news  []domain.NewsItem
	stats []domain.Statistic
}

func NewContentService() ContentService {
	return &contentService{
		news:  curatedNews,
		stats: curatedStatistics,
	}
}

func (s *contentService) ListNews(_ context.Context) ([]domain.NewsItem, error) {
	out := make([]domain.NewsItem, len(s.news))
	copy(out, s.news)
	return out, nil
}

func (s *contentService) GetNews(_ context.Context, id string) (*domain.NewsItem, error) {
	for i := range s.news {
		if s.news[i].ID == id {
			item := s.news[i]
			return &item, nil
		}
	}
	return nil, ErrContentNotFound
}

func (s *contentService) ListStatistics(_ context.Context) ([]domain.Statistic, error) {
	out := make([]domain.Statistic, len(s.stats))
	copy(out, s.stats)
	return out, nil
}

func onDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

var curatedNews = []domain.NewsItem{
	{
		ID:      "soil-prep-monsoon",
		Title:   "Preparing pepper plots before the monsoon",
		Summary: "Drainage trenches and mound rebuilding reduce Phytophthora losses in the wet season.",
		Body: "Foot rot caused by Phytophthora capsici spreads through waterlogged soil. " +
			"Before the first monsoon rains, rebuild mounds around each standard, clear " +
			"drainage trenches to at least 40cm, and apply Trichoderma-enriched compost " +
			"around the collar. Avoid wounding surface roots during weeding.",
		Tags:        []string{"disease", "soil", "monsoon"},
		PublishedAt: onDate(2024, time.May, 12),
	},
	{
		ID:      "spike-harvest-timing",
		Title:   "Harvest timing for black versus white pepper",
		Summary: "Pick at one or two ripe berries per spike for black pepper; fully ripe for white.",
		Body: "For black pepper, harvest when one or two berries on a spike turn yellow to " +
			"red. Earlier picking lowers piperine content and bulk density. For white " +
			"pepper, let spikes ripen fully, then ret berries in running water for seven " +
			"to ten days before hulling.",
		Tags:        []string{"harvest", "quality"},
		PublishedAt: onDate(2024, time.November, 3),
	},
	{
		ID:      "cutting-propagation",
		Title:   "Raising vines from runner cuttings",
		Summary: "Three-node runner cuttings rooted in shaded nurseries outperform seed propagation.",
		Body: "Select runner shoots from high-yielding mother vines under three years old. " +
			"Cut into three-node pieces, plant two nodes deep in a 1:1:1 mix of soil, sand " +
			"and compost, and keep under 50 percent shade with daily watering. Cuttings " +
			"are field-ready in 45 to 60 days.",
		Tags:        []string{"propagation", "nursery"},
		PublishedAt: onDate(2025, time.January, 21),
	},
	{
		ID:      "quick-wilt-scouting",
		Title:   "Scouting for quick wilt symptoms",
		Summary: "Weekly checks of leaf yellowing and collar lesions catch quick wilt before vine loss.",
		Body: "Quick wilt shows first as dull yellowing of lower leaves and dark lesions at " +
			"the collar. Inspect weekly during the rains, remove and burn infected vines " +
			"along with the root zone soil, and drench neighbouring standards with a " +
			"recommended copper fungicide.",
		Tags:        []string{"disease", "scouting"},
		PublishedAt: onDate(2025, time.June, 8),
	},
	{
		ID:      "price-outlook-2025",
		Title:   "Black pepper price outlook",
		Summary: "Tight Vietnamese supply is expected to hold farm-gate prices firm through the year.",
		Body: "Carry-over stocks in the major producing countries remain low after two " +
			"below-average harvests. Exporters report firm demand for garbled grades, and " +
			"farm-gate prices are expected to stay above the five-year average through the " +
			"next harvest window.",
		Tags:        []string{"market", "price"},
		PublishedAt: onDate(2025, time.March, 30),
	},
}

var curatedStatistics = []domain.Statistic{
	{ID: "vn-production", Label: "Vietnam production", Value: 200000, Unit: "t", Region: "Vietnam", Year: 2024},
	{ID: "br-production", Label: "Brazil production", Value: 100000, Unit: "t", Region: "Brazil", Year: 2024},
	{ID: "in-production", Label: "India production", Value: 64000, Unit: "t", Region: "India", Year: 2024},
	{ID: "id-production", Label: "Indonesia production", Value: 59000, Unit: "t", Region: "Indonesia", Year: 2024},
	{ID: "global-export-price", Label: "Average export price", Value: 4950, Unit: "USD/t", Region: "Global", Year: 2024},
	{ID: "yield-irrigated", Label: "Typical irrigated yield", Value: 2.5, Unit: "kg/vine", Region: "Global", Year: 2024},
}
