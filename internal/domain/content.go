package domain

import "time"

// NewsItem is a curated agronomy article served from the static catalog.
type NewsItem struct {
	ID          string
	Title       string
	Summary     string
	Body        string
	ImageURL    string
	Tags        []string
	PublishedAt time.Time
}

// Statistic is a single curated market or production figure.
type Statistic struct {
	ID     string
	Label  string
	Value  float64
	Unit   string
	Region string
	Year   int
}
