package app

import "github.com/klabast/wb-services/newsletter/internal/calendar"

// WeekSummary is one published week in the archive
type WeekSummary struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// WeeksResponse lists published weeks, newest first
type WeeksResponse struct {
	Newest string        `json:"newest"`
	Weeks  []WeekSummary `json:"weeks"`
}

// DashboardResponse is the dashboard of one week
type DashboardResponse struct {
	Week string `json:"week"`
	calendar.Dashboard
}

// StatusResponse describes the loaded documents for operators
type StatusResponse struct {
	Ready          bool   `json:"ready"`
	Newest         string `json:"newest,omitempty"`
	Weeks          int    `json:"weeks"`
	Classrooms     int    `json:"classrooms"`
	Weather        bool   `json:"weather"`
	AdminProtected bool   `json:"adminProtected"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
