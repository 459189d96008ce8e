package models

// DashboardMetrics are the project counters shown on the dashboard view.
type DashboardMetrics struct {
	TotalProjects int `json:"total_projects"`
	OnTrack       int `json:"on_track"`
	AtRisk        int `json:"at_risk"`
	Delayed       int `json:"delayed"`
}

// DashboardResponse is the subset of the backend dashboard payload the client reads.
type DashboardResponse struct {
	Metrics *DashboardMetrics `json:"metrics"`
}
