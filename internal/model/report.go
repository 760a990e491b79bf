package model

// AdminStats is the aggregate view on the admin dashboard.
type AdminStats struct {
	TotalAppointments int64            `json:"total_appointments"`
	TotalDoctors      int64            `json:"total_doctors"`
	TotalPatients     int64            `json:"total_patients"`
	ByStatus          map[string]int64 `json:"by_status"`
	Today             int64            `json:"today"`
	ThisMonth         int64            `json:"this_month"`
	LastMonth         int64            `json:"last_month"`
	MonthTrendPercent float64          `json:"month_trend_percent"`
}

// DoctorStats is the per-doctor dashboard summary.
type DoctorStats struct {
	Today     int64 `json:"today"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Total     int64 `json:"total"`
}
