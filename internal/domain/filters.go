package domain

// ProjectionFilter narrows what the API returns from a stored run.
// RunID zero means the latest completed run.
type ProjectionFilter struct {
	RunID     int64    `json:"run_id" form:"run_id"`
	GroupKeys []string `json:"group_keys" form:"group_keys"`
	Priority  Priority `json:"priority" form:"priority"`
}
