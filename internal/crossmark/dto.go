package crossmark

import "time"

// remoteEventDTO is the wire shape of a planning/scheduled event
// returned by MVRetail (spec §6 "Upstream wire protocol (pull)").
type remoteEventDTO struct {
	ExternalID    string    `json:"external_id"`
	LocationMVID  string    `json:"location_mvid"`
	ProjectName   string    `json:"project_name"`
	StartDatetime time.Time `json:"start_datetime"`
	DueDatetime   time.Time `json:"due_datetime"`
}

func mapRemoteEvents(in []remoteEventDTO) []RemoteEvent {
	out := make([]RemoteEvent, 0, len(in))
	for _, e := range in {
		out = append(out, RemoteEvent{
			ExternalID:    e.ExternalID,
			LocationMVID:  e.LocationMVID,
			ProjectName:   e.ProjectName,
			StartDatetime: e.StartDatetime,
			DueDatetime:   e.DueDatetime,
		})
	}
	return out
}

// remoteRepDTO is the wire shape of a roster entry. Spec §6: "rep list
// yields {id, repId, employeeId, title, role?}" — RepID falls back to
// EmployeeID when absent.
type remoteRepDTO struct {
	ID         string `json:"id"`
	RepID      string `json:"repId"`
	EmployeeID string `json:"employeeId"`
	Title      string `json:"title"`
	Role       string `json:"role"`
}
