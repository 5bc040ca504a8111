package tracker

import "time"

// PlacedStatus is one placed entity in a Status snapshot.
type PlacedStatus struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	DistanceAway float64 `json:"distanceAway"`
}

// Status is a point-in-time view of the tracker.
type Status struct {
	Time        time.Time      `json:"time"`
	State       string         `json:"state"`
	SessionName string         `json:"sessionName,omitempty"`
	SessionUUID string         `json:"sessionUuid,omitempty"`
	Catalog     string         `json:"catalog,omitempty"`
	Assets      int            `json:"assets"`
	Ticks       uint           `json:"ticks"`
	Accepted    uint           `json:"accepted"`
	Skipped     uint           `json:"skipped"`
	Placed      []PlacedStatus `json:"placed"`
}

// Status returns the current snapshot.
func (s *Service) Status() Status {
	s.mu.RLock()
	cat := s.catalog
	sess := s.session
	s.mu.RUnlock()

	st := Status{
		Time:     s.deps.Now(),
		State:    s.manager.State().String(),
		Ticks:    s.tick.Value(),
		Accepted: s.accepted.Value(),
		Skipped:  s.skipped.Value(),
		Placed:   []PlacedStatus{},
	}
	if cat != nil {
		st.Catalog = cat.Name
		st.Assets = cat.Len()
	}
	if sess != nil {
		st.SessionName = sess.Name
		st.SessionUUID = sess.UUID
	}
	for _, e := range s.manager.Placed() {
		st.Placed = append(st.Placed, PlacedStatus{ID: e.AssetID, Name: e.Name, DistanceAway: e.DistanceAway})
	}
	return st
}
