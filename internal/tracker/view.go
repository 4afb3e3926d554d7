package tracker

import (
	"time"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
	"github.com/pfrederiksen/voebb-loans/internal/portal"
)

// Attributes holds the structured entity attributes
type Attributes struct {
	Items []loan.Item `json:"items"`
}

// View is a point-in-time rendering of a Sensor for the host
type View struct {
	EntityID   string     `json:"entity_id"`
	Name       string     `json:"name"`
	Icon       string     `json:"icon"`
	State      string     `json:"state"`
	Available  bool       `json:"available"`
	LastFetch  *time.Time `json:"last_fetch,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	Attributes Attributes `json:"attributes"`
}

// View renders the sensor
func (s *Sensor) View() View {
	state := s.FetchState()
	err := s.LastError()

	v := View{
		EntityID:   s.EntityID(),
		Name:       s.Name(),
		Icon:       Icon,
		State:      FormatState(state.Items),
		Available:  err == nil,
		LastError:  portal.Kind(err),
		Attributes: Attributes{Items: state.Items},
	}
	if !state.LastFetch.IsZero() {
		fetched := state.LastFetch.UTC()
		v.LastFetch = &fetched
	}
	return v
}
