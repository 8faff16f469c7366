package model

import "github.com/rotisserie/eris"

// QueryParameters carries one submission's worth of user input. Constructed
// fresh per submission cycle and discarded on session reset.
type QueryParameters struct {
	Sector               string      `json:"sector"`
	Country              string      `json:"country,omitempty"`
	Phone                string      `json:"phone,omitempty"`
	CollectionEfficiency int         `json:"collection_efficiency"`
	MileageKmPerLiter    float64     `json:"mileage"`
	PetrolLeftPercent    int         `json:"petrol_left"`
	Location             *Coordinate `json:"location,omitempty"`
}

// Validate checks the numeric ranges before a submission is allowed out the
// door.
func (q QueryParameters) Validate() error {
	if q.Sector == "" {
		return eris.New("model: sector or state is required")
	}
	if q.CollectionEfficiency < 0 || q.CollectionEfficiency > 100 {
		return eris.Errorf("model: collection efficiency %d out of range [0, 100]", q.CollectionEfficiency)
	}
	if q.MileageKmPerLiter <= 0 {
		return eris.Errorf("model: mileage %v must be positive", q.MileageKmPerLiter)
	}
	if q.PetrolLeftPercent < 0 || q.PetrolLeftPercent > 100 {
		return eris.Errorf("model: petrol left %d out of range [0, 100]", q.PetrolLeftPercent)
	}
	if q.Location != nil {
		if err := q.Location.Validate(); err != nil {
			return err
		}
	}
	return nil
}
