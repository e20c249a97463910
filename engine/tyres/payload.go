package tyres

import (
	"encoding/json"
	"fmt"

	"github.com/WessleyAI/tyrefit/engine/domain"
)

// The detail payload of /tyres/{modificationId}:
//
//	data[] -> data_response[] -> { wheels[] -> front, technical, generation.bodies[].image }

// Entry is one element of the top-level data array.
type Entry struct {
	ID           domain.ID      `json:"id"`
	Tyre         domain.Field   `json:"tyre"`
	DataResponse []DataResponse `json:"data_response"`
}

// DataResponse groups the wheels of one body/generation.
type DataResponse struct {
	Wheels     []Wheel    `json:"wheels"`
	Technical  Technical  `json:"technical"`
	Generation Generation `json:"generation"`
}

// Wheel is one fitment; only the front axle is used.
type Wheel struct {
	Front WheelSide `json:"front"`
}

// WheelSide holds the tyre and rim of one axle.
type WheelSide struct {
	TireFull       domain.Field  `json:"tire_full"`
	TireWeightKg   domain.Field  `json:"tire_weight_kg"`
	TireDiameterMm domain.Field  `json:"tire_diameter_mm"`
	Rim            domain.Field  `json:"rim"`
	TirePressure   *TirePressure `json:"tire_pressure"`
}

// TirePressure is the recommended inflation.
type TirePressure struct {
	Bar domain.Field `json:"bar"`
	KPa domain.Field `json:"kPa"`
	PSI domain.Field `json:"psi"`
}

// UnmarshalJSON accepts an object, or a scalar placeholder such as "N/A"
// which decodes to the zero value.
func (p *TirePressure) UnmarshalJSON(b []byte) error {
	var f domain.Field
	if err := json.Unmarshal(b, &f); err == nil {
		*p = TirePressure{}
		return nil
	}
	type plain TirePressure
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: tire_pressure: %v", domain.ErrParse, err)
	}
	*p = TirePressure(v)
	return nil
}

// Technical holds the hub data shared by every wheel of a body.
type Technical struct {
	BoltPattern           domain.Field   `json:"bolt_pattern"`
	WheelFasteners        WheelFasteners `json:"wheel_fasteners"`
	WheelTighteningTorque domain.Field   `json:"wheel_tightening_torque"`
}

// WheelFasteners describes nuts or bolts.
type WheelFasteners struct {
	Type       domain.Field `json:"type"`
	ThreadSize domain.Field `json:"thread_size"`
}

// Generation carries body images.
type Generation struct {
	Bodies []Body `json:"bodies"`
}

// Body is one body style of a generation.
type Body struct {
	Image domain.Field `json:"image"`
}

// Decode parses the data member of a detail response. Any shape mismatch is
// reported as domain.ErrParse.
func Decode(raw json.RawMessage) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: tyre detail: %v", domain.ErrParse, err)
	}
	return entries, nil
}

// WheelCount returns the number of wheel entries across the payload.
func WheelCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		for _, d := range e.DataResponse {
			n += len(d.Wheels)
		}
	}
	return n
}

// Specs flattens the payload into one TyreSpec per wheel, in payload order,
// with every missing attribute set to domain.Unknown.
func Specs(entries []Entry) []domain.TyreSpec {
	specs := make([]domain.TyreSpec, 0, WheelCount(entries))
	for _, e := range entries {
		for _, d := range e.DataResponse {
			image := domain.Field("")
			if len(d.Generation.Bodies) > 0 {
				image = d.Generation.Bodies[0].Image
			}
			for _, w := range d.Wheels {
				specs = append(specs, toSpec(w.Front, d.Technical, image))
			}
		}
	}
	return specs
}

func toSpec(front WheelSide, tech Technical, image domain.Field) domain.TyreSpec {
	pressure := domain.Pressure{Bar: domain.Unknown, KPa: domain.Unknown, PSI: domain.Unknown}
	if p := front.TirePressure; p != nil {
		pressure = domain.Pressure{Bar: p.Bar.OrUnknown(), KPa: p.KPa.OrUnknown(), PSI: p.PSI.OrUnknown()}
	}
	return domain.TyreSpec{
		TireFull:           front.TireFull.OrUnknown(),
		TireWeightKg:       front.TireWeightKg.OrUnknown(),
		TireDiameterMm:     front.TireDiameterMm.OrUnknown(),
		Rim:                front.Rim.OrUnknown(),
		BoltPattern:        tech.BoltPattern.OrUnknown(),
		FastenerType:       tech.WheelFasteners.Type.OrUnknown(),
		FastenerThreadSize: tech.WheelFasteners.ThreadSize.OrUnknown(),
		TighteningTorque:   tech.WheelTighteningTorque.OrUnknown(),
		Pressure:           pressure,
		ImageURL:           image.OrUnknown(),
	}
}
