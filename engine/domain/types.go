// Package domain defines the vehicle cascade and tyre records shared by the
// catalog, inventory and enrichment packages, plus the error taxonomy and the
// identifier checks applied at request entry points.
package domain

// Unknown is the display sentinel for every optional tyre attribute the
// catalog did not supply. Optional fields are never left empty.
const Unknown = "N/A"

// NoPermalink is the link used for tyres without a matching product.
const NoPermalink = "#"

// Brand is the first cascade stage.
type Brand struct {
	ID          ID     `json:"id"`
	DisplayName string `json:"name"`
	LogoURL     string `json:"logo"`
}

// Model belongs to a Brand.
type Model struct {
	ID            ID     `json:"id"`
	DisplayName   string `json:"name"`
	ParentBrandID ID     `json:"brand_id"`
}

// Year belongs to a Model.
type Year struct {
	ID            ID     `json:"id"`
	DisplayName   string `json:"name"`
	ParentModelID ID     `json:"model_id"`
}

// Modification belongs to a Year.
type Modification struct {
	ID           ID     `json:"id"`
	DisplayName  string `json:"name"`
	ParentYearID ID     `json:"year_id"`
}

// TyreCandidate is the short listing record for a modification's tyres.
type TyreCandidate struct {
	ID         ID     `json:"id"`
	ShortLabel string `json:"tyre"`
}

// Pressure is the recommended inflation in three units.
type Pressure struct {
	Bar string `json:"bar"`
	KPa string `json:"kPa"`
	PSI string `json:"psi"`
}

// Known reports whether the catalog supplied a pressure reading.
func (p Pressure) Known() bool { return p.Bar != "" && p.Bar != Unknown }

// TyreSpec is one wheel fitment from the catalog detail payload.
type TyreSpec struct {
	TireFull           string   `json:"tire_full"`
	TireWeightKg       string   `json:"tire_weight_kg"`
	TireDiameterMm     string   `json:"tire_diameter_mm"`
	Rim                string   `json:"rim"`
	BoltPattern        string   `json:"bolt_pattern"`
	FastenerType       string   `json:"wheel_fasteners_type"`
	FastenerThreadSize string   `json:"wheel_fasteners_thread_size"`
	TighteningTorque   string   `json:"wheel_tightening_torque"`
	Pressure           Pressure `json:"tire_pressure"`
	ImageURL           string   `json:"image"`
}

// InventoryMatch is the store availability for a tyre size.
type InventoryMatch struct {
	ProductID *string `json:"product_id"`
	Permalink string  `json:"permalink"`
	Available bool    `json:"available"`
}

// Unavailable is the match returned when no product fits.
func Unavailable() InventoryMatch {
	return InventoryMatch{Permalink: NoPermalink}
}

// EnrichedTyre joins a TyreSpec with its store availability.
type EnrichedTyre struct {
	TyreSpec
	// CoreSize is the width/aspectRatio R rim token, or Unknown.
	CoreSize string         `json:"core_size"`
	Product  InventoryMatch `json:"product"`
}
