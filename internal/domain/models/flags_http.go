package models

// Requests for detection HTTP endpoints. Defined in domain for consistency and reuse.

type CellFlagsRequest struct {
	Experiment string `query:"experiment" json:"experiment" validate:"required"`
	Cell       string `query:"cell" json:"cell" validate:"required"`
}

type ExperimentFlagsRequest struct {
	Experiment string `query:"experiment" json:"experiment" validate:"required"`
	MaxCells   int    `query:"max_cells" json:"max_cells" default:"64" validate:"gte=1,lte=512"`
}

// AnalyzeCycle is one inline cycle row of an AnalyzeRequest. Optional
// measurements stay pointers so an omitted field arrives as nil.
type AnalyzeCycle struct {
	N           int      `json:"n" validate:"required,gt=0"`
	QCharge     *float64 `json:"q_chg"`
	QDischarge  *float64 `json:"q_dis"`
	SQCharge    *float64 `json:"sq_chg"`
	SQDischarge *float64 `json:"sq_dis"`
	Efficiency  *float64 `json:"eff"`
}

// AnalyzeRequest carries a full inline series for store-free analysis.
type AnalyzeRequest struct {
	Cell                   string         `json:"cell" validate:"required"`
	Experiment             string         `json:"experiment"`
	ProjectKind            string         `json:"project_kind" default:"full_cell" validate:"oneof=full_cell cathode anode"`
	FormationCycles        int            `json:"formation_cycles" default:"4" validate:"gte=0,lte=100"`
	LoadingMg              float64        `json:"loading_mg" validate:"gte=0"`
	ActiveMaterialPercent  float64        `json:"active_material_percent" validate:"gte=0,lte=100"`
	Cycles                 []AnalyzeCycle `json:"cycles" validate:"required,min=1,dive"`
	SiblingFirstDischarges []float64      `json:"sibling_first_discharges"`
}

// ToSeries converts the request into the immutable series the core consumes.
func (r *AnalyzeRequest) ToSeries() *CellSeries {
	records := make([]CycleRecord, 0, len(r.Cycles))
	for _, c := range r.Cycles {
		records = append(records, CycleRecord{
			CycleNumber:               c.N,
			ChargeCapacity:            c.QCharge,
			DischargeCapacity:         c.QDischarge,
			SpecificChargeCapacity:    c.SQCharge,
			SpecificDischargeCapacity: c.SQDischarge,
			CoulombicEfficiency:       c.Efficiency,
		})
	}
	return &CellSeries{
		CellID:                r.Cell,
		ExperimentID:          r.Experiment,
		LoadingMg:             r.LoadingMg,
		ActiveMaterialPercent: r.ActiveMaterialPercent,
		ProjectKind:           NormalizeProjectKind(r.ProjectKind),
		FormationCycleCount:   r.FormationCycles,
		Records:               records,
	}
}
