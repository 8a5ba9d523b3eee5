// Package model holds the canonical in-memory shapes shared by every
// component.
package model

import "time"

// EquipmentType is the closed set of gauge equipment types.
type EquipmentType string

const (
	EquipmentThreadGauge        EquipmentType = "thread_gauge"
	EquipmentHandTool           EquipmentType = "hand_tool"
	EquipmentLargeEquipment     EquipmentType = "large_equipment"
	EquipmentCalibrationStandard EquipmentType = "calibration_standard"
)

// OwnershipType is the closed set of gauge ownership types.
type OwnershipType string

const (
	OwnershipCompany  OwnershipType = "company"
	OwnershipEmployee OwnershipType = "employee"
	OwnershipCustomer OwnershipType = "customer"
)

// Status is one of the ~10 gauge lifecycle states.
type Status string

const (
	StatusAvailable        Status = "available"
	StatusCheckedOut       Status = "checked_out"
	StatusOutForCalibration Status = "out_for_calibration"
	StatusPendingCertificate Status = "pending_certificate"
	StatusPendingRelease   Status = "pending_release"
	StatusReturned         Status = "returned"
	StatusOutOfService     Status = "out_of_service"
	StatusRetired          Status = "retired"
	StatusPendingQC        Status = "pending_qc"
	StatusInMaintenance    Status = "in_maintenance"
)

// Suffix is the companion-pair letter.
type Suffix string

const (
	SuffixGo   Suffix = "A"
	SuffixNoGo Suffix = "B"
)

// Gauge is the central entity of the data model.
type Gauge struct {
	ID                 int64
	GaugeID             *string // public set identifier, nullable for spares
	SerialNumber        string
	EquipmentType        EquipmentType
	CategoryRef          string
	OwnershipType        OwnershipType
	OwnerRef             string // employee/customer id when ownership requires one
	Status               Status
	IsSealed             bool
	StorageLocationRef   *string
	Manufacturer         string
	Model                string
	CalibrationFrequency int // days
	Suffix               *Suffix
	CompanionID          *int64
	Name                 string // computed or user-supplied display name
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Spec     Specification
	Schedule *CalibrationSchedule
}

// IsSpareThreadGauge reports whether g is an unpaired thread-gauge spare,
// identified only by serial number.
func (g *Gauge) IsSpareThreadGauge() bool {
	return g.EquipmentType == EquipmentThreadGauge && g.GaugeID == nil
}

// Specification holds the per-equipment-type detail record,
// exactly one variant populated depending on Gauge.EquipmentType. Field
// tags are snake_case because the Postgres store reads these paths
// directly out of the JSONB column (e.g. specification->'thread'->>'thread_size').
type Specification struct {
	Thread              *ThreadSpecification              `json:"thread,omitempty"`
	HandTool            *HandToolSpecification             `json:"hand_tool,omitempty"`
	LargeEquipment       *LargeEquipmentSpecification       `json:"large_equipment,omitempty"`
	CalibrationStandard *CalibrationStandardSpecification `json:"calibration_standard,omitempty"`
}

// ThreadSpecification describes a thread gauge.
type ThreadSpecification struct {
	ThreadSize  string `json:"thread_size"`  // canonical decimal form, e.g. ".250-20"
	ThreadForm  string `json:"thread_form"`  // e.g. "UN"
	ThreadClass string `json:"thread_class"` // e.g. "2A"
}

// HandToolSpecification describes a hand tool.
type HandToolSpecification struct {
	ToolFormat string  `json:"tool_format"`
	RangeMin   float64 `json:"range_min"`
	RangeMax   float64 `json:"range_max"`
	Unit       string  `json:"unit"` // inch, mm, deg, psi, bar, cm, ft
	Resolution float64 `json:"resolution"`
	Accuracy   string  `json:"accuracy"`
}

// LargeEquipmentSpecification describes large equipment.
type LargeEquipmentSpecification struct {
	Type     string `json:"type"`
	Capacity string `json:"capacity"` // empty if absent
}

// CalibrationStandardSpecification describes a calibration standard.
type CalibrationStandardSpecification struct {
	StandardType     string `json:"standard_type"`
	NominalValue     string `json:"nominal_value"`
	UncertaintyUnits string `json:"uncertainty_units"`
}

// CalibrationSchedule is the one-per-gauge derived schedule.
type CalibrationSchedule struct {
	GaugeID       int64
	NextDueDate   time.Time
	FrequencyDays int
	LastCompleted *time.Time
}
