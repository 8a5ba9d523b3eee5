package model

import "time"

// Certificate records a calibration event.
type Certificate struct {
	ID             string
	GaugeID        int64
	FileRef        string // opaque path/URL, blob storage is an external collaborator
	UploadedAt     time.Time
	UploadedBy     string
	CustomName     *string
	IsCurrent      bool
	SupersededAt   *time.Time
	SupersededBy   *string
	DeletedAt      *time.Time
}

// DisplayName returns CustomName if set, else the default
// "{extension}_Certificate_{YYYY.MM.DD}" naming convention.
func (c *Certificate) DisplayName() string {
	if c.CustomName != nil && *c.CustomName != "" {
		return *c.CustomName
	}
	return defaultCertificateName(c.FileRef, c.UploadedAt)
}

func defaultCertificateName(fileRef string, uploadedAt time.Time) string {
	ext := fileExtension(fileRef)
	return ext + "_Certificate_" + uploadedAt.Format("2006.01.02")
}

func fileExtension(fileRef string) string {
	for i := len(fileRef) - 1; i >= 0; i-- {
		switch fileRef[i] {
		case '.':
			return fileRef[i+1:]
		case '/':
			return "file"
		}
	}
	return "file"
}

// ActiveCheckout is the 0..1-per-gauge active checkout record.
type ActiveCheckout struct {
	GaugeID        int64
	UserID         string
	CheckedOutAt   time.Time
	Notes          string
}

// BatchType is external vs internal calibration.
type BatchType string

const (
	BatchInternal BatchType = "internal"
	BatchExternal BatchType = "external"
)

// BatchStatus is the calibration batch's lifecycle status.
type BatchStatus string

const (
	BatchPendingSend       BatchStatus = "pending_send"
	BatchSent              BatchStatus = "sent"
	BatchPartiallyReceived BatchStatus = "partially_received"
	BatchCompleted         BatchStatus = "completed"
	BatchCancelled         BatchStatus = "cancelled"
)

// CalibrationBatch groups gauges moving through calibration together.
type CalibrationBatch struct {
	ID             string
	Type           BatchType
	Vendor         string // required if external
	TrackingNumber string
	Status         BatchStatus
	SentAt         *time.Time
	CreatedBy      string
	CreatedAt      time.Time

	GaugeIDs []int64
}

// SetIDHistoryEntry records a public set identifier ever assigned to a
// thread-gauge set.
type SetIDHistoryEntry struct {
	SetID      string
	FirstUsedAt time.Time
	RetiredAt   *time.Time
}
