package eventbus

// Canonical event names.
const (
	EventAssetCreated            = "asset.created"
	EventAssetUpdated            = "asset.updated"
	EventAssetDeleted            = "asset.deleted"
	EventAssetCheckedOut         = "asset.checked_out"
	EventAssetReturned           = "asset.returned"
	EventAssetTransferred        = "asset.transferred"
	EventAssetCalibrationChanged = "asset.calibration_changed"
	EventAssetStatusChanged      = "asset.status_changed"

	EventSetCreated        = "set.created"
	EventSetMemberReplaced = "set.member_replaced"
	EventSetUnpaired       = "set.unpaired"
	EventSetRetired        = "set.retired"

	EventBatchCreated      = "batch.created"
	EventBatchGaugeAdded   = "batch.gauge_added"
	EventBatchGaugeRemoved = "batch.gauge_removed"
	EventBatchSent         = "batch.sent"
	EventBatchReceived     = "batch.received"
	EventBatchCompleted    = "batch.completed"
	EventBatchCancelled    = "batch.cancelled"

	EventCertificateUploaded   = "certificate.uploaded"
	EventCertificateSuperseded = "certificate.superseded"
)
