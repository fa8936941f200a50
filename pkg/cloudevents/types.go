package cloudevents

import (
	"time"
)

// Transfer event types
const (
	DesignatedTransferCommitted = "wms.transfer.designated-committed"
	ResidualBatchConfirmed      = "wms.transfer.residual-confirmed"
	ResidualTransferCompleted   = "wms.transfer.residual-completed"
	ResidualTransferReopened    = "wms.transfer.residual-reopened"
	SlotsReleased               = "wms.transfer.slots-released"

	// Robot commands share the envelope so the AMR gateway can consume both topics the same way
	RobotTransferCommand = "wms.amr.transfer-command"
)

// SourceTransfer is the CloudEvents source for this service
const SourceTransfer = "/wms/transfer-service"

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	OrderID       string `json:"wmsorderid,omitempty"`
	ItemCode      string `json:"wmsitemcode,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
}
