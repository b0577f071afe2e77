package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentNotificationLogStatus string

const (
	PaymentNotificationLogStatusReceived     PaymentNotificationLogStatus = "received"
	PaymentNotificationLogStatusHandled      PaymentNotificationLogStatus = "handled"
	PaymentNotificationLogStatusHandleFailed PaymentNotificationLogStatus = "handle_failed"
)

// PaymentNotificationLog is the audit trail of inbound processor webhooks.
// Every delivery is recorded, including rejected and duplicate ones, so a
// mismatched event can be traced after the processor stops retrying.
type PaymentNotificationLog struct {
	ID             string                       `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Event          string                       `gorm:"column:event;type:varchar(64);not null" json:"event"`
	PaymentID      string                       `gorm:"column:payment_id;type:varchar(128);index" json:"payment_id"`
	SubscriptionID *string                      `gorm:"column:subscription_id;type:uuid" json:"subscription_id"`
	TraceID        string                       `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Data           datatypes.JSON               `gorm:"column:data;type:jsonb" json:"data"`
	Result         *datatypes.JSON              `gorm:"column:result;type:jsonb" json:"result"`
	Status         PaymentNotificationLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}

func (PaymentNotificationLog) TableName() string { return "payment_notification_log" }
