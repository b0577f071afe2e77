package models

import (
	"time"
)

// Subscription is one paid-access lifecycle attempt for a user. History is
// retained: a user may own several rows over time, and the row with the most
// recent start date is treated as current. A row with no end date is pending,
// waiting for the processor to confirm the first payment.
type Subscription struct {
	ID        string     `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string     `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	StartDate time.Time  `gorm:"column:start_date;not null" json:"start_date"`
	EndDate   *time.Time `gorm:"column:end_date;default:null" json:"end_date"`
	IsActive  bool       `gorm:"column:is_active;not null;default:false" json:"is_active"`
	// LatestPaymentID is the processor's identifier for the most recent
	// successful or pending charge. Used to drop re-delivered webhooks.
	LatestPaymentID string `gorm:"column:latest_payment_id;type:varchar(128)" json:"latest_payment_id"`
	// PaymentMethodID is the processor's token for off-session renewal
	// charges. Set only when the processor reports the method was saved.
	PaymentMethodID string    `gorm:"column:payment_method_id;type:varchar(255)" json:"payment_method_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// Pending reports whether the first payment has not been confirmed yet.
func (s *Subscription) Pending() bool {
	return s != nil && !s.IsActive && s.EndDate == nil
}

// PaidThrough reports whether the paid period covers now. Cancellation does
// not revoke access until the period lapses, so this checks the date only.
func (s *Subscription) PaidThrough(now time.Time) bool {
	return s != nil && s.EndDate != nil && s.EndDate.After(now)
}

// Expired reports whether an end date was set and has passed.
func (s *Subscription) Expired(now time.Time) bool {
	return s != nil && s.EndDate != nil && !s.EndDate.After(now)
}

// Activate applies the first successful payment: the paid month starts now.
func (s *Subscription) Activate(paymentID, savedMethodID string, now time.Time) {
	s.IsActive = true
	s.StartDate = now
	end := now.AddDate(0, 1, 0)
	s.EndDate = &end
	s.LatestPaymentID = paymentID
	if savedMethodID != "" {
		s.PaymentMethodID = savedMethodID
	}
}

// Renew extends the paid period by one month from its current end.
func (s *Subscription) Renew(paymentID string, now time.Time) {
	base := now
	if s.EndDate != nil {
		base = *s.EndDate
	}
	end := base.AddDate(0, 1, 0)
	s.EndDate = &end
	s.IsActive = true
	s.LatestPaymentID = paymentID
}

// Deactivate turns auto-renewal off. EndDate is kept so access survives
// until natural expiry.
func (s *Subscription) Deactivate() {
	s.IsActive = false
}
