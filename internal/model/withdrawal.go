package model

import "time"

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "Pending"
	WithdrawalPaid      WithdrawalStatus = "Paid"
	WithdrawalCancelled WithdrawalStatus = "Cancelled"
)

type SettleOutcome string

const (
	SettlePaid      SettleOutcome = "paid"
	SettleCancelled SettleOutcome = "cancelled"
)

func (o SettleOutcome) Status() (WithdrawalStatus, bool) {
	switch o {
	case SettlePaid:
		return WithdrawalPaid, true
	case SettleCancelled:
		return WithdrawalCancelled, true
	}
	return "", false
}

type WithdrawalRequest struct {
	RequestID   string
	Username    string
	Name        string
	Destination string
	Amount      int64
	// TaskAmount and AffiliateAmount split Amount by the accumulator it was drained from.
	TaskAmount      int64
	AffiliateAmount int64
	Date            time.Time
	Status          WithdrawalStatus
}
