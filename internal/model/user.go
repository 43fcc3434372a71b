package model

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCoadmin Role = "coadmin"
	RoleMember  Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoadmin, RoleMember:
		return true
	}
	return false
}

const (
	// RootRefID is the ref_by of the root admin.
	RootRefID = "ROOT"
	// Unassigned marks a member with no coadmin above it in the referral chain.
	Unassigned = "unassigned"
)

type IncomeKind string

const (
	IncomeTask      IncomeKind = "task"
	IncomeAffiliate IncomeKind = "affiliate"
)

type User struct {
	Username        string
	Name            string
	SecretHash      string
	RefID           string
	RefBy           string
	TaskIncome      int64
	AffiliateIncome int64
	Joined          time.Time
	Role            Role
}

func (u *User) Balance() int64 {
	return u.TaskIncome + u.AffiliateIncome
}

type Wallet struct {
	Username        string
	TaskIncome      int64
	AffiliateIncome int64
	Total           int64
}

type Dashboard struct {
	Username        string
	RefID           string
	Role            Role
	DirectReferrals int
	TeamSize        int
	Wallet          Wallet
}
