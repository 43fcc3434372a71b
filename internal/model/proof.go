package model

import "time"

type ProofStatus string

const (
	ProofPending           ProofStatus = "Pending"
	ProofApprovedByCoadmin ProofStatus = "Approved By Coadmin"
	ProofDeniedByCoadmin   ProofStatus = "Denied By Coadmin"
	ProofApprovedByAdmin   ProofStatus = "Approved By Admin"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionDeny
}

type ProofSubmission struct {
	Key             string
	TaskTitle       string
	TaskPayout      int64
	MemberUsername  string
	ProofFile       string
	Status          ProofStatus
	SubmittedDate   time.Time
	CoadminUsername string
	ApprovedByAdmin bool
}

// Artifact is the raw proof upload handed to the file store.
type Artifact struct {
	Name string
	Data []byte
}
