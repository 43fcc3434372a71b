package model

type ProofFilter struct {
	Status  ProofStatus
	Coadmin string
	Member  string
}

type WithdrawalFilter struct {
	Username string
	Statuses []WithdrawalStatus
}
