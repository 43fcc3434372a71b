package api

import (
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
)

type userResponse struct {
	Username        string     `json:"username"`
	Name            string     `json:"name"`
	RefID           string     `json:"ref_id"`
	RefBy           string     `json:"ref_by"`
	Role            model.Role `json:"role"`
	TaskIncome      int64      `json:"task_income"`
	AffiliateIncome int64      `json:"affiliate_income"`
	Joined          time.Time  `json:"joined"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		Username:        u.Username,
		Name:            u.Name,
		RefID:           u.RefID,
		RefBy:           u.RefBy,
		Role:            u.Role,
		TaskIncome:      u.TaskIncome,
		AffiliateIncome: u.AffiliateIncome,
		Joined:          u.Joined,
	}
}

func toUserResponses(users []*model.User) []userResponse {
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return out
}

type walletResponse struct {
	Username        string `json:"username"`
	TaskIncome      int64  `json:"task_income"`
	AffiliateIncome int64  `json:"affiliate_income"`
	Total           int64  `json:"total"`
}

func toWalletResponse(w model.Wallet) walletResponse {
	return walletResponse{
		Username:        w.Username,
		TaskIncome:      w.TaskIncome,
		AffiliateIncome: w.AffiliateIncome,
		Total:           w.Total,
	}
}

type taskResponse struct {
	ID               int64              `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Payout           int64              `json:"payout"`
	CreatedBy        string             `json:"created_by"`
	CreatedDate      time.Time          `json:"created_date"`
	SubmissionStatus *model.ProofStatus `json:"submission_status,omitempty"`
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Payout:      t.Payout,
		CreatedBy:   t.CreatedBy,
		CreatedDate: t.CreatedDate,
	}
}

type proofResponse struct {
	Key             string            `json:"key"`
	TaskTitle       string            `json:"task_title"`
	TaskPayout      int64             `json:"task_payout"`
	MemberUsername  string            `json:"member_username"`
	ProofFile       string            `json:"proof_file"`
	Status          model.ProofStatus `json:"status"`
	SubmittedDate   time.Time         `json:"submitted_date"`
	CoadminUsername string            `json:"coadmin_username"`
	ApprovedByAdmin bool              `json:"approved_by_admin"`
}

func toProofResponses(submissions []*model.ProofSubmission) []proofResponse {
	out := make([]proofResponse, len(submissions))
	for i, s := range submissions {
		out[i] = proofResponse{
			Key:             s.Key,
			TaskTitle:       s.TaskTitle,
			TaskPayout:      s.TaskPayout,
			MemberUsername:  s.MemberUsername,
			ProofFile:       s.ProofFile,
			Status:          s.Status,
			SubmittedDate:   s.SubmittedDate,
			CoadminUsername: s.CoadminUsername,
			ApprovedByAdmin: s.ApprovedByAdmin,
		}
	}
	return out
}

type withdrawalResponse struct {
	RequestID   string                 `json:"request_id"`
	Username    string                 `json:"username"`
	Name        string                 `json:"name"`
	Destination string                 `json:"destination"`
	Amount      int64                  `json:"amount"`
	Date        time.Time              `json:"date"`
	Status      model.WithdrawalStatus `json:"status"`
}

func toWithdrawalResponse(w *model.WithdrawalRequest) withdrawalResponse {
	return withdrawalResponse{
		RequestID:   w.RequestID,
		Username:    w.Username,
		Name:        w.Name,
		Destination: w.Destination,
		Amount:      w.Amount,
		Date:        w.Date,
		Status:      w.Status,
	}
}

func toWithdrawalResponses(requests []*model.WithdrawalRequest) []withdrawalResponse {
	out := make([]withdrawalResponse, len(requests))
	for i, w := range requests {
		out[i] = toWithdrawalResponse(w)
	}
	return out
}
