package service

import (
	"context"
	"errors"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
)

var (
	ErrDuplicateUser             = errors.New("username already exists")
	ErrInvalidReferral           = errors.New("invalid referral id")
	ErrRootRegistrationForbidden = errors.New("cannot register directly under ROOT")
	ErrInvalidExplicitRole       = errors.New("explicit role not allowed")
	ErrAlreadySubmitted          = errors.New("proof already submitted for this task")
	ErrNoBalance                 = errors.New("no balance available for withdrawal")
	ErrNotAuthorized             = errors.New("not authorized")
	ErrInvalidTransition         = errors.New("invalid state transition")
	ErrInvalidInput              = errors.New("invalid input")
	ErrAuthFailure               = errors.New("invalid credentials")

	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrSubmissionNotFound = errors.New("proof submission not found")
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
)

type Service struct {
	*UserService
	*TaskService
	*ProofService
	*WithdrawalService
}

func NewService(
	userService *UserService,
	taskService *TaskService,
	proofService *ProofService,
	withdrawalService *WithdrawalService,
) *Service {
	return &Service{
		UserService:       userService,
		TaskService:       taskService,
		ProofService:      proofService,
		WithdrawalService: withdrawalService,
	}
}

type UserServiceI interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, username, secret string) (*model.User, error)
	GetUser(ctx context.Context, username string) (*model.User, error)
	AddMember(ctx context.Context, coadminUsername, name, username string) (*AddMemberResult, error)
	DirectMembers(ctx context.Context, username string) ([]*model.User, error)
	Coadmins(ctx context.Context) ([]*model.User, error)
	Wallet(ctx context.Context, username string) (*model.Wallet, error)
	Dashboard(ctx context.Context, username string) (*model.Dashboard, error)
	NearestCoadmin(ctx context.Context, username string) (string, error)
	TeamSize(ctx context.Context, refID string, maxDepth int) (int, error)
	Tree(ctx context.Context, rootRefID string) (*model.TreeNode, error)
}

type TaskServiceI interface {
	CreateTask(ctx context.Context, in CreateTaskInput) (*model.Task, error)
	ListTasksFor(ctx context.Context, viewer *model.User) ([]*model.TaskView, error)
	TasksByCreator(ctx context.Context, username string) ([]*model.Task, error)
}

type ProofServiceI interface {
	SubmitProof(ctx context.Context, member, taskTitle string, artifact model.Artifact) (string, error)
	CoadminDecide(ctx context.Context, key, coadminUsername string, decision model.Decision) error
	AdminConfirm(ctx context.Context, key, adminUsername string) error
	PendingForCoadmin(ctx context.Context, coadminUsername string) ([]*model.ProofSubmission, error)
	AwaitingAdminReview(ctx context.Context) ([]*model.ProofSubmission, error)
	SubmissionsFor(ctx context.Context, member string) ([]*model.ProofSubmission, error)
	Artifact(ctx context.Context, key, viewer string) (*model.ProofSubmission, []byte, error)
}

type WithdrawalServiceI interface {
	RequestWithdrawal(ctx context.Context, username, destination string) (*model.WithdrawalRequest, error)
	Settle(ctx context.Context, requestID, adminUsername string, outcome model.SettleOutcome) error
	Pending(ctx context.Context) ([]*model.WithdrawalRequest, error)
	Processed(ctx context.Context) ([]*model.WithdrawalRequest, error)
	ForUser(ctx context.Context, username string) ([]*model.WithdrawalRequest, error)
}

// Transactor runs fn as one atomic unit. Store calls made with the ctx passed to fn join
// the unit; nested calls reuse the outer unit.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ReferralReader interface {
	GetUser(ctx context.Context, username string) (*model.User, error)
	FindByRefID(ctx context.Context, refID string) (string, error)
	Children(ctx context.Context, refID string) ([]string, error)
}

type DirectoryRepository interface {
	ReferralReader
	CreateUser(ctx context.Context, user *model.User) error
	RefIDExists(ctx context.Context, refID string) (bool, error)
	AddChild(ctx context.Context, parentRefID, childRefID string) error
	CreditIncome(ctx context.Context, username string, kind model.IncomeKind, amount int64) error
	DrainIncome(ctx context.Context, username string) (task int64, affiliate int64, err error)
	NextRefID(ctx context.Context) (string, error)
	GetAdmin(ctx context.Context) (*model.User, error)
	ListUsersByRole(ctx context.Context, role model.Role) ([]*model.User, error)
	ListReferredBy(ctx context.Context, refID string) ([]*model.User, error)
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	ListTasks(ctx context.Context) ([]*model.Task, error)
	FindTaskByTitle(ctx context.Context, title string) (*model.Task, error)
	ListTasksByCreator(ctx context.Context, username string) ([]*model.Task, error)
}

type ProofRepository interface {
	CreateSubmission(ctx context.Context, submission *model.ProofSubmission) error
	GetSubmission(ctx context.Context, key string) (*model.ProofSubmission, error)
	FindSubmission(ctx context.Context, member, taskTitle string) (*model.ProofSubmission, error)
	UpdateSubmission(ctx context.Context, submission *model.ProofSubmission) error
	ListSubmissions(ctx context.Context, filter model.ProofFilter) ([]*model.ProofSubmission, error)
}

type WithdrawalRepository interface {
	NextWithdrawalNumber(ctx context.Context) (int64, error)
	CreateWithdrawal(ctx context.Context, request *model.WithdrawalRequest) error
	GetWithdrawal(ctx context.Context, requestID string) (*model.WithdrawalRequest, error)
	UpdateWithdrawalStatus(ctx context.Context, requestID string, status model.WithdrawalStatus) error
	ListWithdrawals(ctx context.Context, filter model.WithdrawalFilter) ([]*model.WithdrawalRequest, error)
}

// FileStore keeps proof artifacts. Save returns an opaque reference usable with Read.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Read(ctx context.Context, ref string) ([]byte, error)
}

type Notifier interface {
	Notify(ctx context.Context, event model.Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Event) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
