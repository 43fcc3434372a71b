package service

import (
	"context"
	"testing"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service/mocks"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/storage"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminUsername = "admin"
	adminSecret   = "admin-secret"
	testSecret    = "secret"
)

type fixture struct {
	repo        *repository.MemoryRepository
	files       *storage.FileStore
	notifier    *mocks.MockNotifier
	users       *UserService
	tasks       *TaskService
	proofs      *ProofService
	withdrawals *WithdrawalService
	admin       *model.User
}

func newFixture(t *testing.T, withdrawalCfg WithdrawalConfig) *fixture {
	t.Helper()

	repo := repository.NewMemoryRepository()
	files, err := storage.NewFileStore(afero.NewMemMapFs(), "proofs")
	require.NoError(t, err)

	notifier := &mocks.MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return()

	users := NewUserService(repo, repo, auth.NewBcryptHasher(bcrypt.MinCost))
	tasks := NewTaskService(repo, repo, repo, TaskConfig{MinPayout: DefaultMinPayout, MaxPayout: DefaultMaxPayout})
	proofs := NewProofService(repo, repo, tasks, repo, files, notifier)
	withdrawals := NewWithdrawalService(repo, repo, repo, notifier, withdrawalCfg)

	admin, err := users.Bootstrap(context.Background(), AdminSeed{
		Username: adminUsername,
		Name:     "Root Admin",
		Secret:   adminSecret,
	})
	require.NoError(t, err)

	return &fixture{
		repo:        repo,
		files:       files,
		notifier:    notifier,
		users:       users,
		tasks:       tasks,
		proofs:      proofs,
		withdrawals: withdrawals,
		admin:       admin,
	}
}

func (f *fixture) register(t *testing.T, username, referralID string) *RegisterResult {
	t.Helper()
	result, err := f.users.Register(context.Background(), RegisterInput{
		Name:       "Name " + username,
		Username:   username,
		Secret:     testSecret,
		ReferralID: referralID,
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) user(t *testing.T, username string) *model.User {
	t.Helper()
	user, err := f.users.GetUser(context.Background(), username)
	require.NoError(t, err)
	return user
}

func (f *fixture) task(t *testing.T, title string, payout int64) *model.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), CreateTaskInput{
		Title:       title,
		Description: "do " + title,
		Payout:      payout,
		Creator:     adminUsername,
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) submit(t *testing.T, member, title string) string {
	t.Helper()
	key, err := f.proofs.SubmitProof(context.Background(), member, title, model.Artifact{
		Name: "proof.PNG",
		Data: []byte("png"),
	})
	require.NoError(t, err)
	return key
}

// chain registers a coadmin under the admin followed by depth members, each referred by
// the previous one, and returns their usernames top down.
func (f *fixture) chain(t *testing.T, depth int) []string {
	t.Helper()
	coadmin := f.register(t, "coadmin", f.admin.RefID)
	names := []string{"coadmin"}
	parent := coadmin.RefID
	for i := 1; i <= depth; i++ {
		username := "m" + string(rune('a'+i-1))
		result := f.register(t, username, parent)
		names = append(names, username)
		parent = result.RefID
	}
	return names
}
