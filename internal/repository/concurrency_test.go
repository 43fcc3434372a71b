package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/storage"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const concurrentUnits = 40

type store interface {
	service.DirectoryRepository
	service.TaskRepository
	service.ProofRepository
	service.WithdrawalRepository
	service.Transactor
}

type services struct {
	repo        store
	users       *service.UserService
	tasks       *service.TaskService
	proofs      *service.ProofService
	withdrawals *service.WithdrawalService
	admin       *model.User
}

func newServices(t *testing.T, repo store) *services {
	t.Helper()

	files, err := storage.NewFileStore(afero.NewMemMapFs(), "proofs")
	require.NoError(t, err)

	users := service.NewUserService(repo, repo, auth.NewBcryptHasher(bcrypt.MinCost))
	tasks := service.NewTaskService(repo, repo, repo, service.TaskConfig{})
	s := &services{
		repo:        repo,
		users:       users,
		tasks:       tasks,
		proofs:      service.NewProofService(repo, repo, tasks, repo, files, nil),
		withdrawals: service.NewWithdrawalService(repo, repo, repo, nil, service.WithdrawalConfig{}),
	}

	s.admin, err = users.Bootstrap(context.Background(), service.AdminSeed{
		Username: "admin",
		Name:     "Admin",
		Secret:   "admin-secret",
	})
	require.NoError(t, err)
	return s
}

// runConcurrentUnits races registrations under one coadmin against withdrawals by that
// coadmin, then races decisions on a single submission. Names are suffixed so the test can
// share a database with other runs.
func runConcurrentUnits(t *testing.T, s *services) {
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	coadminName := "co-" + suffix
	coadmin, err := s.users.Register(ctx, service.RegisterInput{
		Name: "Co", Username: coadminName, Secret: "pw", ReferralID: s.admin.RefID,
	})
	require.NoError(t, err)
	require.Equal(t, model.RoleCoadmin, coadmin.Role)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refIDs    = map[string]struct{}{}
		withdrawn int64
		errs      []error
	)

	for i := 0; i < concurrentUnits; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			result, err := s.users.Register(ctx, service.RegisterInput{
				Name:       "Member",
				Username:   fmt.Sprintf("m%d-%s", i, suffix),
				Secret:     "pw",
				ReferralID: coadmin.RefID,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			refIDs[result.RefID] = struct{}{}
		}(i)
		go func() {
			defer wg.Done()
			request, err := s.withdrawals.RequestWithdrawal(ctx, coadminName, "acct")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, service.ErrNoBalance) {
					errs = append(errs, err)
				}
				return
			}
			withdrawn += request.AffiliateAmount
		}()
	}
	wg.Wait()
	require.Empty(t, errs)

	assert.Len(t, refIDs, concurrentUnits)
	_, reused := refIDs[coadmin.RefID]
	assert.False(t, reused)

	children, err := s.repo.Children(ctx, coadmin.RefID)
	require.NoError(t, err)
	assert.Len(t, children, concurrentUnits)

	remaining, err := s.users.GetUser(ctx, coadminName)
	require.NoError(t, err)
	assert.Equal(t, int64(20*concurrentUnits), withdrawn+remaining.AffiliateIncome)
	assert.Zero(t, remaining.TaskIncome)

	// Concurrent decisions on one submission: exactly one applies and credits once.
	member := fmt.Sprintf("m0-%s", suffix)
	title := "race-" + suffix
	_, err = s.tasks.CreateTask(ctx, service.CreateTaskInput{Title: title, Payout: 100, Creator: coadminName})
	require.NoError(t, err)
	key, err := s.proofs.SubmitProof(ctx, member, title, model.Artifact{Name: "p.png", Data: []byte("png")})
	require.NoError(t, err)

	var applied, rejected int
	for i := 0; i < concurrentUnits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.proofs.CoadminDecide(ctx, key, coadminName, model.DecisionApprove)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case errors.Is(err, service.ErrInvalidTransition):
				rejected++
			default:
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()
	require.Empty(t, errs)

	assert.Equal(t, 1, applied)
	assert.Equal(t, concurrentUnits-1, rejected)

	m, err := s.users.GetUser(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, int64(100), m.TaskIncome)
}

func TestMemoryRepository_ConcurrentUnits(t *testing.T) {
	runConcurrentUnits(t, newServices(t, repository.NewMemoryRepository()))
}

func TestRepository_PostgresConcurrentUnits(t *testing.T) {
	url := os.Getenv("APP_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("APP_TEST_DATABASE_URL not set")
	}

	repo, err := repository.Open(url)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.Migrate(context.Background()))

	runConcurrentUnits(t, newServices(t, repo))
}
