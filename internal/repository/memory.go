package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
)

type memoryTxKey struct{}

type memoryState struct {
	users         map[string]model.User
	refIndex      map[string]string
	children      map[string][]string
	refCounter    int64
	tasks         []model.Task
	proofs        map[string]model.ProofSubmission
	proofOrder    []string
	withdrawals   []model.WithdrawalRequest
	withdrawalSeq int64
}

func newMemoryState() memoryState {
	return memoryState{
		users:    make(map[string]model.User),
		refIndex: make(map[string]string),
		children: make(map[string][]string),
		proofs:   make(map[string]model.ProofSubmission),
	}
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		users:         make(map[string]model.User, len(s.users)),
		refIndex:      make(map[string]string, len(s.refIndex)),
		children:      make(map[string][]string, len(s.children)),
		refCounter:    s.refCounter,
		tasks:         append([]model.Task(nil), s.tasks...),
		proofs:        make(map[string]model.ProofSubmission, len(s.proofs)),
		proofOrder:    append([]string(nil), s.proofOrder...),
		withdrawals:   append([]model.WithdrawalRequest(nil), s.withdrawals...),
		withdrawalSeq: s.withdrawalSeq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.refIndex {
		c.refIndex[k] = v
	}
	for k, v := range s.children {
		c.children[k] = append([]string{}, v...)
	}
	for k, v := range s.proofs {
		c.proofs[k] = v
	}
	return c
}

// MemoryRepository keeps the directory, tasks, proofs and withdrawals in process.
// Mutations are serialized by one write lock held for a whole transaction; a failed
// transaction restores the state it started from.
type MemoryRepository struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state memoryState
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		state: newMemoryState(),
	}
}

func (r *MemoryRepository) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(memoryTxKey{}).(*MemoryRepository)
	return ok && owner == r
}

func (r *MemoryRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.inTx(ctx) {
		return fn(ctx)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := r.state.clone()
	r.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memoryTxKey{}, r)); err != nil {
		r.mu.Lock()
		r.state = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *MemoryRepository) write(ctx context.Context, fn func(s *memoryState) error) error {
	if !r.inTx(ctx) {
		r.txMu.Lock()
		defer r.txMu.Unlock()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&r.state)
}

func (r *MemoryRepository) read(fn func(s *memoryState)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(&r.state)
}

func (r *MemoryRepository) Close() error {
	return nil
}

func (r *MemoryRepository) CreateUser(ctx context.Context, user *model.User) error {
	return r.write(ctx, func(s *memoryState) error {
		if _, exists := s.users[user.Username]; exists {
			return ErrDuplicateKey
		}
		if _, exists := s.refIndex[user.RefID]; exists {
			return ErrDuplicateKey
		}
		s.users[user.Username] = *user
		s.refIndex[user.RefID] = user.Username
		if _, exists := s.children[user.RefID]; !exists {
			s.children[user.RefID] = []string{}
		}
		return nil
	})
}

func (r *MemoryRepository) GetUser(_ context.Context, username string) (*model.User, error) {
	var (
		user model.User
		ok   bool
	)
	r.read(func(s *memoryState) {
		user, ok = s.users[username]
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryRepository) GetAdmin(_ context.Context) (*model.User, error) {
	var admin *model.User
	r.read(func(s *memoryState) {
		for _, u := range s.users {
			if u.Role == model.RoleAdmin {
				u := u
				admin = &u
				return
			}
		}
	})
	if admin == nil {
		return nil, ErrNotFound
	}
	return admin, nil
}

func (r *MemoryRepository) FindByRefID(_ context.Context, refID string) (string, error) {
	var (
		username string
		ok       bool
	)
	r.read(func(s *memoryState) {
		username, ok = s.refIndex[refID]
	})
	if !ok {
		return "", ErrNotFound
	}
	return username, nil
}

func (r *MemoryRepository) RefIDExists(_ context.Context, refID string) (bool, error) {
	var ok bool
	r.read(func(s *memoryState) {
		_, ok = s.children[refID]
	})
	return ok, nil
}

func (r *MemoryRepository) AddChild(ctx context.Context, parentRefID, childRefID string) error {
	return r.write(ctx, func(s *memoryState) error {
		if _, ok := s.children[parentRefID]; !ok {
			return ErrNotFound
		}
		s.children[parentRefID] = append(s.children[parentRefID], childRefID)
		return nil
	})
}

func (r *MemoryRepository) Children(_ context.Context, refID string) ([]string, error) {
	children := []string{}
	r.read(func(s *memoryState) {
		children = append(children, s.children[refID]...)
	})
	return children, nil
}

func (r *MemoryRepository) CreditIncome(ctx context.Context, username string, kind model.IncomeKind, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("negative credit amount %d", amount)
	}

	return r.write(ctx, func(s *memoryState) error {
		user, ok := s.users[username]
		if !ok {
			return ErrNotFound
		}
		switch kind {
		case model.IncomeTask:
			user.TaskIncome += amount
		case model.IncomeAffiliate:
			user.AffiliateIncome += amount
		default:
			return fmt.Errorf("unknown income kind %q", kind)
		}
		s.users[username] = user
		return nil
	})
}

func (r *MemoryRepository) DrainIncome(ctx context.Context, username string) (int64, int64, error) {
	var task, affiliate int64
	err := r.write(ctx, func(s *memoryState) error {
		user, ok := s.users[username]
		if !ok {
			return ErrNotFound
		}
		task, affiliate = user.TaskIncome, user.AffiliateIncome
		user.TaskIncome, user.AffiliateIncome = 0, 0
		s.users[username] = user
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return task, affiliate, nil
}

func (r *MemoryRepository) NextRefID(ctx context.Context) (string, error) {
	var n int64
	err := r.write(ctx, func(s *memoryState) error {
		s.refCounter++
		n = s.refCounter
		return nil
	})
	if err != nil {
		return "", err
	}
	return FormatRefID(n), nil
}

func (r *MemoryRepository) listUsers(match func(u *model.User) bool) []*model.User {
	out := []*model.User{}
	r.read(func(s *memoryState) {
		for _, u := range s.users {
			u := u
			if match(&u) {
				out = append(out, &u)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Joined.Equal(out[j].Joined) {
			return out[i].Joined.Before(out[j].Joined)
		}
		return out[i].Username < out[j].Username
	})
	return out
}

func (r *MemoryRepository) ListUsersByRole(_ context.Context, role model.Role) ([]*model.User, error) {
	return r.listUsers(func(u *model.User) bool { return u.Role == role }), nil
}

func (r *MemoryRepository) ListReferredBy(_ context.Context, refID string) ([]*model.User, error) {
	return r.listUsers(func(u *model.User) bool { return u.RefBy == refID }), nil
}

func (r *MemoryRepository) CreateTask(ctx context.Context, task *model.Task) error {
	return r.write(ctx, func(s *memoryState) error {
		task.ID = int64(len(s.tasks) + 1)
		s.tasks = append(s.tasks, *task)
		return nil
	})
}

func (r *MemoryRepository) listTasks(match func(t *model.Task) bool) []*model.Task {
	out := []*model.Task{}
	r.read(func(s *memoryState) {
		for _, t := range s.tasks {
			t := t
			if match(&t) {
				out = append(out, &t)
			}
		}
	})
	return out
}

func (r *MemoryRepository) ListTasks(_ context.Context) ([]*model.Task, error) {
	return r.listTasks(func(*model.Task) bool { return true }), nil
}

func (r *MemoryRepository) ListTasksByCreator(_ context.Context, username string) ([]*model.Task, error) {
	return r.listTasks(func(t *model.Task) bool { return t.CreatedBy == username }), nil
}

func (r *MemoryRepository) FindTaskByTitle(_ context.Context, title string) (*model.Task, error) {
	tasks := r.listTasks(func(t *model.Task) bool { return t.Title == title })
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return tasks[0], nil
}

func (r *MemoryRepository) CreateSubmission(ctx context.Context, submission *model.ProofSubmission) error {
	return r.write(ctx, func(s *memoryState) error {
		if _, exists := s.proofs[submission.Key]; exists {
			return ErrDuplicateKey
		}
		for _, p := range s.proofs {
			if p.MemberUsername == submission.MemberUsername && p.TaskTitle == submission.TaskTitle {
				return ErrDuplicateKey
			}
		}
		s.proofs[submission.Key] = *submission
		s.proofOrder = append(s.proofOrder, submission.Key)
		return nil
	})
}

func (r *MemoryRepository) GetSubmission(_ context.Context, key string) (*model.ProofSubmission, error) {
	var (
		p  model.ProofSubmission
		ok bool
	)
	r.read(func(s *memoryState) {
		p, ok = s.proofs[key]
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) FindSubmission(ctx context.Context, member, taskTitle string) (*model.ProofSubmission, error) {
	found, err := r.ListSubmissions(ctx, model.ProofFilter{Member: member})
	if err != nil {
		return nil, err
	}
	for _, p := range found {
		if p.TaskTitle == taskTitle {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) UpdateSubmission(ctx context.Context, submission *model.ProofSubmission) error {
	return r.write(ctx, func(s *memoryState) error {
		p, ok := s.proofs[submission.Key]
		if !ok {
			return ErrNotFound
		}
		p.Status = submission.Status
		p.ApprovedByAdmin = submission.ApprovedByAdmin
		s.proofs[submission.Key] = p
		return nil
	})
}

func (r *MemoryRepository) ListSubmissions(_ context.Context, filter model.ProofFilter) ([]*model.ProofSubmission, error) {
	out := []*model.ProofSubmission{}
	r.read(func(s *memoryState) {
		for _, key := range s.proofOrder {
			p := s.proofs[key]
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			if filter.Coadmin != "" && p.CoadminUsername != filter.Coadmin {
				continue
			}
			if filter.Member != "" && p.MemberUsername != filter.Member {
				continue
			}
			out = append(out, &p)
		}
	})
	return out, nil
}

func (r *MemoryRepository) NextWithdrawalNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.write(ctx, func(s *memoryState) error {
		s.withdrawalSeq++
		n = s.withdrawalSeq
		return nil
	})
	return n, err
}

func (r *MemoryRepository) CreateWithdrawal(ctx context.Context, request *model.WithdrawalRequest) error {
	return r.write(ctx, func(s *memoryState) error {
		for _, w := range s.withdrawals {
			if w.RequestID == request.RequestID {
				return ErrDuplicateKey
			}
		}
		s.withdrawals = append(s.withdrawals, *request)
		return nil
	})
}

func (r *MemoryRepository) GetWithdrawal(_ context.Context, requestID string) (*model.WithdrawalRequest, error) {
	var found *model.WithdrawalRequest
	r.read(func(s *memoryState) {
		for _, w := range s.withdrawals {
			if w.RequestID == requestID {
				w := w
				found = &w
				return
			}
		}
	})
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *MemoryRepository) UpdateWithdrawalStatus(ctx context.Context, requestID string, status model.WithdrawalStatus) error {
	return r.write(ctx, func(s *memoryState) error {
		for i := range s.withdrawals {
			if s.withdrawals[i].RequestID == requestID {
				s.withdrawals[i].Status = status
				return nil
			}
		}
		return ErrNotFound
	})
}

func (r *MemoryRepository) ListWithdrawals(_ context.Context, filter model.WithdrawalFilter) ([]*model.WithdrawalRequest, error) {
	statuses := make(map[model.WithdrawalStatus]struct{}, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses[st] = struct{}{}
	}

	out := []*model.WithdrawalRequest{}
	r.read(func(s *memoryState) {
		for _, w := range s.withdrawals {
			w := w
			if filter.Username != "" && w.Username != filter.Username {
				continue
			}
			if _, ok := statuses[w.Status]; len(statuses) > 0 && !ok {
				continue
			}
			out = append(out, &w)
		}
	})
	return out, nil
}
