package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/metrics"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"
)

const (
	generatedSecretLength = 6
	secretAlphabet        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type SecretHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) error
}

type RegisterInput struct {
	Name       string
	Username   string
	Secret     string
	ReferralID string
	// ExplicitRole may only be set by an admin Caller registering under the admin's own ref_id.
	ExplicitRole model.Role
	Caller       *model.User
}

type RegisterResult struct {
	Username string
	RefID    string
	Role     model.Role
}

type AddMemberResult struct {
	RegisterResult
	Secret string
}

type AdminSeed struct {
	Username string
	Name     string
	Secret   string
}

type UserService struct {
	repo     DirectoryRepository
	tx       Transactor
	resolver *ReferralResolver
	hasher   SecretHasher
}

func NewUserService(repo DirectoryRepository, tx Transactor, hasher SecretHasher) *UserService {
	return &UserService{
		repo:     repo,
		tx:       tx,
		resolver: NewReferralResolver(repo),
		hasher:   hasher,
	}
}

// Bootstrap creates the root admin under ROOT unless an admin already exists.
func (s *UserService) Bootstrap(ctx context.Context, seed AdminSeed) (*model.User, error) {
	if seed.Username == "" || seed.Secret == "" {
		return nil, fmt.Errorf("%w: admin username and secret are required", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(seed.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin secret: %w", err)
	}

	var admin *model.User
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetAdmin(ctx)
		if err == nil {
			admin = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to get admin: %w", err)
		}

		refID, err := s.repo.NextRefID(ctx)
		if err != nil {
			return err
		}

		name := seed.Name
		if name == "" {
			name = "Admin"
		}
		admin = &model.User{
			Username:   seed.Username,
			Name:       name,
			SecretHash: hash,
			RefID:      refID,
			RefBy:      model.RootRefID,
			Joined:     time.Now().UTC(),
			Role:       model.RoleAdmin,
		}
		if err := s.repo.CreateUser(ctx, admin); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrDuplicateUser
			}
			return fmt.Errorf("failed to create admin: %w", err)
		}

		logger.Logger().Info("root admin created", zap.String("username", admin.Username), zap.String("ref_id", refID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return admin, nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.ReferralID = strings.TrimSpace(in.ReferralID)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret: %w", err)
	}

	var (
		result    *RegisterResult
		affiliate int64
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		result, affiliate, err = s.register(ctx, in, hash)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.Registrations.WithLabelValues(string(result.Role)).Inc()
	metrics.AffiliateCredit.Add(float64(affiliate))
	logger.Logger().Info("user registered",
		zap.String("username", result.Username),
		zap.String("ref_id", result.RefID),
		zap.String("ref_by", in.ReferralID),
		zap.String("role", string(result.Role)),
		zap.Int64("affiliate_paid", affiliate))

	return result, nil
}

func validateRegistration(in RegisterInput) error {
	if in.Name == "" || in.Username == "" || in.Secret == "" || in.ReferralID == "" {
		return fmt.Errorf("%w: name, username, secret and referral id are required", ErrInvalidInput)
	}
	if strings.EqualFold(in.Username, model.Unassigned) {
		return fmt.Errorf("%w: username %q is reserved", ErrInvalidInput, in.Username)
	}
	return nil
}

func (s *UserService) register(ctx context.Context, in RegisterInput, hash string) (*RegisterResult, int64, error) {
	_, err := s.repo.GetUser(ctx, in.Username)
	if err == nil {
		return nil, 0, ErrDuplicateUser
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, 0, fmt.Errorf("failed to get user: %w", err)
	}

	if in.ReferralID == model.RootRefID {
		return nil, 0, ErrRootRegistrationForbidden
	}

	admin, err := s.repo.GetAdmin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get admin: %w", err)
	}

	if in.ReferralID != admin.RefID {
		exists, err := s.repo.RefIDExists(ctx, in.ReferralID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to check referral id: %w", err)
		}
		if !exists {
			return nil, 0, ErrInvalidReferral
		}
	}

	role, err := determineRole(in, admin)
	if err != nil {
		return nil, 0, err
	}

	refID, err := s.repo.NextRefID(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to allocate ref id: %w", err)
	}

	user := &model.User{
		Username:   in.Username,
		Name:       in.Name,
		SecretHash: hash,
		RefID:      refID,
		RefBy:      in.ReferralID,
		Joined:     time.Now().UTC(),
		Role:       role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, 0, ErrDuplicateUser
		}
		return nil, 0, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.repo.AddChild(ctx, in.ReferralID, refID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrInvalidReferral
		}
		return nil, 0, fmt.Errorf("failed to link referral: %w", err)
	}

	var paid int64
	if role == model.RoleMember {
		paid, err = s.payAffiliates(ctx, in.ReferralID)
		if err != nil {
			return nil, 0, err
		}
	}

	return &RegisterResult{
		Username: user.Username,
		RefID:    refID,
		Role:     role,
	}, paid, nil
}

func determineRole(in RegisterInput, admin *model.User) (model.Role, error) {
	if in.ExplicitRole != "" {
		if in.ExplicitRole != model.RoleCoadmin && in.ExplicitRole != model.RoleMember {
			return "", ErrInvalidExplicitRole
		}
		if in.Caller == nil || in.Caller.Role != model.RoleAdmin || in.ReferralID != in.Caller.RefID {
			return "", ErrInvalidExplicitRole
		}
		return in.ExplicitRole, nil
	}

	if in.ReferralID == admin.RefID {
		return model.RoleCoadmin, nil
	}
	return model.RoleMember, nil
}

// payAffiliates credits each ancestor of referralID, starting with its owner, with the
// payout of its level.
func (s *UserService) payAffiliates(ctx context.Context, referralID string) (int64, error) {
	upline, err := s.resolver.Upline(ctx, referralID, len(LevelPayouts))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve upline: %w", err)
	}

	var total int64
	for level, username := range upline {
		amount := LevelPayouts[level]
		if err := s.repo.CreditIncome(ctx, username, model.IncomeAffiliate, amount); err != nil {
			return 0, fmt.Errorf("failed to credit affiliate income to %s: %w", username, err)
		}
		total += amount
	}

	return total, nil
}

func (s *UserService) Login(ctx context.Context, username, secret string) (*model.User, error) {
	user, err := s.repo.GetUser(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthFailure
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.hasher.Compare(user.SecretHash, secret); err != nil {
		return nil, ErrAuthFailure
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// AddMember registers a member directly under the coadmin with a generated secret.
func (s *UserService) AddMember(ctx context.Context, coadminUsername, name, username string) (*AddMemberResult, error) {
	coadmin, err := s.GetUser(ctx, coadminUsername)
	if err != nil {
		return nil, err
	}
	if coadmin.Role != model.RoleCoadmin {
		return nil, ErrNotAuthorized
	}

	secret, err := generateSecret(generatedSecretLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	result, err := s.Register(ctx, RegisterInput{
		Name:       name,
		Username:   username,
		Secret:     secret,
		ReferralID: coadmin.RefID,
	})
	if err != nil {
		return nil, err
	}

	return &AddMemberResult{
		RegisterResult: *result,
		Secret:         secret,
	}, nil
}

func generateSecret(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(secretAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = secretAlphabet[n.Int64()]
	}
	return string(out), nil
}

// DirectMembers lists members referred directly by the user.
func (s *UserService) DirectMembers(ctx context.Context, username string) ([]*model.User, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}

	referred, err := s.repo.ListReferredBy(ctx, user.RefID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referred users: %w", err)
	}

	members := make([]*model.User, 0, len(referred))
	for _, u := range referred {
		if u.Role == model.RoleMember {
			members = append(members, u)
		}
	}
	return members, nil
}

func (s *UserService) Coadmins(ctx context.Context) ([]*model.User, error) {
	coadmins, err := s.repo.ListUsersByRole(ctx, model.RoleCoadmin)
	if err != nil {
		return nil, fmt.Errorf("failed to list coadmins: %w", err)
	}
	return coadmins, nil
}

func (s *UserService) Wallet(ctx context.Context, username string) (*model.Wallet, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return walletOf(user), nil
}

func walletOf(u *model.User) *model.Wallet {
	return &model.Wallet{
		Username:        u.Username,
		TaskIncome:      u.TaskIncome,
		AffiliateIncome: u.AffiliateIncome,
		Total:           u.Balance(),
	}
}

func (s *UserService) Dashboard(ctx context.Context, username string) (*model.Dashboard, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}

	directs, err := s.repo.Children(ctx, user.RefID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct referrals: %w", err)
	}

	team, err := s.resolver.TeamSize(ctx, user.RefID, MaxReferralDepth)
	if err != nil {
		return nil, err
	}

	return &model.Dashboard{
		Username:        user.Username,
		RefID:           user.RefID,
		Role:            user.Role,
		DirectReferrals: len(directs),
		TeamSize:        team,
		Wallet:          *walletOf(user),
	}, nil
}

func (s *UserService) NearestCoadmin(ctx context.Context, username string) (string, error) {
	return s.resolver.NearestCoadmin(ctx, username)
}

func (s *UserService) TeamSize(ctx context.Context, refID string, maxDepth int) (int, error) {
	return s.resolver.TeamSize(ctx, refID, maxDepth)
}

// Tree exports the referral tree rooted at rootRefID, or at the admin when rootRefID is empty.
func (s *UserService) Tree(ctx context.Context, rootRefID string) (*model.TreeNode, error) {
	if rootRefID == "" {
		admin, err := s.repo.GetAdmin(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get admin: %w", err)
		}
		rootRefID = admin.RefID
	}
	return s.resolver.Tree(ctx, rootRefID)
}

func (s *UserService) ParentRefID(ctx context.Context, refID string) (string, error) {
	return s.resolver.ParentRefID(ctx, refID)
}

// requireRole loads username and checks it holds one of roles.
func requireRole(ctx context.Context, repo ReferralReader, username string, roles ...model.Role) (*model.User, error) {
	user, err := repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	for _, role := range roles {
		if user.Role == role {
			return user, nil
		}
	}
	return nil, ErrNotAuthorized
}
