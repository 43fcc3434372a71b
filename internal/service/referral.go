package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"
)

const MaxReferralDepth = 8

// LevelPayouts is the affiliate amount credited to the ancestor at level i+1
// (level 1 is the direct referrer) when a member registers.
var LevelPayouts = []int64{20, 20, 20, 25, 30, 35, 40, 60}

type ReferralResolver struct {
	repo ReferralReader
}

func NewReferralResolver(repo ReferralReader) *ReferralResolver {
	return &ReferralResolver{
		repo: repo,
	}
}

func (r *ReferralResolver) ParentRefID(ctx context.Context, refID string) (string, error) {
	owner, err := r.owner(ctx, refID)
	if err != nil {
		return "", err
	}
	return owner.RefBy, nil
}

// NearestCoadmin walks ref_by pointers upward from the user's referrer and returns the
// first coadmin found. A chain that reaches ROOT, breaks, or loops yields model.Unassigned.
func (r *ReferralResolver) NearestCoadmin(ctx context.Context, username string) (string, error) {
	user, err := r.repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	log := logger.Logger()
	visited := map[string]struct{}{user.RefID: {}}
	current := user.RefBy

	for current != model.RootRefID {
		if _, seen := visited[current]; seen {
			log.Warn("referral chain cycle detected", zap.String("username", username), zap.String("ref_id", current))
			return model.Unassigned, nil
		}
		visited[current] = struct{}{}

		referrer, err := r.owner(ctx, current)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				log.Warn("broken referral chain", zap.String("username", username), zap.String("ref_id", current))
				return model.Unassigned, nil
			}
			return "", err
		}

		if referrer.Role == model.RoleCoadmin {
			return referrer.Username, nil
		}
		current = referrer.RefBy
	}

	return model.Unassigned, nil
}

// Upline returns up to levels usernames, starting with the owner of refID and following
// ref_by pointers. It stops early at ROOT, at an unowned ref_id, or on a revisited ref_id.
func (r *ReferralResolver) Upline(ctx context.Context, refID string, levels int) ([]string, error) {
	upline := make([]string, 0, levels)
	visited := make(map[string]struct{}, levels)
	current := refID

	for len(upline) < levels && current != model.RootRefID {
		if _, seen := visited[current]; seen {
			logger.Logger().Warn("referral chain cycle detected", zap.String("ref_id", current))
			break
		}
		visited[current] = struct{}{}

		owner, err := r.owner(ctx, current)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				break
			}
			return nil, err
		}

		upline = append(upline, owner.Username)
		current = owner.RefBy
	}

	return upline, nil
}

// TeamSize counts descendants of refID within maxDepth levels; direct children are level 1.
func (r *ReferralResolver) TeamSize(ctx context.Context, refID string, maxDepth int) (int, error) {
	type frame struct {
		refID string
		level int
	}

	visited := map[string]struct{}{refID: {}}
	stack := []frame{{refID: refID, level: 1}}
	total := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.level > maxDepth {
			continue
		}

		children, err := r.repo.Children(ctx, f.refID)
		if err != nil {
			return 0, fmt.Errorf("failed to get children of %s: %w", f.refID, err)
		}

		for _, child := range children {
			if _, seen := visited[child]; seen {
				logger.Logger().Warn("referral tree cycle detected", zap.String("ref_id", child))
				continue
			}
			visited[child] = struct{}{}
			total++
			stack = append(stack, frame{refID: child, level: f.level + 1})
		}
	}

	return total, nil
}

// Tree exports the referral tree below rootRefID breadth first. Children whose ref_id has
// no owner are skipped.
func (r *ReferralResolver) Tree(ctx context.Context, rootRefID string) (*model.TreeNode, error) {
	rootUser, err := r.owner(ctx, rootRefID)
	if err != nil {
		return nil, err
	}

	root := newTreeNode(rootUser)
	visited := map[string]struct{}{rootRefID: {}}
	queue := []*model.TreeNode{root}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		children, err := r.repo.Children(ctx, node.RefID)
		if err != nil {
			return nil, fmt.Errorf("failed to get children of %s: %w", node.RefID, err)
		}

		for _, childRefID := range children {
			if _, seen := visited[childRefID]; seen {
				continue
			}
			visited[childRefID] = struct{}{}

			childUser, err := r.owner(ctx, childRefID)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					logger.Logger().Warn("tree child without owner", zap.String("ref_id", childRefID))
					continue
				}
				return nil, err
			}

			child := newTreeNode(childUser)
			node.Children = append(node.Children, child)
			queue = append(queue, child)
		}
	}

	return root, nil
}

func (r *ReferralResolver) owner(ctx context.Context, refID string) (*model.User, error) {
	username, err := r.repo.FindByRefID(ctx, refID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve ref id: %w", err)
	}

	user, err := r.repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func newTreeNode(u *model.User) *model.TreeNode {
	return &model.TreeNode{
		RefID:    u.RefID,
		Name:     u.Name,
		Username: u.Username,
		Role:     u.Role,
		Children: []*model.TreeNode{},
	}
}
