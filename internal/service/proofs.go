package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/metrics"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProofService struct {
	proofs   ProofRepository
	users    DirectoryRepository
	tasks    *TaskService
	tx       Transactor
	files    FileStore
	resolver *ReferralResolver
	notifier Notifier
}

func NewProofService(
	proofs ProofRepository,
	users DirectoryRepository,
	tasks *TaskService,
	tx Transactor,
	files FileStore,
	notifier Notifier,
) *ProofService {
	return &ProofService{
		proofs:   proofs,
		users:    users,
		tasks:    tasks,
		tx:       tx,
		files:    files,
		resolver: NewReferralResolver(users),
		notifier: notifierOrNop(notifier),
	}
}

// SubmitProof stores the artifact and opens a Pending submission assigned to the member's
// nearest coadmin. Only one submission per member and task title ever exists.
func (s *ProofService) SubmitProof(ctx context.Context, member, taskTitle string, artifact model.Artifact) (string, error) {
	if len(artifact.Data) == 0 {
		return "", fmt.Errorf("%w: proof file is empty", ErrInvalidInput)
	}

	var submission *model.ProofSubmission
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := requireRole(ctx, s.users, member, model.RoleMember); err != nil {
			return err
		}

		task, err := s.tasks.taskByTitle(ctx, taskTitle)
		if err != nil {
			return err
		}

		_, err = s.proofs.FindSubmission(ctx, member, task.Title)
		if err == nil {
			return ErrAlreadySubmitted
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to find submission: %w", err)
		}

		coadmin, err := s.resolver.NearestCoadmin(ctx, member)
		if err != nil {
			return err
		}

		key := uuid.NewString()
		ref, err := s.files.Save(ctx, key+strings.ToLower(filepath.Ext(artifact.Name)), artifact.Data)
		if err != nil {
			return fmt.Errorf("failed to store proof file: %w", err)
		}

		submission = &model.ProofSubmission{
			Key:             key,
			TaskTitle:       task.Title,
			TaskPayout:      task.Payout,
			MemberUsername:  member,
			ProofFile:       ref,
			Status:          model.ProofPending,
			SubmittedDate:   time.Now().UTC(),
			CoadminUsername: coadmin,
		}
		if err := s.proofs.CreateSubmission(ctx, submission); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrAlreadySubmitted
			}
			return fmt.Errorf("failed to create submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Logger().Info("proof submitted",
		zap.String("key", submission.Key),
		zap.String("member", member),
		zap.String("task", submission.TaskTitle),
		zap.String("coadmin", submission.CoadminUsername))

	if submission.CoadminUsername != model.Unassigned {
		s.notifier.Notify(ctx, model.Event{
			Type:      model.EventProofSubmitted,
			Recipient: submission.CoadminUsername,
			Payload: map[string]any{
				"key":    submission.Key,
				"member": member,
				"task":   submission.TaskTitle,
			},
		})
	}

	return submission.Key, nil
}

func (s *ProofService) getSubmission(ctx context.Context, key string) (*model.ProofSubmission, error) {
	submission, err := s.proofs.GetSubmission(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return submission, nil
}

// CoadminDecide applies the assigned coadmin's decision to a Pending submission. Approval
// credits the member with the payout recorded at submission time.
func (s *ProofService) CoadminDecide(ctx context.Context, key, coadminUsername string, decision model.Decision) error {
	if !decision.Valid() {
		return fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, decision)
	}

	var submission *model.ProofSubmission
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		submission, err = s.getSubmission(ctx, key)
		if err != nil {
			return err
		}

		if submission.CoadminUsername == model.Unassigned || submission.CoadminUsername != coadminUsername {
			return ErrNotAuthorized
		}
		if submission.Status != model.ProofPending {
			return ErrInvalidTransition
		}

		if decision == model.DecisionApprove {
			err := s.users.CreditIncome(ctx, submission.MemberUsername, model.IncomeTask, submission.TaskPayout)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrUserNotFound
				}
				return fmt.Errorf("failed to credit task income: %w", err)
			}
			submission.Status = model.ProofApprovedByCoadmin
		} else {
			submission.Status = model.ProofDeniedByCoadmin
		}

		if err := s.proofs.UpdateSubmission(ctx, submission); err != nil {
			return fmt.Errorf("failed to update submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.ProofDecisions.WithLabelValues(string(decision)).Inc()
	logger.Logger().Info("proof decided",
		zap.String("key", key),
		zap.String("coadmin", coadminUsername),
		zap.String("status", string(submission.Status)))

	s.notifier.Notify(ctx, model.Event{
		Type:      model.EventProofDecided,
		Recipient: submission.MemberUsername,
		Payload: map[string]any{
			"key":    key,
			"task":   submission.TaskTitle,
			"status": submission.Status,
		},
	})

	return nil
}

// AdminConfirm records the admin's confirmation of a coadmin-approved submission. Income
// was already credited at coadmin approval and is left untouched.
func (s *ProofService) AdminConfirm(ctx context.Context, key, adminUsername string) error {
	var submission *model.ProofSubmission
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := requireRole(ctx, s.users, adminUsername, model.RoleAdmin); err != nil {
			return err
		}

		var err error
		submission, err = s.getSubmission(ctx, key)
		if err != nil {
			return err
		}
		if submission.Status != model.ProofApprovedByCoadmin {
			return ErrInvalidTransition
		}

		submission.Status = model.ProofApprovedByAdmin
		submission.ApprovedByAdmin = true
		if err := s.proofs.UpdateSubmission(ctx, submission); err != nil {
			return fmt.Errorf("failed to update submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.ProofDecisions.WithLabelValues("confirm").Inc()
	logger.Logger().Info("proof confirmed", zap.String("key", key), zap.String("admin", adminUsername))

	s.notifier.Notify(ctx, model.Event{
		Type:      model.EventProofConfirmed,
		Recipient: submission.MemberUsername,
		Payload: map[string]any{
			"key":  key,
			"task": submission.TaskTitle,
		},
	})

	return nil
}

func (s *ProofService) PendingForCoadmin(ctx context.Context, coadminUsername string) ([]*model.ProofSubmission, error) {
	return s.list(ctx, model.ProofFilter{Status: model.ProofPending, Coadmin: coadminUsername})
}

func (s *ProofService) AwaitingAdminReview(ctx context.Context) ([]*model.ProofSubmission, error) {
	return s.list(ctx, model.ProofFilter{Status: model.ProofApprovedByCoadmin})
}

func (s *ProofService) SubmissionsFor(ctx context.Context, member string) ([]*model.ProofSubmission, error) {
	return s.list(ctx, model.ProofFilter{Member: member})
}

func (s *ProofService) list(ctx context.Context, filter model.ProofFilter) ([]*model.ProofSubmission, error) {
	submissions, err := s.proofs.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

// Artifact returns the submission and its stored file. The submitting member, the assigned
// coadmin and the admin may read it.
func (s *ProofService) Artifact(ctx context.Context, key, viewer string) (*model.ProofSubmission, []byte, error) {
	submission, err := s.getSubmission(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	if viewer != submission.MemberUsername && viewer != submission.CoadminUsername {
		if _, err := requireRole(ctx, s.users, viewer, model.RoleAdmin); err != nil {
			return nil, nil, err
		}
	}

	data, err := s.files.Read(ctx, submission.ProofFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read proof file: %w", err)
	}

	return submission, data, nil
}
