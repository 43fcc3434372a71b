package service

import (
	"context"
	"testing"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskService_CreateTask(t *testing.T) {
	f := newFixture(t, WithdrawalConfig{})
	ctx := context.Background()
	names := f.chain(t, 1)

	tests := []struct {
		name    string
		input   CreateTaskInput
		wantErr error
	}{
		{name: "admin", input: CreateTaskInput{Title: "Follow", Payout: 10, Creator: adminUsername}},
		{name: "coadmin", input: CreateTaskInput{Title: "Share", Payout: 5000, Creator: "coadmin"}},
		{name: "member", input: CreateTaskInput{Title: "Like", Payout: 50, Creator: names[1]}, wantErr: ErrNotAuthorized},
		{name: "unknown creator", input: CreateTaskInput{Title: "Like", Payout: 50, Creator: "ghost"}, wantErr: ErrNotAuthorized},
		{name: "payout too low", input: CreateTaskInput{Title: "Low", Payout: 9, Creator: adminUsername}, wantErr: ErrInvalidInput},
		{name: "payout too high", input: CreateTaskInput{Title: "High", Payout: 5001, Creator: adminUsername}, wantErr: ErrInvalidInput},
		{name: "blank title", input: CreateTaskInput{Title: "  ", Payout: 50, Creator: adminUsername}, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := f.tasks.CreateTask(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input.Title, task.Title)
			assert.Equal(t, tt.input.Creator, task.CreatedBy)
			assert.False(t, task.CreatedDate.IsZero())
		})
	}

	byCoadmin, err := f.tasks.TasksByCreator(ctx, "coadmin")
	require.NoError(t, err)
	require.Len(t, byCoadmin, 1)
	assert.Equal(t, "Share", byCoadmin[0].Title)
}

func TestTaskService_ListTasksFor(t *testing.T) {
	f := newFixture(t, WithdrawalConfig{})
	ctx := context.Background()
	names := f.chain(t, 2)
	f.task(t, "T1", 100)
	f.task(t, "T2", 200)

	key := f.submit(t, names[1], "T1")
	require.NoError(t, f.proofs.CoadminDecide(ctx, key, "coadmin", model.DecisionDeny))

	memberViews, err := f.tasks.ListTasksFor(ctx, f.user(t, names[1]))
	require.NoError(t, err)
	require.Len(t, memberViews, 2)
	require.NotNil(t, memberViews[0].SubmissionStatus)
	assert.Equal(t, model.ProofDeniedByCoadmin, *memberViews[0].SubmissionStatus)
	assert.Nil(t, memberViews[1].SubmissionStatus)

	otherViews, err := f.tasks.ListTasksFor(ctx, f.user(t, names[2]))
	require.NoError(t, err)
	for _, v := range otherViews {
		assert.Nil(t, v.SubmissionStatus)
	}

	adminViews, err := f.tasks.ListTasksFor(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, adminViews, 2)
	assert.Equal(t, "T1", adminViews[0].Title)
	assert.Nil(t, adminViews[0].SubmissionStatus)
}

func TestNewTaskService_DefaultBounds(t *testing.T) {
	s := NewTaskService(nil, nil, nil, TaskConfig{})
	assert.Equal(t, DefaultMinPayout, s.cfg.MinPayout)
	assert.Equal(t, DefaultMaxPayout, s.cfg.MaxPayout)
}

func TestTaskService_DuplicateTitles(t *testing.T) {
	f := newFixture(t, WithdrawalConfig{})
	ctx := context.Background()
	names := f.chain(t, 1)
	f.task(t, "T", 100)
	f.task(t, "T", 900)

	key := f.submit(t, names[1], "T")
	submission, err := f.repo.GetSubmission(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(100), submission.TaskPayout)

	_, err = f.proofs.SubmitProof(ctx, names[1], "T", model.Artifact{Name: "again.png", Data: []byte("png")})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	views, err := f.tasks.ListTasksFor(ctx, f.user(t, names[1]))
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		require.NotNil(t, v.SubmissionStatus)
		assert.Equal(t, model.ProofPending, *v.SubmissionStatus)
	}
}
