package service

import (
	"context"
	"testing"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralResolver_NearestCoadmin(t *testing.T) {
	f := newFixture(t, WithdrawalConfig{})
	ctx := context.Background()

	names := f.chain(t, 3)
	admin2 := f.register(t, "direct", f.admin.RefID)
	require.Equal(t, model.RoleCoadmin, admin2.Role)

	_, err := f.users.Register(ctx, RegisterInput{
		Name: "Orphan", Username: "orphan", Secret: "s", ReferralID: f.admin.RefID,
		ExplicitRole: model.RoleMember, Caller: f.admin,
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		want     string
	}{
		{name: "direct member", username: names[1], want: "coadmin"},
		{name: "member several levels down", username: names[3], want: "coadmin"},
		{name: "coadmin has none above", username: "coadmin", want: model.Unassigned},
		{name: "member directly under admin", username: "orphan", want: model.Unassigned},
		{name: "admin", username: adminUsername, want: model.Unassigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.users.NearestCoadmin(ctx, tt.username)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = f.users.NearestCoadmin(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestReferralResolver_CorruptChains(t *testing.T) {
	f := newFixture(t, WithdrawalConfig{})
	ctx := context.Background()

	corrupt := []*model.User{
		{Username: "broken", RefID: "PRG5001", RefBy: "PRG9999", Role: model.RoleMember},
		{Username: "loop-a", RefID: "PRG5002", RefBy: "PRG5003", Role: model.RoleMember},
		{Username: "loop-b", RefID: "PRG5003", RefBy: "PRG5002", Role: model.RoleMember},
	}
	for _, u := range corrupt {
		require.NoError(t, f.repo.CreateUser(ctx, u))
	}
	require.NoError(t, f.repo.AddChild(ctx, "PRG5002", "PRG5003"))
	require.NoError(t, f.repo.AddChild(ctx, "PRG5003", "PRG5002"))

	for _, username := range []string{"broken", "loop-a", "loop-b"} {
		got, err := f.users.NearestCoadmin(ctx, username)
		require.NoError(t, err, username)
		assert.Equal(t, model.Unassigned, got, username)
	}

	upline, err := f.users.resolver.Upline(ctx, "PRG5002", 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"loop-a", "loop-b"}, upline)

	size, err := f.users.TeamSize(ctx, "PRG5002", MaxReferralDepth)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	tree, err := f.users.Tree(ctx, "PRG5002")
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	assert.Empty(t, tree.Children[0].Children)

	// A member registering under the broken user pays only the user that exists.
	_, err = f.users.Register(ctx, RegisterInput{Name: "N", Username: "n", Secret: "s", ReferralID: "PRG5001"})
	require.NoError(t, err)
	assert.Equal(t, int64(20), f.user(t, "broken").AffiliateIncome)
}

func TestReferralResolver_TeamSize(t *testing.T) {
	f := newFixture(t, WithdrawalConfig{})
	ctx := context.Background()
	names := f.chain(t, 10)
	coadmin := f.user(t, names[0])

	tests := []struct {
		name     string
		refID    string
		maxDepth int
		want     int
	}{
		{name: "depth capped at eight", refID: coadmin.RefID, maxDepth: MaxReferralDepth, want: 8},
		{name: "one level", refID: coadmin.RefID, maxDepth: 1, want: 1},
		{name: "zero depth", refID: coadmin.RefID, maxDepth: 0, want: 0},
		{name: "from admin", refID: f.admin.RefID, maxDepth: MaxReferralDepth, want: 8},
		{name: "leaf", refID: f.user(t, names[10]).RefID, maxDepth: MaxReferralDepth, want: 0},
		{name: "unknown ref id", refID: "PRG9999", maxDepth: MaxReferralDepth, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.users.TeamSize(ctx, tt.refID, tt.maxDepth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReferralResolver_Tree(t *testing.T) {
	f := newFixture(t, WithdrawalConfig{})
	ctx := context.Background()

	c1 := f.register(t, "c1", f.admin.RefID)
	c2 := f.register(t, "c2", f.admin.RefID)
	f.register(t, "m1", c1.RefID)
	f.register(t, "m2", c1.RefID)

	tree, err := f.users.Tree(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, f.admin.RefID, tree.RefID)
	assert.Equal(t, model.RoleAdmin, tree.Role)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, c1.RefID, tree.Children[0].RefID)
	assert.Equal(t, c2.RefID, tree.Children[1].RefID)

	require.Len(t, tree.Children[0].Children, 2)
	assert.Equal(t, "m1", tree.Children[0].Children[0].Username)
	assert.Equal(t, "m2", tree.Children[0].Children[1].Username)
	assert.Empty(t, tree.Children[1].Children)

	parent, err := f.users.ParentRefID(ctx, c1.RefID)
	require.NoError(t, err)
	assert.Equal(t, f.admin.RefID, parent)

	_, err = f.users.Tree(ctx, "PRG9999")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
