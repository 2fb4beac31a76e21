package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knolab/knolab/internal/model"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
	"github.com/knolab/knolab/internal/pkg/idgen"
	"github.com/knolab/knolab/internal/repo"
	"github.com/knolab/knolab/internal/testutil"
)

func newKB(owner, name string) *model.KnowledgeBase {
	now := time.Now().Unix()
	return &model.KnowledgeBase{
		ID:    idgen.NewID(),
		Owner: owner,
		Name:  name,
		Ctime: now,
		Mtime: now,
	}
}

func TestKnowledgeBaseOwnerScoping(t *testing.T) {
	db := testutil.OpenTestDB(t)
	kbs := repo.NewKnowledgeBaseRepo(db)
	ctx := context.Background()

	mine := newKB("alice", "golang notes")
	theirs := newKB("bob", "rust notes")
	require.NoError(t, kbs.Create(ctx, mine))
	require.NoError(t, kbs.Create(ctx, theirs))

	stored, err := kbs.GetByID(ctx, "alice", mine.ID)
	require.NoError(t, err)
	require.Equal(t, "golang notes", stored.Name)

	// Another owner's base looks like it does not exist.
	_, err = kbs.GetByID(ctx, "alice", theirs.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	list, err := kbs.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)

	all, err := kbs.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestSetDefaultIsExclusive(t *testing.T) {
	db := testutil.OpenTestDB(t)
	kbs := repo.NewKnowledgeBaseRepo(db)
	ctx := context.Background()

	first := newKB("alice", "first")
	first.IsDefault = 1
	second := newKB("alice", "second")
	require.NoError(t, kbs.Create(ctx, first))
	require.NoError(t, kbs.Create(ctx, second))

	require.NoError(t, kbs.SetDefault(ctx, "alice", second.ID, time.Now().Unix()))

	list, err := kbs.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	defaults := 0
	for _, kb := range list {
		if kb.IsDefault == 1 {
			defaults++
			require.Equal(t, second.ID, kb.ID)
		}
	}
	require.Equal(t, 1, defaults)

	// Unknown id or wrong owner changes nothing.
	require.ErrorIs(t, kbs.SetDefault(ctx, "alice", idgen.NewID(), time.Now().Unix()), appErr.ErrNotFound)
	require.ErrorIs(t, kbs.SetDefault(ctx, "bob", second.ID, time.Now().Unix()), appErr.ErrNotFound)
}

func TestKnowledgeBaseDelete(t *testing.T) {
	db := testutil.OpenTestDB(t)
	kbs := repo.NewKnowledgeBaseRepo(db)
	ctx := context.Background()

	kb := newKB("alice", "scratch")
	require.NoError(t, kbs.Create(ctx, kb))
	require.ErrorIs(t, kbs.Delete(ctx, "bob", kb.ID), appErr.ErrNotFound)
	require.NoError(t, kbs.Delete(ctx, "alice", kb.ID))
	_, err := kbs.GetByID(ctx, "alice", kb.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
