package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

func collect(t *testing.T, w *TreeWalker, family domain.ResourceFamily) ([]string, WalkSummary) {
	t.Helper()
	var ids []string
	summary, err := w.Walk(context.Background(), family, func(h domain.ResourceHandle) error {
		ids = append(ids, h.ID)
		return nil
	})
	require.NoError(t, err)
	return ids, summary
}

func TestTreeWalker_DepthFirstInUpstreamOrder(t *testing.T) {
	fam := &mockFamily{
		family: domain.FamilyDrive,
		roots:  []driven.Node{node("root", "r1"), node("root", "r2")},
		children: map[string][]driven.Node{
			"r1": {node("leaf", "a"), node("folder", "f1"), node("leaf", "b")},
			"f1": {node("leaf", "c"), node("leaf", "d")},
			"r2": {node("leaf", "e")},
		},
	}
	w := NewTreeWalker(map[domain.ResourceFamily]driven.FamilyWalker{domain.FamilyDrive: fam})

	ids, summary := collect(t, w, domain.FamilyDrive)

	assert.Equal(t, []string{"a", "c", "d", "b", "e"}, ids)
	assert.Equal(t, 2, summary.Roots)
	assert.Equal(t, 5, summary.Leaves)
	assert.Equal(t, 3, summary.Containers)
}

func TestTreeWalker_LeafContainersVisitedBeforeChildren(t *testing.T) {
	fam := &mockFamily{
		family: domain.FamilyTeam,
		roots:  []driven.Node{node("channel", "c1")},
		children: map[string][]driven.Node{
			"c1": {node("both", "m1"), node("both", "m2")},
			"m1": {node("leaf", "r1")},
		},
	}
	w := NewTreeWalker(map[domain.ResourceFamily]driven.FamilyWalker{domain.FamilyTeam: fam})

	ids, _ := collect(t, w, domain.FamilyTeam)

	assert.Equal(t, []string{"m1", "r1", "m2"}, ids)
}

func TestTreeWalker_PathsCarryAncestors(t *testing.T) {
	fam := &mockFamily{
		family: domain.FamilyDrive,
		roots:  []driven.Node{node("drive", "d1")},
		children: map[string][]driven.Node{
			"d1": {node("folder", "f1")},
			"f1": {node("leaf", "x")},
		},
	}
	w := NewTreeWalker(map[domain.ResourceFamily]driven.FamilyWalker{domain.FamilyDrive: fam})

	var got domain.ResourceHandle
	_, err := w.Walk(context.Background(), domain.FamilyDrive, func(h domain.ResourceHandle) error {
		got = h
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "drive-item:drive/d1/folder/f1/x", got.Label())
}

func TestTreeWalker_NotFoundBranchSkipped(t *testing.T) {
	fam := &mockFamily{
		family: domain.FamilySite,
		roots:  []driven.Node{node("site", "gone"), node("site", "ok")},
		children: map[string][]driven.Node{
			"ok": {node("leaf", "item")},
		},
		errs: map[string]error{"gone": domain.ErrNotFound},
	}
	w := NewTreeWalker(map[domain.ResourceFamily]driven.FamilyWalker{domain.FamilySite: fam})

	ids, summary := collect(t, w, domain.FamilySite)

	assert.Equal(t, []string{"item"}, ids)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Abandoned)
}

func TestTreeWalker_FailingBranchAbandoned(t *testing.T) {
	fam := &mockFamily{
		family: domain.FamilySite,
		roots:  []driven.Node{node("site", "bad"), node("site", "ok")},
		children: map[string][]driven.Node{
			"bad": {node("leaf", "partial")},
			"ok":  {node("leaf", "item")},
		},
		errs: map[string]error{"bad": domain.ErrUnavailable},
	}
	w := NewTreeWalker(map[domain.ResourceFamily]driven.FamilyWalker{domain.FamilySite: fam})

	ids, summary := collect(t, w, domain.FamilySite)

	assert.Equal(t, []string{"item"}, ids)
	assert.Equal(t, 1, summary.Abandoned)
}

func TestTreeWalker_RootsErrorWalksPartialResult(t *testing.T) {
	fam := &mockFamily{
		family:   domain.FamilyChat,
		roots:    []driven.Node{node("user", "u1")},
		rootsErr: domain.ErrRateLimited,
		children: map[string][]driven.Node{"u1": {node("leaf", "m")}},
	}
	w := NewTreeWalker(map[domain.ResourceFamily]driven.FamilyWalker{domain.FamilyChat: fam})

	ids, _ := collect(t, w, domain.FamilyChat)

	assert.Equal(t, []string{"m"}, ids)
}

func TestTreeWalker_VisitErrorStopsWalk(t *testing.T) {
	fam := &mockFamily{
		family: domain.FamilyDrive,
		roots:  []driven.Node{node("leaf", "a"), node("leaf", "b")},
	}
	w := NewTreeWalker(map[domain.ResourceFamily]driven.FamilyWalker{domain.FamilyDrive: fam})
	stop := errors.New("stop")

	var seen int
	_, err := w.Walk(context.Background(), domain.FamilyDrive, func(domain.ResourceHandle) error {
		seen++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestTreeWalker_CancelledContext(t *testing.T) {
	fam := &mockFamily{
		family: domain.FamilyDrive,
		roots:  []driven.Node{node("leaf", "a")},
	}
	w := NewTreeWalker(map[domain.ResourceFamily]driven.FamilyWalker{domain.FamilyDrive: fam})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Walk(ctx, domain.FamilyDrive, func(domain.ResourceHandle) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTreeWalker_UnknownFamily(t *testing.T) {
	w := NewTreeWalker(nil)
	assert.False(t, w.Has(domain.FamilyChat))

	_, err := w.Walk(context.Background(), domain.FamilyChat, func(domain.ResourceHandle) error { return nil })
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
