package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// Visit receives each discovered leaf. A returned error stops the walk.
type Visit func(handle domain.ResourceHandle) error

// WalkSummary counts what one family walk saw.
type WalkSummary struct {
	Family     domain.ResourceFamily
	Roots      int
	Containers int
	Leaves     int
	Skipped    int
	Abandoned  int
}

// TreeWalker enumerates resource families depth first.
type TreeWalker struct {
	families map[domain.ResourceFamily]driven.FamilyWalker
}

// NewTreeWalker creates a walker over a family table.
func NewTreeWalker(families map[domain.ResourceFamily]driven.FamilyWalker) *TreeWalker {
	return &TreeWalker{families: families}
}

// Has reports whether a family has a walker.
func (w *TreeWalker) Has(family domain.ResourceFamily) bool {
	_, ok := w.families[family]
	return ok
}

// Walk visits every leaf of a family in upstream order.
//
// Enumeration errors never fail the walk: a vanished node is skipped and any
// other error abandons that branch while its siblings continue. Only a visit
// error or a cancelled context is returned.
//
//nolint:gocognit // DFS loop with per-node error policy
func (w *TreeWalker) Walk(ctx context.Context, family domain.ResourceFamily, visit Visit) (WalkSummary, error) {
	summary := WalkSummary{Family: family}

	fw, ok := w.families[family]
	if !ok {
		return summary, fmt.Errorf("%w: family %q", domain.ErrUnsupportedType, family)
	}

	log := logger.With(zap.String("family", string(family)))
	logger.Section("walk " + string(family))

	// 1. Seed the worklist with the branch roots
	roots, err := fw.Roots(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		log.Warn("listing roots failed, walking partial result", zap.Error(err), zap.Int("roots", len(roots)))
	}
	summary.Roots = len(roots)

	stack := make([]driven.Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}

	// 2. Depth first over an explicit stack
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if handle, ok := fw.Leaf(node); ok {
			summary.Leaves++
			if err := visit(handle); err != nil {
				return summary, err
			}
		}

		if !fw.IsContainer(node) {
			continue
		}
		summary.Containers++

		var children []driven.Node
		err := fw.Children(ctx, node, func(child driven.Node) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			children = append(children, child)
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			if errors.Is(err, domain.ErrNotFound) {
				summary.Skipped++
				logger.Debug("%s %s vanished, skipping", node.Type, node.ID)
				continue
			}
			summary.Abandoned++
			log.Warn("branch abandoned",
				zap.String("type", node.Type), zap.String("id", node.ID), zap.Error(err))
			continue
		}

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return summary, nil
}
