package cascade

import (
	"context"

	"github.com/jacentio/fundraiser/pipeline"
	"github.com/jacentio/fundraiser/store"
)

// Stash keys of the single-item delete pipeline.
const (
	ParentIDKey   = "parentId"
	DependentsKey = "dependents"
)

// QueryStep stashes every dependent of the stashed parent id.
func (d *Deleter) QueryStep(rel store.Relationship) pipeline.Step {
	return pipeline.Step{
		Name:   "query-" + rel.ChildType,
		Reads:  []string{ParentIDKey},
		Writes: []string{DependentsKey},
		Run: func(ctx context.Context, s *pipeline.Stash) (pipeline.Result, error) {
			items, err := d.Query(ctx, rel, pipeline.Must[string](s, ParentIDKey))
			if err != nil {
				return pipeline.Result{}, err
			}
			s.Set(DependentsKey, items)
			return pipeline.Continue(), nil
		},
	}
}

// DeleteFirstStep deletes the first stashed dependent. With nothing stashed
// it ends the run with false instead of issuing a delete without a key.
func (d *Deleter) DeleteFirstStep(rel store.Relationship) pipeline.Step {
	return pipeline.Step{
		Name:   "delete-first-" + rel.ChildType,
		Reads:  []string{DependentsKey},
		Writes: []string{pipeline.ResultKey},
		Run: func(ctx context.Context, s *pipeline.Stash) (pipeline.Result, error) {
			items := pipeline.Must[[]store.Item](s, DependentsKey)
			if len(items) == 0 {
				return pipeline.Return(false), nil
			}
			deleted, err := d.DeleteFirst(ctx, rel, items)
			if err != nil {
				return pipeline.Result{}, err
			}
			s.Set(pipeline.ResultKey, deleted)
			return pipeline.Continue(), nil
		},
	}
}

// Pipeline returns the query then delete-first pipeline for rel.
func (d *Deleter) Pipeline(rel store.Relationship) *pipeline.Pipeline {
	return pipeline.New("deleteDependents-"+rel.ChildType, d.logger,
		d.QueryStep(rel),
		d.DeleteFirstStep(rel),
	)
}

// DeleteOne removes a single dependent of parentID and reports whether there
// was one. Callers repeat it until it returns false.
func (d *Deleter) DeleteOne(ctx context.Context, rel store.Relationship, parentID string) (bool, error) {
	stash := pipeline.NewStash().Set(ParentIDKey, parentID)
	return pipeline.Output[bool](d.Pipeline(rel).Run(ctx, stash))
}
