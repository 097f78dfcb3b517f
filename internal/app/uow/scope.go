package uow

import (
	"context"
)

// Scope is a unit begun by the caller. It owns commit, rollback and after-commit hooks.
type Scope struct {
	Unit      UnitOfWork
	parent    context.Context
	ctx       context.Context
	hooks     *commitHooks
	committed bool
}

// Begin opens a unit and returns the context handlers should run with.
func Begin(ctx context.Context, factory UoWFactory, opts TxOptions) (*Scope, context.Context, error) {
	if factory == nil {
		return nil, ctx, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, err
	}
	execCtx := ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = ContextWithUnitOfWork(execCtx, unit)
	hooks := &commitHooks{}
	execCtx = context.WithValue(execCtx, hooksKey{}, hooks)
	return &Scope{Unit: unit, parent: ctx, ctx: execCtx, hooks: hooks}, execCtx, nil
}

// Commit commits the unit and then runs hooks registered with AfterCommit.
func (s *Scope) Commit() error {
	if err := s.Unit.Commit(s.ctx); err != nil {
		return err
	}
	s.committed = true
	s.hooks.run(s.parent)
	return nil
}

// Close rolls the unit back unless it was committed.
func (s *Scope) Close() {
	if s.committed {
		return
	}
	_ = s.Unit.Rollback(s.ctx)
}

// Run executes fn in the unit carried by ctx, or opens, commits and closes a new one.
func Run(ctx context.Context, factory UoWFactory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	scope, execCtx, err := Begin(ctx, factory, opts)
	if err != nil {
		return err
	}
	defer scope.Close()
	if err := fn(execCtx, scope.Unit); err != nil {
		return err
	}
	if opts.ReadOnly {
		return nil
	}
	return scope.Commit()
}
