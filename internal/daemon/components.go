package daemon

import (
	"context"
	"errors"

	"scribe/internal/watch"
	"scribe/internal/workflow"
)

// watcherComponent adapts the filesystem watcher to the health
// supervisor's restart contract.
type watcherComponent struct {
	watcher *watch.Watcher
}

func (w watcherComponent) Name() string { return "watcher" }

func (w watcherComponent) Healthy() error { return w.watcher.Healthy() }

func (w watcherComponent) Restart(ctx context.Context) error {
	return w.watcher.Restart(ctx)
}

// workflowComponent lets the supervisor revive the queue loop if it
// ever stops without a shutdown request.
type workflowComponent struct {
	manager *workflow.Manager
}

func (w workflowComponent) Name() string { return "workflow" }

func (w workflowComponent) Healthy() error {
	if !w.manager.Running() {
		return errors.New("workflow manager not running")
	}
	return nil
}

func (w workflowComponent) Restart(ctx context.Context) error {
	w.manager.Stop()
	return w.manager.Start(ctx)
}
