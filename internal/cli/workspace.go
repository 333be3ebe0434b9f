package cli

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/nvsedit/internal/editor"
	"github.com/mesh-intelligence/nvsedit/internal/sqlite"
	"github.com/mesh-intelligence/nvsedit/pkg/types"
)

func (a *app) openWorkspace() (*sqlite.Workspace, error) {
	ws, err := sqlite.Open(a.dataDir)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	return ws, nil
}

func (a *app) sessionOptions() []editor.Option {
	return []editor.Option{
		editor.WithLogger(a.log),
		editor.WithProgress(func(status string) { a.log.Debug(status) }),
	}
}

// loadSession restores the workspace session. When the workspace is empty it
// returns a new session if allowEmpty is set and types.ErrNoSession otherwise.
func (a *app) loadSession(ws *sqlite.Workspace, allowEmpty bool) (*editor.Session, error) {
	snap, err := ws.Load()
	if errors.Is(err, types.ErrNoSession) && allowEmpty {
		return editor.New(a.sessionOptions()...), nil
	}
	if err != nil {
		if errors.Is(err, types.ErrNoSession) {
			return nil, fmt.Errorf("%w: run open or import first", err)
		}
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	return editor.Restore(snap, a.sessionOptions()...)
}

// view runs fn against the stored session without saving it.
func (a *app) view(fn func(s *editor.Session) error) error {
	ws, err := a.openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()
	s, err := a.loadSession(ws, false)
	if err != nil {
		return err
	}
	return fn(s)
}

// update runs fn against the stored session (or a new one when allowEmpty is
// set) and saves the result. Nothing is saved when fn fails.
func (a *app) update(allowEmpty bool, fn func(s *editor.Session) error) error {
	ws, err := a.openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()
	s, err := a.loadSession(ws, allowEmpty)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := ws.Save(s.Snapshot()); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	return nil
}
