package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nvsedit/internal/editor"
)

// watchSettle is how long a watched file must stay quiet before it is
// re-imported.
const watchSettle = 200 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file.csv>",
		Short: "Re-import a CSV into the workspace whenever it changes",
		Long: `Watch imports the CSV, then re-imports it each time it is written, until
interrupted. Writes that leave the file content unchanged are ignored. A
write that fails to import is logged and the previous session is kept.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			reimport := func() error {
				_, err := a.syncCSV(path, func(s *editor.Session) { printLoaded(cmd, s) })
				return err
			}
			if err := reimport(); err != nil {
				return err
			}
			return watchFile(cmd.Context(), path, a.log, reimport)
		},
	}
}

// errUnchanged stops an update whose source has not changed.
var errUnchanged = errors.New("source unchanged")

// syncCSV imports path into the workspace unless the stored session already
// holds its current content. It reports whether an import happened.
func (a *app) syncCSV(path string, loaded func(*editor.Session)) (bool, error) {
	err := a.update(true, func(s *editor.Session) error {
		same, err := s.Unchanged(path)
		if err != nil {
			return err
		}
		if same {
			return errUnchanged
		}
		if err := s.ImportCSVFile(path); err != nil {
			return err
		}
		if loaded != nil {
			loaded(s)
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		a.log.Debug("csv unchanged, import skipped", "path", path)
		return false, nil
	}
	return err == nil, err
}

// watchFile calls onChange after each settled write to path until ctx is
// done. The parent directory is watched so editors that replace the file by
// rename are followed. onChange errors are logged.
func watchFile(ctx context.Context, path string, log *slog.Logger, onChange func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	log.Info("watching", "path", path)

	settle := time.NewTimer(watchSettle)
	settle.Stop()
	defer settle.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				settle.Reset(watchSettle)
			}
		case <-settle.C:
			if err := onChange(); err != nil {
				log.Warn("re-import failed", "path", path, "err", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("error watching file", "path", path, "err", err)
		}
	}
}
