package settings

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rjeczalik/notify"
)

// Watch calls onChange whenever the file at path is written or replaced,
// until ctx is done. The directory is watched so that atomic renames by
// editors are seen.
func Watch(ctx context.Context, path string, onChange func()) error {
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	events := make(chan notify.EventInfo, 8)
	if err := notify.Watch(dir, events, notify.Write, notify.Create, notify.Rename); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer notify.Stop(events)
		for {
			select {
			case <-ctx.Done():
				return
			case ei := <-events:
				if filepath.Base(ei.Path()) == name {
					onChange()
				}
			}
		}
	}()
	return nil
}
