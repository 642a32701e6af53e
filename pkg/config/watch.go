package config

import (
	"context"
	"log"

	"github.com/fsnotify/fsnotify"
)

// WatchRules monitors path for changes and calls onChange with the newly
// loaded Rules each time the file is written. It runs until ctx is cancelled.
//
// If a reload fails (e.g. invalid YAML), the error is logged and the
// previous rules remain active — WatchRules does not call onChange.
func WatchRules(ctx context.Context, path string, onChange func(Rules)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	log.Printf("Watching alert rules file: %s", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only reload on write or create events. Editors often save via
			// rename (atomic save), so also catch fsnotify.Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			rules, err := LoadRules(path)
			if err != nil {
				log.Printf("Rules reload failed, keeping previous rules: %v", err)
				continue
			}

			log.Printf("Alert rules reloaded from %s", path)
			onChange(rules)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Rules watcher error: %v", err)
		}
	}
}
