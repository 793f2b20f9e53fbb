// Package watcher refreshes artifact stores as soon as the pipeline rewrites
// their files.
//
// The directories holding the artifacts are watched with fsnotify; events
// for other files are ignored. When fsnotify cannot start (network mounts,
// some container volumes) the watcher falls back to stat polling. Bursts of
// events are coalesced by a Debouncer before the matching Refresh runs.
//
// Request-time mtime validation in the stores stays authoritative. The
// watcher only makes the first request after a rewrite cheaper.
//
// Usage:
//
//	w := watcher.New([]watcher.Target{
//	    {Path: themesPath, Refresh: themeStore.Refresh},
//	}, watcher.DefaultOptions(), logger)
//	go func() { _ = w.Run(ctx) }()
package watcher
