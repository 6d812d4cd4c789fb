// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort              : port for the console, status API and metrics (default 8080)
//   - ContextPath, MountPath: URL prefix for report actions (default "" + "/ureport")
//   - LogLevel              : debug | info | warn | error (default info, reloaded live)
//   - ReportDir             : directory holding report definitions (default "reports")
//   - Cache.Capacity        : objects kept per session (default 4)
//   - Cache.TTL             : idle time before a session's cache is dropped (default 5m)
//   - Session.Cookie        : cookie carrying the session id
//   - Download.LegacyFilenameEncoding: ISO-8859-1 filename re-encoding for old clients
//   - Status.Interval       : websocket status broadcast period (default 5s)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) reloads the file on change via fsnotify, watching
// the parent directory so rename-style saves are seen.
package config
