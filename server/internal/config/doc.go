// Package config loads the taskboard server configuration from a YAML file.
//
// Config fields:
//   - Server.HTTPPort        : port for every HTTP route (default 3000)
//   - Server.StaticDir       : directory served at /home (default: embedded page)
//   - Storage.Backend        : "file", "memory" or "sqlite" (default file)
//   - Storage.Path           : task file or database path (default tasks.json)
//   - Storage.SerializeWrites: lock across load and save (default true)
//   - Storage.Watch          : push external file edits to clients (default true)
//   - WS.Interval            : periodic re-broadcast of the collection (default 30s)
//   - Notify.Webhooks        : change-notification targets, URLs read from env
//   - Log.Level / Log.Format : slog level and handler (default info/json)
//
// Load(path) expands ${VAR} references, applies defaults before
// unmarshalling, then validates. Default() returns the defaults alone.
package config
