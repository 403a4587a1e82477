// Package web serves the static front-end under /home.
//
// Handler(dir) serves index.html at /home and other assets at /home/<name>.
// With an empty dir the page embedded in the binary is used; it lists, adds,
// edits and deletes tasks through the JSON routes and follows /ws/tasks for
// live updates.
package web
