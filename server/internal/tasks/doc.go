// Package tasks implements the four operations over the task collection.
//
// Every operation loads the whole collection from the store, applies one
// change in memory, and saves the whole collection back:
//
//	List  : returns the collection verbatim
//	Create: appends a new task with a timestamp ID
//	Update: rewrites the FIRST task whose title matches exactly
//	Delete: removes EVERY task whose title matches exactly
//
// Update and Delete deliberately use different match policies.
//
// Validation failures are returned as *ValidationError and missing titles as
// ErrNotFound; neither touches the store. Anything else is a storage error.
//
// By default Create, Update and Delete hold a mutex across load and save so
// concurrent requests cannot lose each other's writes. WithSerializedWrites(false)
// restores the unguarded load-then-save behaviour.
package tasks
