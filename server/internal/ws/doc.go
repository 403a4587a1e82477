// Package ws implements the live task stream for the taskboard server.
//
// Hub keeps a set of connected WebSocket clients and sends them the full task
// collection:
//   - immediately on connect
//   - whenever Notify is called (after a mutation, or when the task file
//     changes on disk)
//   - on every interval tick, when an interval is configured
//
// Message format sent to clients:
//
//	{
//	  "event":        "tasks",
//	  "data":         [ { "id": ..., "title": ..., "status": ... } ],
//	  "generated_at": "2006-01-02T15:04:05Z"
//	}
//
// The upgrader accepts all origins. The endpoint is mounted at /ws/tasks.
package ws
