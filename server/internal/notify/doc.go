// Package notify delivers task change events to outbound webhooks.
//
// Supported webhook types: slack ({"text": ...}), teams (MessageCard) and
// http ({"event": {...}}). URLs come from environment variables named in the
// config, so secrets stay out of config.yaml.
//
// Publish is fire-and-forget: a failing webhook is logged and never affects
// the HTTP request that caused the change.
package notify
