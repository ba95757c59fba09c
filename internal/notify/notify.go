// Package notify carries the "data changed" signal from finished jobs to
// whatever shows catalog data: a stamp file other processes watch, and a
// websocket hub for connected views. Every Notify is fire-and-forget.
package notify

// Notifier receives the data-changed signal. Notify must not block.
type Notifier interface {
	Notify()
}

// message is the payload sent to views.
type message struct {
	Type string `json:"type"`
	At   string `json:"at"`
}

const typeDataChanged = "data-changed"
