package handler

import "sync"

type Notice struct {
	Kind    string `json:"kind"` // "info" or "error"
	Title   string `json:"title"`
	Message string `json:"message"`
}

// WebNotifier queues notices until the next page render shows them in a
// modal dialog.
type WebNotifier struct {
	mu      sync.Mutex
	pending []Notice
}

func NewWebNotifier() *WebNotifier {
	return &WebNotifier{}
}

func (n *WebNotifier) Info(title, message string) {
	n.push(Notice{Kind: "info", Title: title, Message: message})
}

func (n *WebNotifier) Error(title, message string) {
	n.push(Notice{Kind: "error", Title: title, Message: message})
}

// Drain returns the queued notices and empties the queue.
func (n *WebNotifier) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending
	n.pending = nil
	return out
}

func (n *WebNotifier) push(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, notice)
}
