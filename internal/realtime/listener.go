package realtime

import "context"

// ChatListener routes incoming events for one screen session: events from
// the currently open chat's counterpart are appended directly to the thread,
// anything else triggers a full conversation-list refresh.
type ChatListener struct {
	openPeerID string
	appendFn   func(MessageEvent)
	refreshFn  func()
}

// NewChatListener builds a listener. openPeerID may be empty when the user
// is on the conversation-list screen rather than inside a chat.
func NewChatListener(openPeerID string, appendFn func(MessageEvent), refreshFn func()) *ChatListener {
	return &ChatListener{
		openPeerID: openPeerID,
		appendFn:   appendFn,
		refreshFn:  refreshFn,
	}
}

// Handle dispatches a single event.
func (l *ChatListener) Handle(event MessageEvent) {
	if l.openPeerID != "" && event.SenderID == l.openPeerID {
		if l.appendFn != nil {
			l.appendFn(event)
		}
		return
	}
	if l.refreshFn != nil {
		l.refreshFn()
	}
}

// Run consumes the stream until ctx ends or the stream closes.
func (l *ChatListener) Run(ctx context.Context, stream <-chan MessageEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			l.Handle(event)
		}
	}
}
