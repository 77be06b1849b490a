package gslink

import "context"

// ChatForwarder is the narrow slice of the chat endpoint GameServerLink
// needs: relaying an ANNOUNCE from a game server (spec.md §4.4: "forward
// to chat endpoint; audit").
type ChatForwarder interface {
	Announce(ctx context.Context, message, senderName string) error
}
