package account

import (
	"context"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// GameLinkSender is the narrow slice of gslink.Server the account
// endpoint needs: pushing a character handoff to the game server that
// currently owns its map (spec.md §4.3 character-select algorithm,
// §4.6 step 2a). Declared here rather than importing gslink directly so
// the dependency points the idiomatic way — internal/gslink depends on
// internal/registry, and internal/account depends on this interface,
// satisfied by *gslink.Server at wiring time in cmd/accountserver.
type GameLinkSender interface {
	PlayerEnter(ctx context.Context, serverHandle string, token string, level model.AccessLevel, c *model.Character) error
}

// ChatNotifier is the narrow slice of the chat endpoint the account
// endpoint needs: priming the chat token collector with the character
// identity a client will soon present (spec.md §4.3, §4.5).
type ChatNotifier interface {
	PendingConnect(ctx context.Context, token string, characterName string, level model.AccessLevel) error
}
