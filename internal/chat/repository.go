package chat

import (
	"context"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// Repository is everything the ChatEndpoint needs from storage, narrowed
// the same way internal/account.Repository and internal/gslink.Repository
// narrow *storage.DB.
type Repository interface {
	GetCharacterID(ctx context.Context, name string) (int64, error)

	CreateGuild(ctx context.Context, g *model.Guild) error
	GetGuild(ctx context.Context, id int64) (*model.Guild, error)
	GetGuildIDForMember(ctx context.Context, characterID int64) (int64, bool, error)
	AddGuildMember(ctx context.Context, guildID, memberID int64, rights model.GuildRight) error
	RemoveGuildMember(ctx context.Context, guildID, memberID int64) error
	SetGuildMemberRights(ctx context.Context, guildID, memberID int64, rights model.GuildRight) error
	DoesGuildNameExist(ctx context.Context, name string) (bool, error)
}
