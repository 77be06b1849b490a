package model

// GuildRight is a single bit in a member's rights bitmask.
type GuildRight uint32

const (
	GuildRightInvite GuildRight = 1 << iota
	GuildRightKick
	GuildRightPromote
	GuildRightChatAnnounce
)

// Guild is a persistent named group of characters with a permissions mask
// per member. Each guild owns an auto-joined chat channel (spec.md §3).
type Guild struct {
	ID      int64
	Name    string
	OwnerID int64 // character id

	// Members maps character id to its rights bitmask. The owner always
	// carries every right.
	Members map[int64]GuildRight
}

// NewGuild creates a guild with owner as its sole, fully-privileged member.
func NewGuild(id int64, name string, owner int64) *Guild {
	return &Guild{
		ID:      id,
		Name:    name,
		OwnerID: owner,
		Members: map[int64]GuildRight{
			owner: GuildRightInvite | GuildRightKick | GuildRightPromote | GuildRightChatAnnounce,
		},
	}
}
