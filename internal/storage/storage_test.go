package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wyrmwatch/worldserver/internal/model"
)

func TestAddAndGetAccount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acc := &model.Account{
		Username:         "alice",
		PasswordHash:     "H1",
		EmailHash:        "emailhash1",
		RegistrationDate: time.Now(),
		LastLogin:        time.Now(),
	}
	require.NoError(t, db.AddAccount(ctx, acc))
	require.NotZero(t, acc.ID)

	loaded, err := db.GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, acc.ID, loaded.ID)
	require.Equal(t, "H1", loaded.PasswordHash)
	require.Empty(t, loaded.Characters)

	_, err = db.GetAccountByUsername(ctx, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFlushAccount_FixedPoint(t *testing.T) {
	// Property 4: load(flush(a)) == a.
	db := newTestDB(t)
	ctx := context.Background()

	acc := &model.Account{
		Username:         "hero_owner",
		PasswordHash:     "H",
		EmailHash:        "emailhash2",
		RegistrationDate: time.Now(),
		LastLogin:        time.Now(),
	}
	require.NoError(t, db.AddAccount(ctx, acc))

	char := &model.Character{
		Name:       "Hero",
		Slot:       1,
		Gender:     0,
		AttrPoints: 60,
		Position:   model.Position{MapID: 1, X: 10, Y: 20},
		Attributes: map[int16]model.Attribute{
			1: {Base: 20, Modified: 20},
			2: {Base: 20, Modified: 20},
			3: {Base: 20, Modified: 20},
		},
		StatusEffect: map[int16]int32{5: 100},
		KillCount:    map[int16]int32{7: 3},
		Abilities:    map[int32]struct{}{100: {}},
		QuestLog:     []model.QuestEntry{{QuestID: 1, State: 2, Title: "t", Description: "d"}},
		Inventory:    []model.InventoryItem{{Slot: 0, ItemID: 57, Amount: 100}},
	}
	acc.Characters = map[int]*model.Character{1: char}

	require.NoError(t, db.FlushAccount(ctx, acc))
	require.NotZero(t, char.ID)

	loaded, err := db.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Characters, 1)

	loadedChar := loaded.Characters[1]
	require.Equal(t, "Hero", loadedChar.Name)
	require.Equal(t, int32(60), loadedChar.AttrPoints)
	require.Equal(t, float64(20), loadedChar.Attributes[1].Base)
	require.Equal(t, int32(100), loadedChar.StatusEffect[5])
	require.Equal(t, int32(3), loadedChar.KillCount[7])
	_, hasAbility := loadedChar.Abilities[100]
	require.True(t, hasAbility)
	require.Len(t, loadedChar.QuestLog, 1)
	require.Len(t, loadedChar.Inventory, 1)

	// Flushing again with the character removed from the in-memory map
	// must delete it from storage (spec.md §4.7).
	acc.Characters = map[int]*model.Character{}
	require.NoError(t, db.FlushAccount(ctx, acc))
	loaded2, err := db.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Empty(t, loaded2.Characters)
}

func TestBanAccount_AndRestoreOnExpiry(t *testing.T) {
	// Property 6: banCharacter(c,d) implies level==Banned; after sweep past
	// ban-end, level reverts to the level stored before the ban
	// (SPEC_FULL.md / DESIGN.md Open Question resolution).
	db := newTestDB(t)
	ctx := context.Background()

	acc := &model.Account{
		Username: "bannable", PasswordHash: "h", EmailHash: "eh3",
		Level: model.AccessGM, RegistrationDate: time.Now(), LastLogin: time.Now(),
	}
	require.NoError(t, db.AddAccount(ctx, acc))

	require.NoError(t, db.BanAccount(ctx, acc.ID, time.Now().Add(-time.Minute)))
	banned, err := db.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, model.AccessBanned, banned.Level)
	require.Equal(t, model.AccessGM, banned.PriorLevel)

	n, err := db.CheckBannedAccounts(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	restored, err := db.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, model.AccessGM, restored.Level)
}

func TestDelAccount_CascadesCharacters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acc := &model.Account{Username: "deleteme", PasswordHash: "h", EmailHash: "eh4",
		RegistrationDate: time.Now(), LastLogin: time.Now()}
	require.NoError(t, db.AddAccount(ctx, acc))

	char := &model.Character{Name: "Doomed", Slot: 1, Attributes: map[int16]model.Attribute{}}
	acc.Characters = map[int]*model.Character{1: char}
	require.NoError(t, db.FlushAccount(ctx, acc))

	require.NoError(t, db.DelAccount(ctx, acc.ID))

	_, err := db.GetAccountByID(ctx, acc.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetCharacterByID(ctx, char.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGuildLifecycle_DeletingLastMemberDeletesGuild(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	owner := mustCreateBareCharacter(t, db, "GuildOwner", 1)
	g := model.NewGuild(0, "Wanderers", owner.ID)
	require.NoError(t, db.CreateGuild(ctx, g))

	loaded, err := db.GetGuild(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Members, 1)

	require.NoError(t, db.RemoveGuildMember(ctx, g.ID, owner.ID))
	_, err = db.GetGuild(ctx, g.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMailStoreRequestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sender := mustCreateBareCharacter(t, db, "Sender", 1)
	receiver := mustCreateBareCharacter(t, db, "Receiver", 2)

	letter := &model.Letter{
		SenderID: sender.ID, ReceiverID: receiver.ID,
		Text: "hi", Expiry: time.Now().Add(24 * time.Hour), Sent: time.Now(),
		Attachments: []model.Attachment{{ItemID: 57, Amount: 1000}},
	}
	require.NoError(t, db.StoreLetter(ctx, letter))

	letters, err := db.GetStoredPost(ctx, receiver.ID)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	require.Len(t, letters[0].Attachments, 1)

	require.NoError(t, db.DeletePost(ctx, letters[0].ID))
	letters2, err := db.GetStoredPost(ctx, receiver.ID)
	require.NoError(t, err)
	require.Empty(t, letters2)
}

func TestWorldStateVarFanoutScope(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetWorldStateVar(ctx, model.ScopeWorld, "event", "on"))
	v, err := db.GetWorldStateVar(ctx, model.ScopeWorld, "event")
	require.NoError(t, err)
	require.Equal(t, "on", v)

	all, err := db.GetAllWorldStateVars(ctx, model.ScopeWorld)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestFloorItem_IdentityIncludesAmount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := model.FloorItem{MapID: 1, ItemID: 57, Amount: 10, X: 5, Y: 5}
	b := model.FloorItem{MapID: 1, ItemID: 57, Amount: 20, X: 5, Y: 5}
	require.NoError(t, db.AddFloorItem(ctx, a))
	require.NoError(t, db.AddFloorItem(ctx, b))

	items, err := db.GetFloorItemsFromMap(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2, "stacks with different amounts at the same tile must coexist")
}

func mustCreateBareCharacter(t *testing.T, db *DB, name string, slot int) *model.Character {
	t.Helper()
	acc := &model.Account{
		Username: name + "_acct", PasswordHash: "h", EmailHash: name + "@hash",
		RegistrationDate: time.Now(), LastLogin: time.Now(),
	}
	require.NoError(t, db.AddAccount(context.Background(), acc))
	c := &model.Character{Name: name, Slot: slot, Attributes: map[int16]model.Attribute{}}
	acc.Characters = map[int]*model.Character{slot: c}
	require.NoError(t, db.FlushAccount(context.Background(), acc))
	return c
}
