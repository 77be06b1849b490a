package gslink

import (
	"context"
	"time"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// Repository is everything the GameServerLink needs from storage, narrowed
// the same way internal/account.Repository narrows *storage.DB.
type Repository interface {
	GetAllWorldStateVars(ctx context.Context, scope int32) ([]model.WorldStateVar, error)
	SetWorldStateVar(ctx context.Context, scope int32, name, value string) error
	GetFloorItemsFromMap(ctx context.Context, mapID int16) ([]model.FloorItem, error)
	AddFloorItem(ctx context.Context, it model.FloorItem) error
	RemoveFloorItem(ctx context.Context, it model.FloorItem) error

	GetCharacterByID(ctx context.Context, id int64) (*model.Character, error)
	GetCharacterID(ctx context.Context, name string) (int64, error)
	UpdateCharacter(ctx context.Context, c *model.Character) error
	UpdateCharacterPoints(ctx context.Context, charID int64, attrPts, corrPts int32) error
	UpdateAttribute(ctx context.Context, charID int64, attrID int16, base, modified float64) error
	SetOnlineStatus(ctx context.Context, charID int64, online bool) error

	AccountIDForCharacter(ctx context.Context, charID int64) (int64, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	BanAccount(ctx context.Context, id int64, until time.Time) error
	SetAccountLevel(ctx context.Context, id int64, level model.AccessLevel) error

	GetQuestVar(ctx context.Context, ownerID int64, name string) (string, error)
	SetQuestVar(ctx context.Context, ownerID int64, name, value string) error

	AddTransaction(ctx context.Context, t model.Transaction) error

	GetStoredPost(ctx context.Context, receiverID int64) ([]model.Letter, error)
	DeletePost(ctx context.Context, letterID int64) error
	StoreLetter(ctx context.Context, l *model.Letter) error
}
