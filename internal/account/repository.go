package account

import (
	"context"
	"time"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// Repository is everything the account endpoint needs from storage.
// Defined here (rather than depending on *storage.DB directly) so unit
// tests can inject a mock, following internal/login.AccountRepository.
type Repository interface {
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	AddAccount(ctx context.Context, a *model.Account) error
	DelAccount(ctx context.Context, id int64) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	DoesUsernameExist(ctx context.Context, username string) (bool, error)
	DoesEmailAddressExist(ctx context.Context, emailHash string) (bool, error)
	DoesCharacterNameExist(ctx context.Context, name string) (bool, error)
	FlushAccount(ctx context.Context, a *model.Account) error
	MarkCharacterDeleted(ctx context.Context, charID int64, whenUnix int64) error
	AddTransaction(ctx context.Context, t model.Transaction) error
	UpdatePassword(ctx context.Context, id int64, bcryptHash, loginVerifier string) error
	UpdateEmailHash(ctx context.Context, id int64, emailHash string) error
}
