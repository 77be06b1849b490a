package model

import "time"

// AccessLevel is the coarse privilege tier attached to an Account.
type AccessLevel int32

const (
	AccessPlayer AccessLevel = 0
	AccessGM     AccessLevel = 1
	AccessBanned AccessLevel = -1
)

// Account is the login-level identity owning one or more Characters.
//
// ID is assigned on first persist (storage.AddAccount fills it). Username
// is unique and case-preserving. PasswordHash and EmailHash are already
// hashed by the caller — storage never hashes (spec.md §4.7).
type Account struct {
	ID            int64
	Username      string
	PasswordHash  string // bcrypt, checked by Unregister/PasswordChange's "verify old" step
	LoginVerifier string // sha256, checked by Login's salted challenge-response; see DESIGN.md
	EmailHash     string
	Level         AccessLevel
	BannedUntil   time.Time
	PriorLevel    AccessLevel // level to restore when a ban expires, see DESIGN.md
	RegistrationDate time.Time
	LastLogin        time.Time

	// Characters is populated by storage.GetAccountByUsername and
	// storage.GetAccountByID, keyed by slot.
	Characters map[int]*Character
}

// Slots returns the account's occupied character slots in ascending order.
func (a *Account) Slots() []int {
	slots := make([]int, 0, len(a.Characters))
	for slot := range a.Characters {
		slots = append(slots, slot)
	}
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && slots[j-1] > slots[j]; j-- {
			slots[j-1], slots[j] = slots[j], slots[j-1]
		}
	}
	return slots
}
