package model

import "time"

// TransactionAction is the audit-log action code (spec.md §3, §4.4).
type TransactionAction int16

const (
	TxCharCreate TransactionAction = iota
	TxCharSelected
	TxCharDelete
	TxBan
	TxLevelChange
	TxAnnounce
	TxAdminKick      // SPEC_FULL.md supplemented feature
	TxAdminShutdown  // SPEC_FULL.md supplemented feature
)

// Transaction is an append-only audit record, distinct from a database
// transaction (GLOSSARY).
type Transaction struct {
	ID        int64
	CharID    int64
	Action    TransactionAction
	Message   string
	Timestamp time.Time
}
