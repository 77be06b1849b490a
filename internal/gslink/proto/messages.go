// Package proto defines the wire message ids and field layouts for the
// GameServerLink (spec.md §4.4, §6), mirroring internal/account/proto's
// layout-before-behavior convention.
package proto

import (
	"fmt"

	"github.com/wyrmwatch/worldserver/internal/model"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// Game server -> account message ids.
const (
	MsgRegister          wire.MsgID = 0x01
	MsgPlayerData        wire.MsgID = 0x02
	MsgPlayerSync        wire.MsgID = 0x03
	MsgRedirect          wire.MsgID = 0x04
	MsgPlayerReconnect   wire.MsgID = 0x05
	MsgGetVarChr         wire.MsgID = 0x06
	MsgSetVarChr         wire.MsgID = 0x07
	MsgSetVarWorld       wire.MsgID = 0x08
	MsgSetVarMap         wire.MsgID = 0x09
	MsgBanPlayer         wire.MsgID = 0x0A
	MsgChangeAccountLvl  wire.MsgID = 0x0B
	MsgStatistics        wire.MsgID = 0x0C
	MsgCreateItemOnMap   wire.MsgID = 0x0D
	MsgRemoveItemOnMap   wire.MsgID = 0x0E
	MsgAnnounce          wire.MsgID = 0x0F
	MsgTransaction       wire.MsgID = 0x10
	MsgRequestPost       wire.MsgID = 0x11
	MsgStorePost         wire.MsgID = 0x12
)

// Account -> game server message ids.
const (
	MsgRegisterResponse    wire.MsgID = 0x81
	MsgActiveMap           wire.MsgID = 0x82
	MsgPlayerEnter         wire.MsgID = 0x83
	MsgGetVarChrResponse   wire.MsgID = 0x84
	MsgRedirectResponse    wire.MsgID = 0x85
	MsgRequestPostResponse wire.MsgID = 0x86
)

// Register is the opening handshake (spec.md §4.4 step 1).
type Register struct {
	Name          string
	Address       string
	Port          int16
	Password      string
	ItemDBVersion int32
}

// DecodeRegister reads a Register payload.
func DecodeRegister(r *wire.Reader) (Register, error) {
	var reg Register
	var err error
	if reg.Name, err = r.String(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.name: %w", err)
	}
	if reg.Address, err = r.String(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.address: %w", err)
	}
	if reg.Port, err = r.I16(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.port: %w", err)
	}
	if reg.Password, err = r.String(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.password: %w", err)
	}
	if reg.ItemDBVersion, err = r.I32(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.itemDbVersion: %w", err)
	}
	return reg, nil
}

// RegisterResponse reports whether the handshake succeeded and carries the
// world-scope variable set (spec.md §4.4 step 3).
type RegisterResponse struct {
	DBStatus  int16
	PwStatus  int16
	WorldVars []model.WorldStateVar
}

// WriteRegisterResponse serialises a RegisterResponse.
func WriteRegisterResponse(resp RegisterResponse) []byte {
	w := wire.NewWriter(64).WriteMsgID(MsgRegisterResponse).I16(resp.DBStatus).I16(resp.PwStatus)
	w.I16(int16(len(resp.WorldVars)))
	for _, v := range resp.WorldVars {
		w.String(v.Name).String(v.Value)
	}
	return w.Payload()
}

// ActiveMap hands a claimed map's per-map variables and persistent floor
// items to the owning game server (spec.md §4.4 step 3).
type ActiveMap struct {
	MapID      int16
	Vars       []model.WorldStateVar
	FloorItems []model.FloorItem
}

// WriteActiveMap serialises an ActiveMap.
func WriteActiveMap(am ActiveMap) []byte {
	w := wire.NewWriter(64).WriteMsgID(MsgActiveMap).I16(am.MapID)
	w.I16(int16(len(am.Vars)))
	for _, v := range am.Vars {
		w.String(v.Name).String(v.Value)
	}
	w.I16(int16(len(am.FloorItems)))
	for _, it := range am.FloorItems {
		w.I32(it.ItemID).I16(it.Amount).I16(it.X).I16(it.Y)
	}
	return w.Payload()
}

func writeCharacterSnapshot(w *wire.Writer, acctLevel int32, c *model.Character) {
	w.I32(acctLevel).I8(int8(c.Gender)).I8(c.HairStyle).I8(c.HairColor).
		I32(c.AttrPoints).I32(c.CorrPoints)

	w.I16(int16(len(c.Attributes)))
	for id, a := range c.Attributes {
		w.I16(id).Double(a.Base)
	}

	w.I16(int16(len(c.StatusEffect)))
	for id, ticks := range c.StatusEffect {
		w.I16(id).I16(int16(ticks))
	}

	w.I16(c.Position.MapID).I16(c.Position.X).I16(c.Position.Y)

	w.I16(int16(len(c.KillCount)))
	for monster, kills := range c.KillCount {
		w.I16(monster).I32(kills)
	}

	w.I16(int16(len(c.Abilities)))
	for id := range c.Abilities {
		w.I32(id)
	}

	w.I16(int16(len(c.QuestLog)))
	for _, q := range c.QuestLog {
		w.I16(q.QuestID).I8(q.State).String(q.Title).String(q.Description)
	}

	for _, it := range c.Inventory {
		equipped := int8(0)
		if it.EquipSlot != 0 {
			equipped = 1
		}
		w.I16(it.Slot).I16(it.ItemID).I16(it.Amount).I8(equipped)
	}
}

// CharacterSnapshot is the decoded form of writeCharacterSnapshot's wire
// shape, used to apply a PLAYER_DATA upload to a *model.Character.
type CharacterSnapshot struct {
	AccountLevel int32
	Gender       int8
	HairStyle    int8
	HairColor    int8
	AttrPoints   int32
	CorrPoints   int32
	Attributes   map[int16]model.Attribute
	StatusEffect map[int16]int32
	MapID        int16
	X, Y         int16
	KillCount    map[int16]int32
	Abilities    map[int32]struct{}
	QuestLog     []model.QuestEntry
	Inventory    []model.InventoryItem
}

// DecodeCharacterSnapshot reads the character-serialisation shape shared by
// PLAYER_ENTER and PLAYER_DATA (spec.md §6), consuming inventory entries to
// end-of-message as the spec requires.
func DecodeCharacterSnapshot(r *wire.Reader) (CharacterSnapshot, error) {
	var s CharacterSnapshot
	var err error
	if s.AccountLevel, err = r.I32(); err != nil {
		return s, fmt.Errorf("proto: snapshot.accountLevel: %w", err)
	}
	if s.Gender, err = r.I8(); err != nil {
		return s, err
	}
	if s.HairStyle, err = r.I8(); err != nil {
		return s, err
	}
	if s.HairColor, err = r.I8(); err != nil {
		return s, err
	}
	if s.AttrPoints, err = r.I32(); err != nil {
		return s, err
	}
	if s.CorrPoints, err = r.I32(); err != nil {
		return s, err
	}

	attrCount, err := r.I16()
	if err != nil {
		return s, err
	}
	s.Attributes = make(map[int16]model.Attribute, attrCount)
	for i := int16(0); i < attrCount; i++ {
		id, err := r.I16()
		if err != nil {
			return s, err
		}
		base, err := r.Double()
		if err != nil {
			return s, err
		}
		s.Attributes[id] = model.Attribute{Base: base, Modified: base}
	}

	statusCount, err := r.I16()
	if err != nil {
		return s, err
	}
	s.StatusEffect = make(map[int16]int32, statusCount)
	for i := int16(0); i < statusCount; i++ {
		id, err := r.I16()
		if err != nil {
			return s, err
		}
		ticks, err := r.I16()
		if err != nil {
			return s, err
		}
		s.StatusEffect[id] = int32(ticks)
	}

	if s.MapID, err = r.I16(); err != nil {
		return s, err
	}
	if s.X, err = r.I16(); err != nil {
		return s, err
	}
	if s.Y, err = r.I16(); err != nil {
		return s, err
	}

	killCount, err := r.I16()
	if err != nil {
		return s, err
	}
	s.KillCount = make(map[int16]int32, killCount)
	for i := int16(0); i < killCount; i++ {
		monster, err := r.I16()
		if err != nil {
			return s, err
		}
		kills, err := r.I32()
		if err != nil {
			return s, err
		}
		s.KillCount[monster] = kills
	}

	abilityCount, err := r.I16()
	if err != nil {
		return s, err
	}
	s.Abilities = make(map[int32]struct{}, abilityCount)
	for i := int16(0); i < abilityCount; i++ {
		id, err := r.I32()
		if err != nil {
			return s, err
		}
		s.Abilities[id] = struct{}{}
	}

	questCount, err := r.I16()
	if err != nil {
		return s, err
	}
	s.QuestLog = make([]model.QuestEntry, 0, questCount)
	for i := int16(0); i < questCount; i++ {
		var q model.QuestEntry
		if q.QuestID, err = r.I16(); err != nil {
			return s, err
		}
		if q.State, err = r.I8(); err != nil {
			return s, err
		}
		if q.Title, err = r.String(); err != nil {
			return s, err
		}
		if q.Description, err = r.String(); err != nil {
			return s, err
		}
		s.QuestLog = append(s.QuestLog, q)
	}

	for r.Remaining() > 0 {
		var it model.InventoryItem
		if it.Slot, err = r.I16(); err != nil {
			return s, err
		}
		if it.ItemID, err = r.I16(); err != nil {
			return s, err
		}
		if it.Amount, err = r.I16(); err != nil {
			return s, err
		}
		equipped, err := r.I8()
		if err != nil {
			return s, err
		}
		if equipped != 0 {
			it.EquipSlot = it.Slot
		}
		s.Inventory = append(s.Inventory, it)
	}

	return s, nil
}

// PlayerEnter registers a client handoff with the owning game server
// (spec.md §4.4, §6: "character-serialisation" wire shape).
type PlayerEnter struct {
	Token         string
	CharID        int32
	Name          string
	AccountLevel  int32
	Character     *model.Character
}

// WritePlayerEnter serialises a PlayerEnter.
func WritePlayerEnter(pe PlayerEnter) []byte {
	w := wire.NewWriter(256).WriteMsgID(MsgPlayerEnter).
		String(pe.Token).I32(pe.CharID).String(pe.Name)
	writeCharacterSnapshot(w, pe.AccountLevel, pe.Character)
	return w.Payload()
}

// PlayerData is the authoritative character-state upload from a game
// server (spec.md §4.4: "account persists it").
type PlayerData struct {
	CharID int32
}

// DecodePlayerData reads a PlayerData header; the remainder of the payload
// is the same character-snapshot shape as PlayerEnter, decoded by the
// caller directly off the shared wire.Reader since its shape depends on
// runtime-variable counts best read inline (see handler.go).
func DecodePlayerData(r *wire.Reader) (PlayerData, error) {
	id, err := r.I32()
	if err != nil {
		return PlayerData{}, fmt.Errorf("proto: PlayerData.id: %w", err)
	}
	return PlayerData{CharID: id}, nil
}

// SyncEntryKind distinguishes the three PLAYER_SYNC delta shapes.
type SyncEntryKind int8

const (
	SyncPoints SyncEntryKind = iota
	SyncAttribute
	SyncOnline
)

// SyncEntry is one PLAYER_SYNC delta (spec.md §4.4: "{char points |
// attribute | online status}").
type SyncEntry struct {
	Kind     SyncEntryKind
	CharID   int64
	AttrPts  int32
	CorrPts  int32
	AttrID   int16
	Base     float64
	Modified float64
	Online   bool
}

// DecodePlayerSync reads a batch of SyncEntry deltas.
func DecodePlayerSync(r *wire.Reader) ([]SyncEntry, error) {
	n, err := r.I16()
	if err != nil {
		return nil, fmt.Errorf("proto: PlayerSync.count: %w", err)
	}
	out := make([]SyncEntry, 0, n)
	for i := int16(0); i < n; i++ {
		kind, err := r.I8()
		if err != nil {
			return nil, fmt.Errorf("proto: PlayerSync[%d].kind: %w", i, err)
		}
		charID, err := r.I64()
		if err != nil {
			return nil, fmt.Errorf("proto: PlayerSync[%d].charId: %w", i, err)
		}
		e := SyncEntry{Kind: SyncEntryKind(kind), CharID: charID}
		switch e.Kind {
		case SyncPoints:
			if e.AttrPts, err = r.I32(); err != nil {
				return nil, err
			}
			if e.CorrPts, err = r.I32(); err != nil {
				return nil, err
			}
		case SyncAttribute:
			if e.AttrID, err = r.I16(); err != nil {
				return nil, err
			}
			if e.Base, err = r.Double(); err != nil {
				return nil, err
			}
			if e.Modified, err = r.Double(); err != nil {
				return nil, err
			}
		case SyncOnline:
			online, err := r.I8()
			if err != nil {
				return nil, err
			}
			e.Online = online != 0
		default:
			return nil, fmt.Errorf("proto: PlayerSync[%d]: unknown kind %d", i, kind)
		}
		out = append(out, e)
	}
	return out, nil
}

// Redirect names the character crossing a server boundary (spec.md §4.4).
type Redirect struct {
	CharID int64
}

// DecodeRedirect reads a Redirect payload.
func DecodeRedirect(r *wire.Reader) (Redirect, error) {
	id, err := r.I64()
	if err != nil {
		return Redirect{}, fmt.Errorf("proto: Redirect.charId: %w", err)
	}
	return Redirect{CharID: id}, nil
}

// RedirectResponse hands the new owning server's address back to the
// requesting game server.
type RedirectResponse struct {
	Found   bool
	Token   string
	Address string
	Port    int16
}

// WriteRedirectResponse serialises a RedirectResponse.
func WriteRedirectResponse(resp RedirectResponse) []byte {
	w := wire.NewWriter(64).WriteMsgID(MsgRedirectResponse)
	found := int8(0)
	if resp.Found {
		found = 1
	}
	w.I8(found)
	if !resp.Found {
		return w.Payload()
	}
	w.String(resp.Token).String(resp.Address).I16(resp.Port)
	return w.Payload()
}

// PlayerReconnect primes the account-side token collector (spec.md §4.4).
type PlayerReconnect struct {
	CharID int64
	Token  string
}

// DecodePlayerReconnect reads a PlayerReconnect payload.
func DecodePlayerReconnect(r *wire.Reader) (PlayerReconnect, error) {
	var pr PlayerReconnect
	var err error
	if pr.CharID, err = r.I64(); err != nil {
		return PlayerReconnect{}, fmt.Errorf("proto: PlayerReconnect.charId: %w", err)
	}
	if pr.Token, err = r.String(); err != nil {
		return PlayerReconnect{}, fmt.Errorf("proto: PlayerReconnect.token: %w", err)
	}
	return pr, nil
}

// VarChr carries a per-character quest variable (spec.md §4.4: GET_VAR_CHR
// / SET_VAR_CHR).
type VarChr struct {
	CharID int64
	Name   string
	Value  string
}

// DecodeGetVarChr reads a GET_VAR_CHR request (no value).
func DecodeGetVarChr(r *wire.Reader) (VarChr, error) {
	var v VarChr
	var err error
	if v.CharID, err = r.I64(); err != nil {
		return VarChr{}, fmt.Errorf("proto: GetVarChr.charId: %w", err)
	}
	if v.Name, err = r.String(); err != nil {
		return VarChr{}, fmt.Errorf("proto: GetVarChr.name: %w", err)
	}
	return v, nil
}

// DecodeSetVarChr reads a SET_VAR_CHR request (with value).
func DecodeSetVarChr(r *wire.Reader) (VarChr, error) {
	v, err := DecodeGetVarChr(r)
	if err != nil {
		return VarChr{}, err
	}
	if v.Value, err = r.String(); err != nil {
		return VarChr{}, fmt.Errorf("proto: SetVarChr.value: %w", err)
	}
	return v, nil
}

// WriteGetVarChrResponse serialises the value found for a GET_VAR_CHR
// request (empty string if unset).
func WriteGetVarChrResponse(value string) []byte {
	return wire.NewWriter(32).WriteMsgID(MsgGetVarChrResponse).String(value).Payload()
}

// VarWorld carries a world-scope variable to persist and fan out to every
// connected game server (spec.md §4.4: SET_VAR_WORLD).
type VarWorld struct {
	Name  string
	Value string
}

// DecodeSetVarWorld reads a SET_VAR_WORLD payload.
func DecodeSetVarWorld(r *wire.Reader) (VarWorld, error) {
	var v VarWorld
	var err error
	if v.Name, err = r.String(); err != nil {
		return VarWorld{}, fmt.Errorf("proto: SetVarWorld.name: %w", err)
	}
	if v.Value, err = r.String(); err != nil {
		return VarWorld{}, fmt.Errorf("proto: SetVarWorld.value: %w", err)
	}
	return v, nil
}

// WriteVarWorldFanout serialises a world-variable broadcast frame
// (same id as the inbound message; sent back out to peer links).
func WriteVarWorldFanout(v VarWorld) []byte {
	return wire.NewWriter(32).WriteMsgID(MsgSetVarWorld).String(v.Name).String(v.Value).Payload()
}

// VarMap carries a map-scope variable (spec.md §4.4: SET_VAR_MAP; no
// fan-out).
type VarMap struct {
	MapID int16
	Name  string
	Value string
}

// DecodeSetVarMap reads a SET_VAR_MAP payload.
func DecodeSetVarMap(r *wire.Reader) (VarMap, error) {
	var v VarMap
	var err error
	if v.MapID, err = r.I16(); err != nil {
		return VarMap{}, fmt.Errorf("proto: SetVarMap.mapId: %w", err)
	}
	if v.Name, err = r.String(); err != nil {
		return VarMap{}, fmt.Errorf("proto: SetVarMap.name: %w", err)
	}
	if v.Value, err = r.String(); err != nil {
		return VarMap{}, fmt.Errorf("proto: SetVarMap.value: %w", err)
	}
	return v, nil
}

// BanPlayer carries a character id and ban duration (spec.md §4.4).
type BanPlayer struct {
	CharID          int64
	DurationMinutes int32
}

// DecodeBanPlayer reads a BAN_PLAYER payload.
func DecodeBanPlayer(r *wire.Reader) (BanPlayer, error) {
	var b BanPlayer
	var err error
	if b.CharID, err = r.I64(); err != nil {
		return BanPlayer{}, fmt.Errorf("proto: BanPlayer.charId: %w", err)
	}
	if b.DurationMinutes, err = r.I32(); err != nil {
		return BanPlayer{}, fmt.Errorf("proto: BanPlayer.durationMinutes: %w", err)
	}
	return b, nil
}

// ChangeAccountLevel carries a character id and target level.
type ChangeAccountLevel struct {
	CharID int64
	Level  int32
}

// DecodeChangeAccountLevel reads a CHANGE_ACCOUNT_LEVEL payload.
func DecodeChangeAccountLevel(r *wire.Reader) (ChangeAccountLevel, error) {
	var c ChangeAccountLevel
	var err error
	if c.CharID, err = r.I64(); err != nil {
		return ChangeAccountLevel{}, fmt.Errorf("proto: ChangeAccountLevel.charId: %w", err)
	}
	if c.Level, err = r.I32(); err != nil {
		return ChangeAccountLevel{}, fmt.Errorf("proto: ChangeAccountLevel.level: %w", err)
	}
	return c, nil
}

// StatEntry is one per-map tuple of a STATISTICS report.
type StatEntry struct {
	MapID        int16
	EntityCount  int32
	MonsterCount int32
	PlayerIDs    []int64
}

// DecodeStatistics reads a STATISTICS batch.
func DecodeStatistics(r *wire.Reader) ([]StatEntry, error) {
	n, err := r.I16()
	if err != nil {
		return nil, fmt.Errorf("proto: Statistics.count: %w", err)
	}
	out := make([]StatEntry, 0, n)
	for i := int16(0); i < n; i++ {
		var e StatEntry
		if e.MapID, err = r.I16(); err != nil {
			return nil, err
		}
		if e.EntityCount, err = r.I32(); err != nil {
			return nil, err
		}
		if e.MonsterCount, err = r.I32(); err != nil {
			return nil, err
		}
		pc, err := r.I16()
		if err != nil {
			return nil, err
		}
		e.PlayerIDs = make([]int64, 0, pc)
		for j := int16(0); j < pc; j++ {
			id, err := r.I64()
			if err != nil {
				return nil, err
			}
			e.PlayerIDs = append(e.PlayerIDs, id)
		}
		out = append(out, e)
	}
	return out, nil
}

// FloorItemOp carries a floor-item create or remove request.
type FloorItemOp struct {
	MapID  int16
	ItemID int32
	Amount int16
	X, Y   int16
}

// DecodeFloorItemOp reads a CREATE_ITEM_ON_MAP / REMOVE_ITEM_ON_MAP
// payload, both sharing the same shape.
func DecodeFloorItemOp(r *wire.Reader) (FloorItemOp, error) {
	var f FloorItemOp
	var err error
	if f.MapID, err = r.I16(); err != nil {
		return FloorItemOp{}, err
	}
	if f.ItemID, err = r.I32(); err != nil {
		return FloorItemOp{}, err
	}
	if f.Amount, err = r.I16(); err != nil {
		return FloorItemOp{}, err
	}
	if f.X, err = r.I16(); err != nil {
		return FloorItemOp{}, err
	}
	if f.Y, err = r.I16(); err != nil {
		return FloorItemOp{}, err
	}
	return f, nil
}

// Announce carries a chat-forwarded announcement (spec.md §4.4).
type Announce struct {
	Message    string
	SenderID   int64
	SenderName string
}

// DecodeAnnounce reads an ANNOUNCE payload.
func DecodeAnnounce(r *wire.Reader) (Announce, error) {
	var a Announce
	var err error
	if a.Message, err = r.String(); err != nil {
		return Announce{}, err
	}
	if a.SenderID, err = r.I64(); err != nil {
		return Announce{}, err
	}
	if a.SenderName, err = r.String(); err != nil {
		return Announce{}, err
	}
	return a, nil
}

// TransactionMsg carries an audit row to append (spec.md §4.4).
type TransactionMsg struct {
	CharID  int64
	Action  int16
	Message string
}

// DecodeTransaction reads a TRANSACTION payload.
func DecodeTransaction(r *wire.Reader) (TransactionMsg, error) {
	var t TransactionMsg
	var err error
	if t.CharID, err = r.I64(); err != nil {
		return TransactionMsg{}, err
	}
	if t.Action, err = r.I16(); err != nil {
		return TransactionMsg{}, err
	}
	if t.Message, err = r.String(); err != nil {
		return TransactionMsg{}, err
	}
	return t, nil
}

// RequestPost names the character requesting its inbox.
type RequestPost struct {
	CharID int64
}

// DecodeRequestPost reads a REQUEST_POST payload.
func DecodeRequestPost(r *wire.Reader) (RequestPost, error) {
	id, err := r.I64()
	if err != nil {
		return RequestPost{}, err
	}
	return RequestPost{CharID: id}, nil
}

// WriteRequestPostResponse serialises the fetched, now-cleared inbox.
func WriteRequestPostResponse(letters []model.Letter) []byte {
	w := wire.NewWriter(128).WriteMsgID(MsgRequestPostResponse)
	w.I16(int16(len(letters)))
	for _, l := range letters {
		w.I64(l.SenderID).I8(int8(l.Type)).String(l.Text)
		w.I16(int16(len(l.Attachments)))
		for _, a := range l.Attachments {
			w.I32(a.ItemID).I32(a.Amount)
		}
	}
	return w.Payload()
}

// StorePost carries a new outgoing letter (spec.md §4.4: per-mail
// attachment cap enforced by the handler, not this codec).
type StorePost struct {
	SenderID     int64
	ReceiverName string
	Text         string
	Attachments  []model.Attachment
}

// DecodeStorePost reads a STORE_POST payload.
func DecodeStorePost(r *wire.Reader) (StorePost, error) {
	var s StorePost
	var err error
	if s.SenderID, err = r.I64(); err != nil {
		return StorePost{}, err
	}
	if s.ReceiverName, err = r.String(); err != nil {
		return StorePost{}, err
	}
	if s.Text, err = r.String(); err != nil {
		return StorePost{}, err
	}
	n, err := r.I16()
	if err != nil {
		return StorePost{}, err
	}
	s.Attachments = make([]model.Attachment, 0, n)
	for i := int16(0); i < n; i++ {
		var a model.Attachment
		if a.ItemID, err = r.I32(); err != nil {
			return StorePost{}, err
		}
		if a.Amount, err = r.I32(); err != nil {
			return StorePost{}, err
		}
		s.Attachments = append(s.Attachments, a)
	}
	return s, nil
}
