// Package proto defines the wire message ids and field layouts for the
// client <-> account endpoint (spec.md §6), following the teacher's
// OpcodeGS* constant-block convention in internal/gslistener/constants.go.
package proto

import (
	"fmt"

	"github.com/wyrmwatch/worldserver/internal/account/status"
	"github.com/wyrmwatch/worldserver/internal/model"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// Client -> account message ids.
const (
	MsgLoginRandTrigger    wire.MsgID = 0x01
	MsgLogin               wire.MsgID = 0x02
	MsgLogout              wire.MsgID = 0x03
	MsgReconnect           wire.MsgID = 0x04
	MsgRegister            wire.MsgID = 0x05
	MsgUnregister          wire.MsgID = 0x06
	MsgEmailChange         wire.MsgID = 0x07
	MsgPasswordChange      wire.MsgID = 0x08
	MsgCharCreate          wire.MsgID = 0x09
	MsgCharSelect          wire.MsgID = 0x0A
	MsgCharDelete          wire.MsgID = 0x0B
	MsgRequestRegisterInfo wire.MsgID = 0x0C
)

// Account -> client message ids.
const (
	MsgLoginRandTriggerResponse    wire.MsgID = 0x81
	MsgLoginResponse               wire.MsgID = 0x82
	MsgGenericResponse             wire.MsgID = 0x83
	MsgCharCreateResponse          wire.MsgID = 0x84
	MsgCharSelectResponse          wire.MsgID = 0x85
	MsgRequestRegisterInfoResponse wire.MsgID = 0x86
)

// attrScale is the legacy-client fixed-point factor for numeric attribute
// fields (spec.md §6: "transmitted as i32 in units of 1/256").
const attrScale = 256

// LoginRandTrigger is the client's opening message: its username only.
type LoginRandTrigger struct {
	Username string
}

// DecodeLoginRandTrigger reads a LoginRandTrigger payload.
func DecodeLoginRandTrigger(r *wire.Reader) (LoginRandTrigger, error) {
	user, err := r.String()
	if err != nil {
		return LoginRandTrigger{}, fmt.Errorf("proto: LoginRandTrigger: %w", err)
	}
	return LoginRandTrigger{Username: user}, nil
}

// WriteLoginRandTriggerResponse writes the generated salt.
func WriteLoginRandTriggerResponse(salt []byte) []byte {
	return wire.NewWriter(2 + len(salt)).
		WriteMsgID(MsgLoginRandTriggerResponse).
		Bytes(salt).
		Payload()
}

// Login carries the client's version, username, and salted hash.
type Login struct {
	Version    int32
	Username   string
	SaltedHash string
}

// DecodeLogin reads a Login payload.
func DecodeLogin(r *wire.Reader) (Login, error) {
	var l Login
	var err error
	if l.Version, err = r.I32(); err != nil {
		return Login{}, fmt.Errorf("proto: Login.version: %w", err)
	}
	if l.Username, err = r.String(); err != nil {
		return Login{}, fmt.Errorf("proto: Login.username: %w", err)
	}
	if l.SaltedHash, err = r.String(); err != nil {
		return Login{}, fmt.Errorf("proto: Login.saltedHash: %w", err)
	}
	return l, nil
}

// ServerStatus is one entry of the optional server list shown at login,
// supplementing the distilled spec with the original's per-server
// online/max-player counts (see SPEC_FULL.md).
type ServerStatus struct {
	ID         int8
	Name       string
	Online     int32
	MaxPlayers int32
}

func writeServerStatus(w *wire.Writer, s ServerStatus) {
	w.I8(s.ID).String(s.Name).I32(s.Online).I32(s.MaxPlayers)
}

// EquipEntry is one equipped-item wire record.
type EquipEntry struct {
	EquipSlot int16
	ItemID    int16
}

// AttrEntry is one wire-scaled attribute record (spec.md §6: base/modified
// transmitted as i32 x256).
type AttrEntry struct {
	ID       int16
	Base     int32
	Modified int32
}

// CharacterRecord is the per-character roster entry sent in LoginResponse
// and as the CharCreate success payload.
type CharacterRecord struct {
	Slot       int8
	Name       string
	Gender     int8
	HairStyle  int8
	HairColor  int8
	AttrPoints int32
	CorrPoints int32
	Equip      []EquipEntry
	Attrs      []AttrEntry
}

// CharacterRecordFromModel builds the wire record for a stored character.
func CharacterRecordFromModel(c *model.Character) CharacterRecord {
	rec := CharacterRecord{
		Slot:       int8(c.Slot),
		Name:       c.Name,
		Gender:     int8(c.Gender),
		HairStyle:  c.HairStyle,
		HairColor:  c.HairColor,
		AttrPoints: c.AttrPoints,
		CorrPoints: c.CorrPoints,
	}
	for _, it := range c.Equipped() {
		rec.Equip = append(rec.Equip, EquipEntry{EquipSlot: it.EquipSlot, ItemID: it.ItemID})
	}
	for id, a := range c.Attributes {
		rec.Attrs = append(rec.Attrs, AttrEntry{
			ID:       id,
			Base:     int32(a.Base * attrScale),
			Modified: int32(a.Modified * attrScale),
		})
	}
	return rec
}

func writeCharacterRecord(w *wire.Writer, c CharacterRecord) {
	w.I8(c.Slot).String(c.Name).I8(c.Gender).I8(c.HairStyle).I8(c.HairColor).
		I32(c.AttrPoints).I32(c.CorrPoints)
	w.I16(int16(len(c.Equip)))
	for _, e := range c.Equip {
		w.I16(e.EquipSlot).I16(e.ItemID)
	}
	w.I16(int16(len(c.Attrs)))
	for _, a := range c.Attrs {
		w.I16(a.ID).I32(a.Base).I32(a.Modified)
	}
}

// LoginResponse is the reply to a successful Login.
type LoginResponse struct {
	Status      status.Code
	UpdateHost  string
	DataURL     string
	MaxChars    int8
	Characters  []CharacterRecord
	Servers     []ServerStatus
}

// WriteLoginResponse serialises a LoginResponse.
func WriteLoginResponse(resp LoginResponse) []byte {
	w := wire.NewWriter(64).WriteMsgID(MsgLoginResponse).
		I8(int8(resp.Status))
	if resp.Status != status.Ok {
		return w.Payload()
	}
	w.String(resp.UpdateHost).String(resp.DataURL).I8(resp.MaxChars)
	w.I16(int16(len(resp.Characters)))
	for _, c := range resp.Characters {
		writeCharacterRecord(w, c)
	}
	w.I16(int16(len(resp.Servers)))
	for _, s := range resp.Servers {
		writeServerStatus(w, s)
	}
	return w.Payload()
}

// GenericResponse is the reply shape shared by Logout, Unregister,
// EmailChange, PasswordChange, and CharDelete: a bare status.
type GenericResponse struct {
	Status status.Code
}

// WriteGenericResponse serialises a GenericResponse.
func WriteGenericResponse(status status.Code) []byte {
	return wire.NewWriter(3).WriteMsgID(MsgGenericResponse).I8(int8(status)).Payload()
}

// Register carries new-account details.
type Register struct {
	Version  int32
	Username string
	PwHash   string
	Email    string
	Captcha  string
}

// DecodeRegister reads a Register payload.
func DecodeRegister(r *wire.Reader) (Register, error) {
	var reg Register
	var err error
	if reg.Version, err = r.I32(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.version: %w", err)
	}
	if reg.Username, err = r.String(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.username: %w", err)
	}
	if reg.PwHash, err = r.String(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.pwHash: %w", err)
	}
	if reg.Email, err = r.String(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.email: %w", err)
	}
	if reg.Captcha, err = r.String(); err != nil {
		return Register{}, fmt.Errorf("proto: Register.captcha: %w", err)
	}
	return reg, nil
}

// Unregister carries the credentials needed to confirm account deletion.
type Unregister struct {
	Username string
	PwHash   string
}

// DecodeUnregister reads an Unregister payload.
func DecodeUnregister(r *wire.Reader) (Unregister, error) {
	var u Unregister
	var err error
	if u.Username, err = r.String(); err != nil {
		return Unregister{}, fmt.Errorf("proto: Unregister.username: %w", err)
	}
	if u.PwHash, err = r.String(); err != nil {
		return Unregister{}, fmt.Errorf("proto: Unregister.pwHash: %w", err)
	}
	return u, nil
}

// EmailChange carries the replacement email address.
type EmailChange struct {
	Email string
}

// DecodeEmailChange reads an EmailChange payload.
func DecodeEmailChange(r *wire.Reader) (EmailChange, error) {
	email, err := r.String()
	if err != nil {
		return EmailChange{}, fmt.Errorf("proto: EmailChange.email: %w", err)
	}
	return EmailChange{Email: email}, nil
}

// PasswordChange carries the old and new password hashes.
type PasswordChange struct {
	OldHash string
	NewHash string
}

// DecodePasswordChange reads a PasswordChange payload.
func DecodePasswordChange(r *wire.Reader) (PasswordChange, error) {
	var pc PasswordChange
	var err error
	if pc.OldHash, err = r.String(); err != nil {
		return PasswordChange{}, fmt.Errorf("proto: PasswordChange.old: %w", err)
	}
	if pc.NewHash, err = r.String(); err != nil {
		return PasswordChange{}, fmt.Errorf("proto: PasswordChange.new: %w", err)
	}
	return pc, nil
}

// Reconnect carries the token a previously-queued client presents.
type Reconnect struct {
	Token string
}

// DecodeReconnect reads a Reconnect payload.
func DecodeReconnect(r *wire.Reader) (Reconnect, error) {
	tok, err := r.String()
	if err != nil {
		return Reconnect{}, fmt.Errorf("proto: Reconnect.token: %w", err)
	}
	return Reconnect{Token: tok}, nil
}

// CharCreate carries the requested character's attributes.
type CharCreate struct {
	Name      string
	HairStyle int8
	HairColor int8
	Gender    int8
	Slot      int8
	Attrs     []int32 // wire order matches config.CharacterRules.ModifiableAttrs
}

// DecodeCharCreate reads a CharCreate payload.
func DecodeCharCreate(r *wire.Reader) (CharCreate, error) {
	var cc CharCreate
	var err error
	if cc.Name, err = r.String(); err != nil {
		return CharCreate{}, fmt.Errorf("proto: CharCreate.name: %w", err)
	}
	if hs, err := r.I8(); err != nil {
		return CharCreate{}, fmt.Errorf("proto: CharCreate.hairStyle: %w", err)
	} else {
		cc.HairStyle = hs
	}
	if hc, err := r.I8(); err != nil {
		return CharCreate{}, fmt.Errorf("proto: CharCreate.hairColor: %w", err)
	} else {
		cc.HairColor = hc
	}
	if g, err := r.I8(); err != nil {
		return CharCreate{}, fmt.Errorf("proto: CharCreate.gender: %w", err)
	} else {
		cc.Gender = g
	}
	if s, err := r.I8(); err != nil {
		return CharCreate{}, fmt.Errorf("proto: CharCreate.slot: %w", err)
	} else {
		cc.Slot = s
	}
	n, err := r.I8()
	if err != nil {
		return CharCreate{}, fmt.Errorf("proto: CharCreate.attrCount: %w", err)
	}
	cc.Attrs = make([]int32, 0, n)
	for i := int8(0); i < n; i++ {
		v, err := r.I32()
		if err != nil {
			return CharCreate{}, fmt.Errorf("proto: CharCreate.attr[%d]: %w", i, err)
		}
		cc.Attrs = append(cc.Attrs, v)
	}
	return cc, nil
}

// CharCreateResponse replies with the created character's wire record.
type CharCreateResponse struct {
	Status    status.Code
	Character CharacterRecord
}

// WriteCharCreateResponse serialises a CharCreateResponse.
func WriteCharCreateResponse(resp CharCreateResponse) []byte {
	w := wire.NewWriter(48).WriteMsgID(MsgCharCreateResponse).I8(int8(resp.Status))
	if resp.Status != status.Ok {
		return w.Payload()
	}
	writeCharacterRecord(w, resp.Character)
	return w.Payload()
}

// CharSelect names the slot the client wants to enter the world with.
type CharSelect struct {
	Slot int8
}

// DecodeCharSelect reads a CharSelect payload.
func DecodeCharSelect(r *wire.Reader) (CharSelect, error) {
	slot, err := r.I8()
	if err != nil {
		return CharSelect{}, fmt.Errorf("proto: CharSelect.slot: %w", err)
	}
	return CharSelect{Slot: slot}, nil
}

// CharSelectResponse hands the client off to a game server and chat server.
type CharSelectResponse struct {
	Status      status.Code
	Token       string
	GameAddress string
	GamePort    int16
	ChatAddress string
	ChatPort    int16
}

// WriteCharSelectResponse serialises a CharSelectResponse.
func WriteCharSelectResponse(resp CharSelectResponse) []byte {
	w := wire.NewWriter(64).WriteMsgID(MsgCharSelectResponse).I8(int8(resp.Status))
	if resp.Status != status.Ok {
		return w.Payload()
	}
	w.String(resp.Token).String(resp.GameAddress).I16(resp.GamePort).
		String(resp.ChatAddress).I16(resp.ChatPort)
	return w.Payload()
}

// CharDelete names the slot to remove.
type CharDelete struct {
	Slot int8
}

// DecodeCharDelete reads a CharDelete payload.
func DecodeCharDelete(r *wire.Reader) (CharDelete, error) {
	slot, err := r.I8()
	if err != nil {
		return CharDelete{}, fmt.Errorf("proto: CharDelete.slot: %w", err)
	}
	return CharDelete{Slot: slot}, nil
}

// RequestRegisterInfoResponse answers the client's registration-rules
// query (spec.md §4.3: "reply with min/max name length, captcha URL, or
// deny reason").
type RequestRegisterInfoResponse struct {
	Status        status.Code
	MinNameLength int8
	MaxNameLength int8
	CaptchaURL    string
	DenyReason    string
}

// WriteRequestRegisterInfoResponse serialises a RequestRegisterInfoResponse.
func WriteRequestRegisterInfoResponse(resp RequestRegisterInfoResponse) []byte {
	return wire.NewWriter(32).WriteMsgID(MsgRequestRegisterInfoResponse).
		I8(int8(resp.Status)).
		I8(resp.MinNameLength).I8(resp.MaxNameLength).
		String(resp.CaptchaURL).String(resp.DenyReason).
		Payload()
}
