// Package proto defines the wire message ids and field layouts for the
// ChatEndpoint (spec.md §4.5), mirroring internal/account/proto's
// layout-before-behavior convention.
package proto

import (
	"fmt"

	"github.com/wyrmwatch/worldserver/internal/account/status"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// Client -> chat message ids.
const (
	MsgConnect           wire.MsgID = 0x01
	MsgChannelMessage    wire.MsgID = 0x02
	MsgPrivateMessage    wire.MsgID = 0x03
	MsgWhoRequest        wire.MsgID = 0x04
	MsgChannelEnter      wire.MsgID = 0x05
	MsgChannelQuit       wire.MsgID = 0x06
	MsgChannelKick       wire.MsgID = 0x07
	MsgChannelMode       wire.MsgID = 0x08
	MsgChannelTopic      wire.MsgID = 0x09
	MsgChannelList       wire.MsgID = 0x0A
	MsgChannelListUsers  wire.MsgID = 0x0B
	MsgGuildCreate       wire.MsgID = 0x0C
	MsgGuildInvite       wire.MsgID = 0x0D
	MsgGuildAccept       wire.MsgID = 0x0E
	MsgGuildList         wire.MsgID = 0x0F
	MsgGuildPromote      wire.MsgID = 0x10
	MsgGuildKick         wire.MsgID = 0x11
	MsgGuildQuit         wire.MsgID = 0x12
	MsgPartyInvite       wire.MsgID = 0x13
	MsgPartyAccept       wire.MsgID = 0x14
	MsgPartyQuit         wire.MsgID = 0x15
)

// Chat -> client message ids.
const (
	MsgGenericResponse      wire.MsgID = 0x81
	MsgChannelMessageOut    wire.MsgID = 0x82
	MsgPrivateMessageOut    wire.MsgID = 0x83
	MsgWhoResponse          wire.MsgID = 0x84
	MsgChannelEvent         wire.MsgID = 0x85
	MsgChannelListResponse  wire.MsgID = 0x86
	MsgChannelUsersResponse wire.MsgID = 0x87
	MsgGuildListResponse    wire.MsgID = 0x88
	MsgAnnounceOut          wire.MsgID = 0x89
	MsgPartyInviteIn        wire.MsgID = 0x8A
)

// ChannelEventKind distinguishes broadcast channel-membership events
// (spec.md §4.5: "broadcast a CHANNEL_EVENT(NEW_PLAYER)").
type ChannelEventKind int8

const (
	ChannelEventNewPlayer ChannelEventKind = iota
	ChannelEventLeavingPlayer
)

// WriteGenericResponse serialises a bare status reply.
func WriteGenericResponse(st status.Code) []byte {
	return wire.NewWriter(8).WriteMsgID(MsgGenericResponse).I8(int8(st)).Payload()
}

// Connect is the opening handshake (spec.md §4.5: "First message must be
// CONNECT(token)").
type Connect struct {
	Token string
}

// DecodeConnect reads a Connect payload.
func DecodeConnect(r *wire.Reader) (Connect, error) {
	tok, err := r.String()
	if err != nil {
		return Connect{}, fmt.Errorf("proto: Connect.token: %w", err)
	}
	return Connect{Token: tok}, nil
}

// ChannelMessage carries free text addressed to a joined channel.
type ChannelMessage struct {
	Channel int32
	Text    string
}

// DecodeChannelMessage reads a ChannelMessage payload.
func DecodeChannelMessage(r *wire.Reader) (ChannelMessage, error) {
	var m ChannelMessage
	var err error
	if m.Channel, err = r.I32(); err != nil {
		return ChannelMessage{}, err
	}
	if m.Text, err = r.String(); err != nil {
		return ChannelMessage{}, err
	}
	return m, nil
}

// WriteChannelMessageOut serialises an inbound channel message for
// broadcast to every member.
func WriteChannelMessageOut(channel int32, sender, text string) []byte {
	return wire.NewWriter(64).WriteMsgID(MsgChannelMessageOut).
		I32(channel).String(sender).String(text).Payload()
}

// PrivateMessage addresses one named recipient.
type PrivateMessage struct {
	ToName string
	Text   string
}

// DecodePrivateMessage reads a PrivateMessage payload.
func DecodePrivateMessage(r *wire.Reader) (PrivateMessage, error) {
	var m PrivateMessage
	var err error
	if m.ToName, err = r.String(); err != nil {
		return PrivateMessage{}, err
	}
	if m.Text, err = r.String(); err != nil {
		return PrivateMessage{}, err
	}
	return m, nil
}

// WritePrivateMessageOut serialises a delivered private message.
func WritePrivateMessageOut(fromName, text string) []byte {
	return wire.NewWriter(64).WriteMsgID(MsgPrivateMessageOut).String(fromName).String(text).Payload()
}

// WriteWhoResponse serialises the currently-authenticated name list.
func WriteWhoResponse(names []string) []byte {
	w := wire.NewWriter(64).WriteMsgID(MsgWhoResponse)
	w.I16(int16(len(names)))
	for _, n := range names {
		w.String(n)
	}
	return w.Payload()
}

// ChannelEnter requests to join a channel by name (spec.md §4.5: "Channel
// enter").
type ChannelEnter struct {
	Name     string
	Password string
}

// DecodeChannelEnter reads a ChannelEnter payload.
func DecodeChannelEnter(r *wire.Reader) (ChannelEnter, error) {
	var c ChannelEnter
	var err error
	if c.Name, err = r.String(); err != nil {
		return ChannelEnter{}, err
	}
	if c.Password, err = r.String(); err != nil {
		return ChannelEnter{}, err
	}
	return c, nil
}

// ChannelQuit names the channel to leave.
type ChannelQuit struct {
	Channel int32
}

// DecodeChannelQuit reads a ChannelQuit payload.
func DecodeChannelQuit(r *wire.Reader) (ChannelQuit, error) {
	id, err := r.I32()
	if err != nil {
		return ChannelQuit{}, err
	}
	return ChannelQuit{Channel: id}, nil
}

// ChannelKick names the channel and member to remove.
type ChannelKick struct {
	Channel    int32
	TargetName string
}

// DecodeChannelKick reads a ChannelKick payload.
func DecodeChannelKick(r *wire.Reader) (ChannelKick, error) {
	var c ChannelKick
	var err error
	if c.Channel, err = r.I32(); err != nil {
		return ChannelKick{}, err
	}
	if c.TargetName, err = r.String(); err != nil {
		return ChannelKick{}, err
	}
	return c, nil
}

// ChannelMode toggles a member's operator bit.
type ChannelMode struct {
	Channel    int32
	TargetName string
	Operator   bool
}

// DecodeChannelMode reads a ChannelMode payload.
func DecodeChannelMode(r *wire.Reader) (ChannelMode, error) {
	var c ChannelMode
	var err error
	if c.Channel, err = r.I32(); err != nil {
		return ChannelMode{}, err
	}
	if c.TargetName, err = r.String(); err != nil {
		return ChannelMode{}, err
	}
	op, err := r.I8()
	if err != nil {
		return ChannelMode{}, err
	}
	c.Operator = op != 0
	return c, nil
}

// ChannelTopic sets a channel's announcement text.
type ChannelTopic struct {
	Channel int32
	Topic   string
}

// DecodeChannelTopic reads a ChannelTopic payload.
func DecodeChannelTopic(r *wire.Reader) (ChannelTopic, error) {
	var c ChannelTopic
	var err error
	if c.Channel, err = r.I32(); err != nil {
		return ChannelTopic{}, err
	}
	if c.Topic, err = r.String(); err != nil {
		return ChannelTopic{}, err
	}
	return c, nil
}

// ChannelInfo is one row of a channel-list reply.
type ChannelInfo struct {
	ID           int32
	Name         string
	Announcement string
	UserCount    int
}

// WriteChannelListResponse serialises every joinable channel.
func WriteChannelListResponse(channels []ChannelInfo) []byte {
	w := wire.NewWriter(128).WriteMsgID(MsgChannelListResponse)
	w.I16(int16(len(channels)))
	for _, c := range channels {
		w.I32(c.ID).String(c.Name).String(c.Announcement).I16(int16(c.UserCount))
	}
	return w.Payload()
}

// ChannelListUsers names the channel whose membership is requested.
type ChannelListUsers struct {
	Channel int32
}

// DecodeChannelListUsers reads a ChannelListUsers payload.
func DecodeChannelListUsers(r *wire.Reader) (ChannelListUsers, error) {
	id, err := r.I32()
	if err != nil {
		return ChannelListUsers{}, err
	}
	return ChannelListUsers{Channel: id}, nil
}

// WriteChannelUsersResponse serialises a channel's member-name list.
func WriteChannelUsersResponse(names []string) []byte {
	w := wire.NewWriter(64).WriteMsgID(MsgChannelUsersResponse)
	w.I16(int16(len(names)))
	for _, n := range names {
		w.String(n)
	}
	return w.Payload()
}

// WriteChannelEvent serialises a membership broadcast.
func WriteChannelEvent(channel int32, kind ChannelEventKind, name string) []byte {
	return wire.NewWriter(32).WriteMsgID(MsgChannelEvent).
		I32(channel).I8(int8(kind)).String(name).Payload()
}

// GuildCreate names the new guild.
type GuildCreate struct {
	Name string
}

// DecodeGuildCreate reads a GuildCreate payload.
func DecodeGuildCreate(r *wire.Reader) (GuildCreate, error) {
	name, err := r.String()
	if err != nil {
		return GuildCreate{}, err
	}
	return GuildCreate{Name: name}, nil
}

// GuildInvite names the invited character.
type GuildInvite struct {
	TargetName string
}

// DecodeGuildInvite reads a GuildInvite payload.
func DecodeGuildInvite(r *wire.Reader) (GuildInvite, error) {
	name, err := r.String()
	if err != nil {
		return GuildInvite{}, err
	}
	return GuildInvite{TargetName: name}, nil
}

// GuildPromote names the member and new rights bitmask.
type GuildPromote struct {
	TargetName string
	Rights     uint32
}

// DecodeGuildPromote reads a GuildPromote payload.
func DecodeGuildPromote(r *wire.Reader) (GuildPromote, error) {
	var g GuildPromote
	var err error
	if g.TargetName, err = r.String(); err != nil {
		return GuildPromote{}, err
	}
	rights, err := r.I32()
	if err != nil {
		return GuildPromote{}, err
	}
	g.Rights = uint32(rights)
	return g, nil
}

// GuildKick names the member to remove.
type GuildKick struct {
	TargetName string
}

// DecodeGuildKick reads a GuildKick payload.
func DecodeGuildKick(r *wire.Reader) (GuildKick, error) {
	name, err := r.String()
	if err != nil {
		return GuildKick{}, err
	}
	return GuildKick{TargetName: name}, nil
}

// GuildInfo is one row of a guild-list reply.
type GuildInfo struct {
	ID      int64
	Name    string
	Members int
}

// WriteGuildListResponse serialises every existing guild.
func WriteGuildListResponse(guilds []GuildInfo) []byte {
	w := wire.NewWriter(128).WriteMsgID(MsgGuildListResponse)
	w.I16(int16(len(guilds)))
	for _, g := range guilds {
		w.I64(g.ID).String(g.Name).I16(int16(g.Members))
	}
	return w.Payload()
}

// PartyInvite names the invited character.
type PartyInvite struct {
	TargetName string
}

// DecodePartyInvite reads a PartyInvite payload.
func DecodePartyInvite(r *wire.Reader) (PartyInvite, error) {
	name, err := r.String()
	if err != nil {
		return PartyInvite{}, err
	}
	return PartyInvite{TargetName: name}, nil
}

// WritePartyInviteIn serialises an incoming party invite for the target.
func WritePartyInviteIn(fromName string) []byte {
	return wire.NewWriter(32).WriteMsgID(MsgPartyInviteIn).String(fromName).Payload()
}

// WriteAnnounceOut serialises a forwarded broadcast announcement
// (spec.md §4.4 ANNOUNCE, relayed by gslink.ChatForwarder).
func WriteAnnounceOut(message, senderName string) []byte {
	return wire.NewWriter(64).WriteMsgID(MsgAnnounceOut).String(message).String(senderName).Payload()
}
