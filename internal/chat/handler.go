package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyrmwatch/worldserver/internal/account/status"
	"github.com/wyrmwatch/worldserver/internal/chat/proto"
	"github.com/wyrmwatch/worldserver/internal/model"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

var dispatchTable = map[wire.MsgID]func(context.Context, *Server, *Client, *wire.Reader) ([]byte, bool){
	proto.MsgConnect:          handleConnect,
	proto.MsgChannelMessage:   handleChannelMessage,
	proto.MsgPrivateMessage:   handlePrivateMessage,
	proto.MsgWhoRequest:       handleWhoRequest,
	proto.MsgChannelEnter:     handleChannelEnter,
	proto.MsgChannelQuit:      handleChannelQuit,
	proto.MsgChannelKick:      handleChannelKick,
	proto.MsgChannelMode:      handleChannelMode,
	proto.MsgChannelTopic:     handleChannelTopic,
	proto.MsgChannelList:      handleChannelList,
	proto.MsgChannelListUsers: handleChannelListUsers,
	proto.MsgGuildCreate:      handleGuildCreate,
	proto.MsgGuildInvite:      handleGuildInvite,
	proto.MsgGuildAccept:      handleGuildAccept,
	proto.MsgGuildList:        handleGuildList,
	proto.MsgGuildPromote:     handleGuildPromote,
	proto.MsgGuildKick:        handleGuildKick,
	proto.MsgGuildQuit:        handleGuildQuit,
	proto.MsgPartyInvite:      handlePartyInvite,
	proto.MsgPartyAccept:      handlePartyAccept,
	proto.MsgPartyQuit:        handlePartyQuit,
}

// dispatch enforces CONNECT as the mandatory first message (spec.md §4.5)
// and otherwise looks the message id up in dispatchTable.
func dispatch(ctx context.Context, s *Server, c *Client, id wire.MsgID, r *wire.Reader) ([]byte, bool) {
	if !c.authenticated() {
		if id != proto.MsgConnect {
			slog.Warn("chat: message before CONNECT", "id", id, "ip", c.ip)
			return nil, false
		}
		return handleConnect(ctx, s, c, r)
	}
	h, ok := dispatchTable[id]
	if !ok {
		slog.Warn("chat: unknown message id", "id", id, "ip", c.ip)
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	return h(ctx, s, c, r)
}

func handleConnect(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeConnect(r)
	if err != nil {
		return nil, false
	}
	s.tokens.AddPendingClient(msg.Token, c)
	return nil, true
}

func handleChannelMessage(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeChannelMessage(r)
	if err != nil {
		return nil, false
	}
	ch, ok := s.channels.get(msg.Channel)
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	name, _ := c.identity()
	s.broadcastChannel(ch, proto.WriteChannelMessageOut(msg.Channel, name, msg.Text))
	return nil, true
}

func handlePrivateMessage(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodePrivateMessage(r)
	if err != nil {
		return nil, false
	}
	name, _ := c.identity()
	target, ok := s.lookupClient(msg.ToName)
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	if err := target.send(proto.WritePrivateMessageOut(name, msg.Text)); err != nil {
		slog.Error("chat: private message delivery failed", "to", msg.ToName, "err", err)
	}
	return nil, true
}

func handleWhoRequest(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	s.mu.Lock()
	names := make([]string, 0, len(s.clients))
	for n := range s.clients {
		names = append(names, n)
	}
	s.mu.Unlock()
	return proto.WriteWhoResponse(names), true
}

func handleChannelEnter(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeChannelEnter(r)
	if err != nil {
		return nil, false
	}
	name, _ := c.identity()

	ch, ok := s.channels.lookup(msg.Name)
	if !ok {
		taken, err := s.repo.DoesGuildNameExist(ctx, msg.Name)
		if err != nil {
			slog.Error("chat: channel-enter guild name check failed", "err", err)
			return proto.WriteGenericResponse(status.Failure), true
		}
		if taken {
			return proto.WriteGenericResponse(status.InvalidArgument), true
		}
		ch = s.channels.create(msg.Name, msg.Password, false, 0)
	}
	if ch.password != "" && ch.password != msg.Password {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	operator := len(s.channels.members(ch)) == 0
	if !s.channels.join(ch, name, operator) {
		return proto.WriteGenericResponse(status.Ok), true
	}
	c.trackChannel(ch.id)
	s.broadcastChannel(ch, proto.WriteChannelEvent(ch.id, proto.ChannelEventNewPlayer, name))
	return proto.WriteGenericResponse(status.Ok), true
}

func handleChannelQuit(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeChannelQuit(r)
	if err != nil {
		return nil, false
	}
	ch, ok := s.channels.get(msg.Channel)
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	name, _ := c.identity()
	s.channels.leave(ch, name)
	c.untrackChannel(msg.Channel)
	s.broadcastChannel(ch, proto.WriteChannelEvent(msg.Channel, proto.ChannelEventLeavingPlayer, name))
	return proto.WriteGenericResponse(status.Ok), true
}

func handleChannelKick(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeChannelKick(r)
	if err != nil {
		return nil, false
	}
	ch, ok := s.channels.get(msg.Channel)
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	name, _ := c.identity()
	if !s.channels.isOperator(ch, name) {
		return proto.WriteGenericResponse(status.InsufficientRights), true
	}
	s.channels.leave(ch, msg.TargetName)
	if target, ok := s.lookupClient(msg.TargetName); ok {
		target.untrackChannel(msg.Channel)
	}
	s.broadcastChannel(ch, proto.WriteChannelEvent(msg.Channel, proto.ChannelEventLeavingPlayer, msg.TargetName))
	return proto.WriteGenericResponse(status.Ok), true
}

func handleChannelMode(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeChannelMode(r)
	if err != nil {
		return nil, false
	}
	ch, ok := s.channels.get(msg.Channel)
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	name, _ := c.identity()
	if !s.channels.isOperator(ch, name) {
		return proto.WriteGenericResponse(status.InsufficientRights), true
	}
	if !s.channels.setOperator(ch, msg.TargetName, msg.Operator) {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	return proto.WriteGenericResponse(status.Ok), true
}

func handleChannelTopic(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeChannelTopic(r)
	if err != nil {
		return nil, false
	}
	ch, ok := s.channels.get(msg.Channel)
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	name, _ := c.identity()
	if !s.channels.isOperator(ch, name) {
		return proto.WriteGenericResponse(status.InsufficientRights), true
	}
	s.channels.setTopic(ch, msg.Topic)
	return proto.WriteGenericResponse(status.Ok), true
}

func handleChannelList(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	channels := s.channels.list()
	out := make([]proto.ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		out = append(out, proto.ChannelInfo{
			ID: ch.id, Name: ch.name, Announcement: ch.announcement, UserCount: len(s.channels.members(ch)),
		})
	}
	return proto.WriteChannelListResponse(out), true
}

func handleChannelListUsers(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeChannelListUsers(r)
	if err != nil {
		return nil, false
	}
	ch, ok := s.channels.get(msg.Channel)
	if !ok {
		return proto.WriteChannelUsersResponse(nil), true
	}
	return proto.WriteChannelUsersResponse(s.channels.members(ch)), true
}

func handleGuildCreate(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeGuildCreate(r)
	if err != nil {
		return nil, false
	}
	exists, err := s.repo.DoesGuildNameExist(ctx, msg.Name)
	if err != nil {
		slog.Error("chat: guild-create name check failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	if exists {
		return proto.WriteGenericResponse(status.ExistsUsername), true
	}

	c.mu.Lock()
	if c.guildID != 0 {
		c.mu.Unlock()
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	charID := c.charID
	c.mu.Unlock()

	guild := model.NewGuild(0, msg.Name, charID)
	if err := s.repo.CreateGuild(ctx, guild); err != nil {
		slog.Error("chat: guild-create persist failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}

	c.mu.Lock()
	c.guildID = guild.ID
	c.mu.Unlock()
	s.addClient(c)

	name, _ := c.identity()
	ch := s.channels.getOrCreateGuildChannel(guild.ID, msg.Name)
	s.channels.join(ch, name, true)
	c.trackChannel(ch.id)

	return proto.WriteGenericResponse(status.Ok), true
}

func handleGuildInvite(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeGuildInvite(r)
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	guildID := c.guildID
	c.mu.Unlock()
	if guildID == 0 {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	guild, err := s.repo.GetGuild(ctx, guildID)
	if err != nil {
		slog.Error("chat: guild-invite lookup failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	if guild.Members[c.charID]&model.GuildRightInvite == 0 {
		return proto.WriteGenericResponse(status.InsufficientRights), true
	}
	target, ok := s.lookupClient(msg.TargetName)
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	name, _ := c.identity()
	s.invites.add(name, msg.TargetName, time.Now())
	if err := target.send(proto.WritePartyInviteIn(name)); err != nil {
		slog.Error("chat: guild-invite delivery failed", "err", err)
	}
	return proto.WriteGenericResponse(status.Ok), true
}

func handleGuildAccept(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	name, _ := c.identity()
	from, ok := s.invites.accept(name, time.Now())
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	inviter, ok := s.lookupClient(from)
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	inviter.mu.Lock()
	guildID := inviter.guildID
	inviter.mu.Unlock()
	if guildID == 0 {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	if err := s.repo.AddGuildMember(ctx, guildID, c.charID, 0); err != nil {
		slog.Error("chat: guild-accept persist failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}

	c.mu.Lock()
	c.guildID = guildID
	c.mu.Unlock()
	s.addClient(c)

	if ch, ok := s.channels.get(guildChannelID(guildID)); ok {
		s.channels.join(ch, name, false)
		c.trackChannel(ch.id)
	}
	return proto.WriteGenericResponse(status.Ok), true
}

func handleGuildList(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	c.mu.Lock()
	guildID := c.guildID
	c.mu.Unlock()
	if guildID == 0 {
		return proto.WriteGuildListResponse(nil), true
	}
	guild, err := s.repo.GetGuild(ctx, guildID)
	if err != nil {
		slog.Error("chat: guild-list lookup failed", "err", err)
		return proto.WriteGuildListResponse(nil), true
	}
	return proto.WriteGuildListResponse([]proto.GuildInfo{
		{ID: guild.ID, Name: guild.Name, Members: len(guild.Members)},
	}), true
}

func handleGuildPromote(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeGuildPromote(r)
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	guildID := c.guildID
	c.mu.Unlock()
	if guildID == 0 {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	guild, err := s.repo.GetGuild(ctx, guildID)
	if err != nil {
		slog.Error("chat: guild-promote lookup failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	if guild.Members[c.charID]&model.GuildRightPromote == 0 {
		return proto.WriteGenericResponse(status.InsufficientRights), true
	}
	targetID, err := s.repo.GetCharacterID(ctx, msg.TargetName)
	if err != nil {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	if err := s.repo.SetGuildMemberRights(ctx, guildID, targetID, model.GuildRight(msg.Rights)); err != nil {
		slog.Error("chat: guild-promote persist failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	return proto.WriteGenericResponse(status.Ok), true
}

func handleGuildKick(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeGuildKick(r)
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	guildID := c.guildID
	c.mu.Unlock()
	if guildID == 0 {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	guild, err := s.repo.GetGuild(ctx, guildID)
	if err != nil {
		slog.Error("chat: guild-kick lookup failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	if guild.Members[c.charID]&model.GuildRightKick == 0 {
		return proto.WriteGenericResponse(status.InsufficientRights), true
	}
	targetID, err := s.repo.GetCharacterID(ctx, msg.TargetName)
	if err != nil {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	if err := s.repo.RemoveGuildMember(ctx, guildID, targetID); err != nil {
		slog.Error("chat: guild-kick persist failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	removeFromGuild(s, guildID, msg.TargetName)
	return proto.WriteGenericResponse(status.Ok), true
}

func handleGuildQuit(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	c.mu.Lock()
	guildID := c.guildID
	c.mu.Unlock()
	if guildID == 0 {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	if err := s.repo.RemoveGuildMember(ctx, guildID, c.charID); err != nil {
		slog.Error("chat: guild-quit persist failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	name, _ := c.identity()
	removeFromGuild(s, guildID, name)
	return proto.WriteGenericResponse(status.Ok), true
}

// removeFromGuild drops name from the in-memory guild directory and its
// sticky guild channel, mirroring the storage-side removal.
func removeFromGuild(s *Server, guildID int64, name string) {
	s.mu.Lock()
	if set, ok := s.guildMembers[guildID]; ok {
		delete(set, name)
	}
	s.mu.Unlock()

	target, hasClient := s.lookupClient(name)
	if hasClient {
		target.mu.Lock()
		target.guildID = 0
		target.mu.Unlock()
	}
	if ch, ok := s.channels.get(guildChannelID(guildID)); ok {
		s.channels.leave(ch, name)
		if hasClient {
			target.untrackChannel(ch.id)
		}
	}
}

func handlePartyInvite(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodePartyInvite(r)
	if err != nil {
		return nil, false
	}
	target, ok := s.lookupClient(msg.TargetName)
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	name, _ := c.identity()
	s.invites.add(name, msg.TargetName, time.Now())
	if err := target.send(proto.WritePartyInviteIn(name)); err != nil {
		slog.Error("chat: party-invite delivery failed", "err", err)
	}
	return proto.WriteGenericResponse(status.Ok), true
}

func handlePartyAccept(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	name, _ := c.identity()
	from, ok := s.invites.accept(name, time.Now())
	if !ok {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	s.groups.form(from, name)
	return proto.WriteGenericResponse(status.Ok), true
}

func handlePartyQuit(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	name, _ := c.identity()
	s.groups.quit(name)
	return proto.WriteGenericResponse(status.Ok), true
}
