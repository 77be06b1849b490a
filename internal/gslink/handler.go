package gslink

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyrmwatch/worldserver/internal/gslink/proto"
	"github.com/wyrmwatch/worldserver/internal/model"
	"github.com/wyrmwatch/worldserver/internal/registry"
	"github.com/wyrmwatch/worldserver/internal/storage"
	"github.com/wyrmwatch/worldserver/internal/token"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

const (
	dbStatusOK       int16 = 0
	dbStatusMismatch int16 = 1
	pwStatusOK       int16 = 0
	pwStatusBad      int16 = 1

	maxMailAttachmentsFallback = 8
)

var dispatchTable = map[wire.MsgID]func(context.Context, *Server, *link, *wire.Reader) ([]byte, bool){
	proto.MsgRegister:         handleRegister,
	proto.MsgPlayerData:       handlePlayerData,
	proto.MsgPlayerSync:       handlePlayerSync,
	proto.MsgRedirect:         handleRedirect,
	proto.MsgPlayerReconnect:  handlePlayerReconnect,
	proto.MsgGetVarChr:        handleGetVarChr,
	proto.MsgSetVarChr:        handleSetVarChr,
	proto.MsgSetVarWorld:      handleSetVarWorld,
	proto.MsgSetVarMap:        handleSetVarMap,
	proto.MsgBanPlayer:        handleBanPlayer,
	proto.MsgChangeAccountLvl: handleChangeAccountLevel,
	proto.MsgStatistics:       handleStatistics,
	proto.MsgCreateItemOnMap:  handleCreateItemOnMap,
	proto.MsgRemoveItemOnMap:  handleRemoveItemOnMap,
	proto.MsgAnnounce:         handleAnnounce,
	proto.MsgTransaction:      handleTransaction,
	proto.MsgRequestPost:      handleRequestPost,
	proto.MsgStorePost:        handleStorePost,
}

func dispatch(ctx context.Context, s *Server, l *link, id wire.MsgID, r *wire.Reader) ([]byte, bool) {
	if l.handle() == "" && id != proto.MsgRegister {
		slog.Warn("gslink: message before registration", "id", id, "ip", l.ip)
		return nil, false
	}
	h, ok := dispatchTable[id]
	if !ok {
		slog.Warn("gslink: unknown message id", "id", id, "ip", l.ip)
		return nil, true
	}
	return h(ctx, s, l, r)
}

func playerEnterPayload(tok string, level model.AccessLevel, c *model.Character) []byte {
	return proto.WritePlayerEnter(proto.PlayerEnter{
		Token:        tok,
		CharID:       int32(c.ID),
		Name:         c.Name,
		AccountLevel: int32(level),
		Character:    c,
	})
}

func handleRegister(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeRegister(r)
	if err != nil {
		return nil, false
	}
	if l.handle() != "" {
		return nil, false // already registered on this connection
	}
	if msg.Password != s.cfg.NetPassword {
		slog.Warn("gslink: register with bad password", "name", msg.Name, "ip", l.ip)
		return proto.WriteRegisterResponse(proto.RegisterResponse{DBStatus: dbStatusOK, PwStatus: pwStatusBad}), false
	}

	dbStatus := dbStatusOK
	if msg.ItemDBVersion != s.cfg.ExpectedItemDBVersion {
		slog.Warn("gslink: item db version mismatch", "name", msg.Name, "got", msg.ItemDBVersion, "want", s.cfg.ExpectedItemDBVersion)
		dbStatus = dbStatusMismatch
	}

	l.markRegistered(msg.Name, msg.Address, msg.Port)
	s.addLink(l)
	slog.Info("gslink: game server registered", "name", msg.Name, "address", msg.Address, "port", msg.Port)

	worldVars, err := s.repo.GetAllWorldStateVars(ctx, model.ScopeWorld)
	if err != nil {
		slog.Error("gslink: loading world vars failed", "err", err)
	}
	if err := l.send(proto.WriteRegisterResponse(proto.RegisterResponse{
		DBStatus: dbStatus, PwStatus: pwStatusOK, WorldVars: worldVars,
	})); err != nil {
		return nil, false
	}

	for mapID, owner := range s.cfg.MapOwners {
		if owner != msg.Name {
			continue
		}
		if err := activateMap(ctx, s, l, mapID); err != nil {
			slog.Error("gslink: activating map failed", "mapId", mapID, "err", err)
		}
	}
	return nil, true
}

func activateMap(ctx context.Context, s *Server, l *link, mapID int16) error {
	vars, err := s.repo.GetAllWorldStateVars(ctx, int32(mapID))
	if err != nil {
		return err
	}
	floor, err := s.repo.GetFloorItemsFromMap(ctx, mapID)
	if err != nil {
		return err
	}
	s.registry.Claim(mapID, registry.Assignment[string]{
		Server: l.handle(), Address: l.address, Port: int(l.port),
	})
	return l.send(proto.WriteActiveMap(proto.ActiveMap{MapID: mapID, Vars: vars, FloorItems: floor}))
}

func handlePlayerData(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	hdr, err := proto.DecodePlayerData(r)
	if err != nil {
		return nil, false
	}
	snap, err := proto.DecodeCharacterSnapshot(r)
	if err != nil {
		return nil, false
	}
	c, err := s.repo.GetCharacterByID(ctx, int64(hdr.CharID))
	if err != nil {
		slog.Error("gslink: player data: character lookup failed", "charId", hdr.CharID, "err", err)
		return nil, true
	}
	applySnapshot(c, snap)
	if err := s.repo.UpdateCharacter(ctx, c); err != nil {
		slog.Error("gslink: player data persist failed", "charId", hdr.CharID, "err", err)
	}
	return nil, true
}

func applySnapshot(c *model.Character, snap proto.CharacterSnapshot) {
	c.Gender = model.Gender(snap.Gender)
	c.HairStyle, c.HairColor = snap.HairStyle, snap.HairColor
	c.AttrPoints, c.CorrPoints = snap.AttrPoints, snap.CorrPoints
	c.Attributes = snap.Attributes
	c.StatusEffect = snap.StatusEffect
	c.Position = model.Position{MapID: snap.MapID, X: snap.X, Y: snap.Y}
	c.KillCount = snap.KillCount
	c.Abilities = snap.Abilities
	c.QuestLog = snap.QuestLog
	c.Inventory = snap.Inventory
}

func handlePlayerSync(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	entries, err := proto.DecodePlayerSync(r)
	if err != nil {
		return nil, false
	}
	for _, e := range entries {
		var err error
		switch e.Kind {
		case proto.SyncPoints:
			err = s.repo.UpdateCharacterPoints(ctx, e.CharID, e.AttrPts, e.CorrPts)
		case proto.SyncAttribute:
			err = s.repo.UpdateAttribute(ctx, e.CharID, e.AttrID, e.Base, e.Modified)
		case proto.SyncOnline:
			err = s.repo.SetOnlineStatus(ctx, e.CharID, e.Online)
		}
		if err != nil {
			slog.Error("gslink: player sync entry failed", "charId", e.CharID, "kind", e.Kind, "err", err)
		}
	}
	return nil, true
}

func handleRedirect(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeRedirect(r)
	if err != nil {
		return nil, false
	}
	c, err := s.repo.GetCharacterByID(ctx, msg.CharID)
	if err != nil {
		return proto.WriteRedirectResponse(proto.RedirectResponse{Found: false}), true
	}
	assignment, ok := s.registry.Lookup(c.Position.MapID)
	if !ok {
		return proto.WriteRedirectResponse(proto.RedirectResponse{Found: false}), true
	}

	tok, err := token.New()
	if err != nil {
		slog.Error("gslink: redirect token generation failed", "err", err)
		return proto.WriteRedirectResponse(proto.RedirectResponse{Found: false}), true
	}

	var level model.AccessLevel
	if accID, err := s.repo.AccountIDForCharacter(ctx, msg.CharID); err == nil {
		if acc, err := s.repo.GetAccountByID(ctx, accID); err == nil {
			level = acc.Level
		}
	}

	s.mu.Lock()
	target, ok := s.links[assignment.Server]
	s.mu.Unlock()
	if ok {
		target.trackToken(tok)
		if err := target.send(playerEnterPayload(tok, level, c)); err != nil {
			slog.Error("gslink: redirect player-enter push failed", "err", err)
		}
	}

	return proto.WriteRedirectResponse(proto.RedirectResponse{
		Found: true, Token: tok, Address: assignment.Address, Port: int16(assignment.Port),
	}), true
}

func handlePlayerReconnect(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodePlayerReconnect(r)
	if err != nil {
		return nil, false
	}
	accID, err := s.repo.AccountIDForCharacter(ctx, msg.CharID)
	if err != nil {
		slog.Error("gslink: player reconnect account lookup failed", "charId", msg.CharID, "err", err)
		return nil, true
	}
	s.tokens.AddPendingConnect(msg.Token, accID)
	return nil, true
}

func handleGetVarChr(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	v, err := proto.DecodeGetVarChr(r)
	if err != nil {
		return nil, false
	}
	value, err := s.repo.GetQuestVar(ctx, v.CharID, v.Name)
	if err != nil {
		slog.Error("gslink: get-var-chr failed", "charId", v.CharID, "name", v.Name, "err", err)
	}
	return proto.WriteGetVarChrResponse(value), true
}

func handleSetVarChr(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	v, err := proto.DecodeSetVarChr(r)
	if err != nil {
		return nil, false
	}
	if err := s.repo.SetQuestVar(ctx, v.CharID, v.Name, v.Value); err != nil {
		slog.Error("gslink: set-var-chr failed", "charId", v.CharID, "name", v.Name, "err", err)
	}
	return nil, true
}

func handleSetVarWorld(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	v, err := proto.DecodeSetVarWorld(r)
	if err != nil {
		return nil, false
	}
	if err := s.repo.SetWorldStateVar(ctx, model.ScopeWorld, v.Name, v.Value); err != nil {
		slog.Error("gslink: set-var-world failed", "name", v.Name, "err", err)
		return nil, true
	}
	s.fanoutVarWorld(proto.WriteVarWorldFanout(v), l.handle())
	return nil, true
}

func handleSetVarMap(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	v, err := proto.DecodeSetVarMap(r)
	if err != nil {
		return nil, false
	}
	if err := s.repo.SetWorldStateVar(ctx, int32(v.MapID), v.Name, v.Value); err != nil {
		slog.Error("gslink: set-var-map failed", "mapId", v.MapID, "name", v.Name, "err", err)
	}
	return nil, true
}

func handleBanPlayer(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeBanPlayer(r)
	if err != nil {
		return nil, false
	}
	accID, err := s.repo.AccountIDForCharacter(ctx, msg.CharID)
	if err != nil {
		slog.Error("gslink: ban-player account lookup failed", "charId", msg.CharID, "err", err)
		return nil, true
	}
	until := time.Now().Add(time.Duration(msg.DurationMinutes) * time.Minute)
	if err := s.repo.BanAccount(ctx, accID, until); err != nil {
		slog.Error("gslink: ban-player persist failed", "accountId", accID, "err", err)
	}
	return nil, true
}

func handleChangeAccountLevel(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeChangeAccountLevel(r)
	if err != nil {
		return nil, false
	}
	accID, err := s.repo.AccountIDForCharacter(ctx, msg.CharID)
	if err != nil {
		slog.Error("gslink: change-account-level lookup failed", "charId", msg.CharID, "err", err)
		return nil, true
	}
	if err := s.repo.SetAccountLevel(ctx, accID, model.AccessLevel(msg.Level)); err != nil {
		slog.Error("gslink: change-account-level persist failed", "accountId", accID, "err", err)
	}
	return nil, true
}

func handleStatistics(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	entries, err := proto.DecodeStatistics(r)
	if err != nil {
		return nil, false
	}
	for _, e := range entries {
		s.registry.UpdateStats(e.MapID, int(e.EntityCount), int(e.MonsterCount), e.PlayerIDs)
	}
	return nil, true
}

func handleCreateItemOnMap(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	f, err := proto.DecodeFloorItemOp(r)
	if err != nil {
		return nil, false
	}
	if err := s.repo.AddFloorItem(ctx, model.FloorItem{MapID: f.MapID, ItemID: f.ItemID, Amount: f.Amount, X: f.X, Y: f.Y}); err != nil {
		slog.Error("gslink: create-item-on-map failed", "mapId", f.MapID, "err", err)
	}
	return nil, true
}

func handleRemoveItemOnMap(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	f, err := proto.DecodeFloorItemOp(r)
	if err != nil {
		return nil, false
	}
	if err := s.repo.RemoveFloorItem(ctx, model.FloorItem{MapID: f.MapID, ItemID: f.ItemID, Amount: f.Amount, X: f.X, Y: f.Y}); err != nil {
		slog.Error("gslink: remove-item-on-map failed", "mapId", f.MapID, "err", err)
	}
	return nil, true
}

func handleAnnounce(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeAnnounce(r)
	if err != nil {
		return nil, false
	}
	if s.chat != nil {
		if err := s.chat.Announce(ctx, msg.Message, msg.SenderName); err != nil {
			slog.Error("gslink: announce forward failed", "err", err)
		}
	}
	if err := s.repo.AddTransaction(ctx, model.Transaction{
		CharID: msg.SenderID, Action: model.TxAnnounce, Message: msg.Message, Timestamp: time.Now(),
	}); err != nil {
		slog.Error("gslink: announce audit failed", "err", err)
	}
	return nil, true
}

func handleTransaction(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeTransaction(r)
	if err != nil {
		return nil, false
	}
	if err := s.repo.AddTransaction(ctx, model.Transaction{
		CharID: msg.CharID, Action: model.TransactionAction(msg.Action), Message: msg.Message, Timestamp: time.Now(),
	}); err != nil {
		slog.Error("gslink: transaction append failed", "err", err)
	}
	return nil, true
}

func handleRequestPost(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeRequestPost(r)
	if err != nil {
		return nil, false
	}
	letters, err := s.repo.GetStoredPost(ctx, msg.CharID)
	if err != nil {
		slog.Error("gslink: request-post lookup failed", "charId", msg.CharID, "err", err)
		return proto.WriteRequestPostResponse(nil), true
	}
	for _, lt := range letters {
		if err := s.repo.DeletePost(ctx, lt.ID); err != nil {
			slog.Error("gslink: request-post clear failed", "letterId", lt.ID, "err", err)
		}
	}
	return proto.WriteRequestPostResponse(letters), true
}

func handleStorePost(ctx context.Context, s *Server, l *link, r *wire.Reader) ([]byte, bool) {
	msg, err := proto.DecodeStorePost(r)
	if err != nil {
		return nil, false
	}
	maxAttachments := s.cfg.MailMaxAttachments
	if maxAttachments <= 0 {
		maxAttachments = maxMailAttachmentsFallback
	}
	if len(msg.Attachments) > maxAttachments {
		slog.Warn("gslink: store-post exceeds attachment cap", "sender", msg.SenderID, "count", len(msg.Attachments))
		return nil, true
	}
	receiverID, err := s.repo.GetCharacterID(ctx, msg.ReceiverName)
	if err != nil {
		if !isNotFound(err) {
			slog.Error("gslink: store-post receiver lookup failed", "err", err)
		}
		return nil, true
	}
	attachments := make([]model.Attachment, len(msg.Attachments))
	copy(attachments, msg.Attachments)
	letter := &model.Letter{
		SenderID: msg.SenderID, ReceiverID: receiverID, Type: model.LetterPlayer,
		Text: msg.Text, Sent: time.Now(), Attachments: attachments,
	}
	if err := s.repo.StoreLetter(ctx, letter); err != nil {
		slog.Error("gslink: store-post persist failed", "err", err)
	}
	return nil, true
}

func isNotFound(err error) bool {
	return err == storage.ErrNotFound
}
