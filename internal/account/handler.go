package account

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/wyrmwatch/worldserver/internal/account/proto"
	"github.com/wyrmwatch/worldserver/internal/account/status"
	"github.com/wyrmwatch/worldserver/internal/model"
	"github.com/wyrmwatch/worldserver/internal/storage"
	"github.com/wyrmwatch/worldserver/internal/token"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

const minAccountVersion = 1

// saltLength matches scenario S1 in spec.md §8: "reply salt=S (4 bytes)".
const saltLength = 4

// dispatch routes one decoded message to its handler. Replaces the
// teacher's switch-on-opcode Handler.HandlePacket with an explicit table
// keyed by message id, per spec.md §9's dispatch-table redesign flag.
var dispatchTable = map[wire.MsgID]func(context.Context, *Server, *Client, *wire.Reader) ([]byte, bool){
	proto.MsgLoginRandTrigger:    handleLoginRandTrigger,
	proto.MsgLogin:               handleLogin,
	proto.MsgLogout:              handleLogout,
	proto.MsgReconnect:           handleReconnect,
	proto.MsgRegister:            handleRegister,
	proto.MsgUnregister:          handleUnregister,
	proto.MsgEmailChange:         handleEmailChange,
	proto.MsgPasswordChange:      handlePasswordChange,
	proto.MsgCharCreate:          handleCharCreate,
	proto.MsgCharSelect:          handleCharSelect,
	proto.MsgCharDelete:          handleCharDelete,
	proto.MsgRequestRegisterInfo: handleRequestRegisterInfo,
}

func dispatch(ctx context.Context, s *Server, c *Client, id wire.MsgID, r *wire.Reader) ([]byte, bool) {
	h, ok := dispatchTable[id]
	if !ok {
		slog.Warn("account: unknown message id", "id", id, "ip", c.ip)
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	return h(ctx, s, c, r)
}

func handleLoginRandTrigger(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateLogin {
		return nil, true
	}
	msg, err := proto.DecodeLoginRandTrigger(r)
	if err != nil {
		return nil, false
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		slog.Error("account: generating salt failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	c.stashPending(msg.Username, salt)
	return proto.WriteLoginRandTriggerResponse(salt), true
}

func handleLogin(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateLogin {
		return nil, true
	}
	msg, err := proto.DecodeLogin(r)
	if err != nil {
		return nil, false
	}
	if msg.Version < minAccountVersion {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.InvalidVersion}), true
	}
	if !s.limiter.Allow(c.ip, time.Now()) {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.InvalidTime}), true
	}

	pendingUser, salt := c.pending()
	if pendingUser == "" || pendingUser != msg.Username {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.NoLogin}), true
	}

	acc, err := s.repo.GetAccountByUsername(ctx, msg.Username)
	if errors.Is(err, storage.ErrNotFound) {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.PasswordBad}), true
	}
	if err != nil {
		slog.Error("account: login lookup failed", "err", err, "user", msg.Username)
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.Failure}), true
	}

	if !verifyLogin(acc.LoginVerifier, salt, msg.SaltedHash) {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.PasswordBad}), true
	}
	if acc.Level == model.AccessBanned {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.Banned}), true
	}
	if s.cfg.MaxClients > 0 && s.clientsNow > s.cfg.MaxClients {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.ServerFull}), true
	}

	if err := s.repo.UpdateLastLogin(ctx, acc.ID, time.Now()); err != nil {
		slog.Error("account: update last login failed", "err", err, "user", msg.Username)
	}
	c.bindAccount(acc)
	slog.Info("account: login ok", "user", msg.Username, "ip", c.ip)

	return proto.WriteLoginResponse(proto.LoginResponse{
		Status:     status.Ok,
		UpdateHost: s.cfg.DefaultUpdateHost,
		DataURL:    s.cfg.ClientDataURL,
		MaxChars:   int8(s.cfg.Character.MaxCharacters),
		Characters: rosterRecords(acc),
	}), true
}

func handleLogout(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	switch c.State() {
	case StateConnected:
		c.unbindAccount()
	case StateQueued:
		// the client gave up waiting for a reconnect match; nothing to
		// deposit-delete since we don't track which token it used here.
		c.setState(StateLogin)
	}
	return proto.WriteGenericResponse(status.Ok), true
}

func handleReconnect(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateLogin {
		return nil, true
	}
	msg, err := proto.DecodeReconnect(r)
	if err != nil {
		return nil, false
	}
	c.setState(StateQueued)
	s.tokens.AddPendingClient(msg.Token, c)
	return nil, true
}

func handleRegister(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateLogin {
		return nil, true
	}
	msg, err := proto.DecodeRegister(r)
	if err != nil {
		return nil, false
	}
	if !s.cfg.AllowRegister {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.InsufficientRights}), true
	}
	if msg.Version < minAccountVersion {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.InvalidVersion}), true
	}
	if !validUsername(msg.Username, s.cfg.Character.MinNameLength, s.cfg.Character.MaxNameLength) {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.InvalidArgument}), true
	}
	if !validEmail(msg.Email) {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.InvalidArgument}), true
	}

	exists, err := s.repo.DoesUsernameExist(ctx, msg.Username)
	if err != nil {
		slog.Error("account: register username check failed", "err", err)
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.Failure}), true
	}
	if exists {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.ExistsUsername}), true
	}

	emailHash := hashEmail(msg.Email)
	emailTaken, err := s.repo.DoesEmailAddressExist(ctx, emailHash)
	if err != nil {
		slog.Error("account: register email check failed", "err", err)
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.Failure}), true
	}
	if emailTaken {
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.ExistsEmail}), true
	}

	bcryptHash, verifier, err := deriveCredentials(msg.PwHash)
	if err != nil {
		slog.Error("account: register credential derivation failed", "err", err)
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.Failure}), true
	}

	now := time.Now()
	acc := &model.Account{
		Username:         msg.Username,
		PasswordHash:     bcryptHash,
		LoginVerifier:    verifier,
		EmailHash:        emailHash,
		RegistrationDate: now,
		LastLogin:        now,
	}
	if err := s.repo.AddAccount(ctx, acc); err != nil {
		slog.Error("account: register persist failed", "err", err)
		return proto.WriteLoginResponse(proto.LoginResponse{Status: status.Failure}), true
	}

	c.bindAccount(acc)
	slog.Info("account: registered", "user", msg.Username, "ip", c.ip)
	return proto.WriteLoginResponse(proto.LoginResponse{
		Status:     status.Ok,
		UpdateHost: s.cfg.DefaultUpdateHost,
		DataURL:    s.cfg.ClientDataURL,
		MaxChars:   int8(s.cfg.Character.MaxCharacters),
	}), true
}

func handleUnregister(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateConnected {
		return nil, true
	}
	msg, err := proto.DecodeUnregister(r)
	if err != nil {
		return nil, false
	}
	acc := c.Account()
	if acc == nil || acc.Username != msg.Username || !verifyPassword(acc.PasswordHash, msg.PwHash) {
		return proto.WriteGenericResponse(status.PasswordBad), true
	}
	if err := s.repo.DelAccount(ctx, acc.ID); err != nil {
		slog.Error("account: unregister failed", "err", err, "user", acc.Username)
		return proto.WriteGenericResponse(status.Failure), true
	}
	c.unbindAccount()
	slog.Info("account: unregistered", "user", msg.Username)
	return proto.WriteGenericResponse(status.Ok), true
}

func handleEmailChange(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateConnected {
		return nil, true
	}
	msg, err := proto.DecodeEmailChange(r)
	if err != nil {
		return nil, false
	}
	if !validEmail(msg.Email) {
		return proto.WriteGenericResponse(status.InvalidArgument), true
	}
	acc := c.Account()
	emailHash := hashEmail(msg.Email)
	exists, err := s.repo.DoesEmailAddressExist(ctx, emailHash)
	if err != nil {
		slog.Error("account: email change check failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	if exists {
		return proto.WriteGenericResponse(status.EmailExists), true
	}
	if err := s.repo.UpdateEmailHash(ctx, acc.ID, emailHash); err != nil {
		slog.Error("account: email change persist failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	acc.EmailHash = emailHash
	return proto.WriteGenericResponse(status.Ok), true
}

func handlePasswordChange(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateConnected {
		return nil, true
	}
	msg, err := proto.DecodePasswordChange(r)
	if err != nil {
		return nil, false
	}
	acc := c.Account()
	if !verifyPassword(acc.PasswordHash, msg.OldHash) {
		return proto.WriteGenericResponse(status.PasswordBad), true
	}
	bcryptHash, verifier, err := deriveCredentials(msg.NewHash)
	if err != nil {
		slog.Error("account: password change derivation failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	if err := s.repo.UpdatePassword(ctx, acc.ID, bcryptHash, verifier); err != nil {
		slog.Error("account: password change persist failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	acc.PasswordHash = bcryptHash
	acc.LoginVerifier = verifier
	return proto.WriteGenericResponse(status.PasswordOk), true
}

func handleCharCreate(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateConnected {
		return nil, true
	}
	msg, err := proto.DecodeCharCreate(r)
	if err != nil {
		return nil, false
	}
	acc := c.Account()
	rules := s.cfg.Character

	if !validUsername(msg.Name, rules.MinNameLength, rules.MaxNameLength) {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.InvalidArgument}), true
	}
	if int(msg.HairStyle) < 0 || int(msg.HairStyle) >= rules.NumHairStyles {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.InvalidHairstyle}), true
	}
	if int(msg.HairColor) < 0 || int(msg.HairColor) >= rules.NumHairColors {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.InvalidHaircolor}), true
	}
	if int(msg.Gender) < 0 || int(msg.Gender) >= rules.NumGenders {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.InvalidGender}), true
	}
	slot := int(msg.Slot)
	if slot < 1 || slot > rules.MaxCharacters {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.InvalidSlot}), true
	}
	if _, taken := acc.Characters[slot]; taken {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.InvalidSlot}), true
	}
	if len(acc.Characters) >= rules.MaxCharacters {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.TooManyChars}), true
	}
	if len(msg.Attrs) != len(rules.ModifiableAttrs) {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.AttributesOutOfRange}), true
	}

	var sum float64
	attrs := make(map[int16]model.Attribute, len(rules.DefaultAttrs))
	for id, v := range rules.DefaultAttrs {
		attrs[id] = model.Attribute{Base: v, Modified: v}
	}
	for i, attrID := range rules.ModifiableAttrs {
		v := float64(msg.Attrs[i])
		if v < rules.AttrMin || v > rules.AttrMax {
			return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.AttributesOutOfRange}), true
		}
		attrs[attrID] = model.Attribute{Base: v, Modified: v}
		sum += v
	}
	if sum < rules.StartingPoints {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.AttributesTooLow}), true
	}
	if sum > rules.StartingPoints {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.AttributesTooHigh}), true
	}

	nameTaken, err := s.repo.DoesCharacterNameExist(ctx, msg.Name)
	if err != nil {
		slog.Error("account: char name check failed", "err", err)
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.Failure}), true
	}
	if nameTaken {
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.ExistsCharName}), true
	}

	ch := &model.Character{
		AccountID:  acc.ID,
		Name:       msg.Name,
		Slot:       slot,
		Gender:     model.Gender(msg.Gender),
		HairStyle:  msg.HairStyle,
		HairColor:  msg.HairColor,
		Position:   model.Position{MapID: rules.StartMap, X: rules.StartX, Y: rules.StartY},
		Attributes: attrs,
	}
	acc.Characters[slot] = ch
	if err := s.repo.FlushAccount(ctx, acc); err != nil {
		delete(acc.Characters, slot)
		slog.Error("account: char create flush failed", "err", err)
		return proto.WriteCharCreateResponse(proto.CharCreateResponse{Status: status.Failure}), true
	}

	if err := s.repo.AddTransaction(ctx, model.Transaction{
		CharID: ch.ID, Action: model.TxCharCreate, Message: ch.Name, Timestamp: time.Now(),
	}); err != nil {
		slog.Error("account: char create audit failed", "err", err)
	}

	slog.Info("account: character created", "user", acc.Username, "name", ch.Name, "slot", slot)
	return proto.WriteCharCreateResponse(proto.CharCreateResponse{
		Status:    status.Ok,
		Character: proto.CharacterRecordFromModel(ch),
	}), true
}

// handleCharSelect looks up the game server owning the character's map,
// mints a token, and pushes the handoff to the game link and chat
// notifier; tests exercise it with fakes passed to NewServer.
func handleCharSelect(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateConnected {
		return nil, true
	}
	msg, err := proto.DecodeCharSelect(r)
	if err != nil {
		return nil, false
	}
	acc := c.Account()
	slot := int(msg.Slot)
	ch, ok := acc.Characters[slot]
	if !ok {
		return proto.WriteCharSelectResponse(proto.CharSelectResponse{Status: status.InvalidSlot}), true
	}

	assignment, ok := s.registry.Lookup(ch.Position.MapID)
	if !ok {
		return proto.WriteCharSelectResponse(proto.CharSelectResponse{Status: status.Failure}), true
	}

	tok, err := token.New()
	if err != nil {
		slog.Error("account: token generation failed", "err", err)
		return proto.WriteCharSelectResponse(proto.CharSelectResponse{Status: status.Failure}), true
	}

	if s.gameLink != nil {
		if err := s.gameLink.PlayerEnter(ctx, assignment.Server, tok, acc.Level, ch); err != nil {
			slog.Error("account: player enter push failed", "err", err)
			return proto.WriteCharSelectResponse(proto.CharSelectResponse{Status: status.Failure}), true
		}
	}
	var chatAddr string
	var chatPort int16
	if s.chat != nil {
		if err := s.chat.PendingConnect(ctx, tok, ch.Name, acc.Level); err != nil {
			slog.Error("account: chat pending-connect push failed", "err", err)
		} else {
			chatAddr, chatPort = s.cfg.ChatAddress, s.cfg.ChatPort
		}
	}

	if err := s.repo.AddTransaction(ctx, model.Transaction{
		CharID: ch.ID, Action: model.TxCharSelected, Message: ch.Name, Timestamp: time.Now(),
	}); err != nil {
		slog.Error("account: char select audit failed", "err", err)
	}

	slog.Info("account: character selected", "user", acc.Username, "name", ch.Name)
	return proto.WriteCharSelectResponse(proto.CharSelectResponse{
		Status:      status.Ok,
		Token:       tok,
		GameAddress: assignment.Address,
		GamePort:    int16(assignment.Port),
		ChatAddress: chatAddr,
		ChatPort:    chatPort,
	}), true
}

func handleCharDelete(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if c.State() != StateConnected {
		return nil, true
	}
	msg, err := proto.DecodeCharDelete(r)
	if err != nil {
		return nil, false
	}
	acc := c.Account()
	slot := int(msg.Slot)
	ch, ok := acc.Characters[slot]
	if !ok {
		return proto.WriteGenericResponse(status.InvalidSlot), true
	}

	now := time.Now()
	if err := s.repo.MarkCharacterDeleted(ctx, ch.ID, now.Unix()); err != nil {
		slog.Error("account: char delete failed", "err", err)
		return proto.WriteGenericResponse(status.Failure), true
	}
	delete(acc.Characters, slot)

	if err := s.repo.AddTransaction(ctx, model.Transaction{
		CharID: ch.ID, Action: model.TxCharDelete, Message: ch.Name, Timestamp: now,
	}); err != nil {
		slog.Error("account: char delete audit failed", "err", err)
	}

	slog.Info("account: character soft-deleted", "user", acc.Username, "name", ch.Name)
	return proto.WriteGenericResponse(status.Ok), true
}

func handleRequestRegisterInfo(ctx context.Context, s *Server, c *Client, r *wire.Reader) ([]byte, bool) {
	if !s.cfg.AllowRegister {
		return proto.WriteRequestRegisterInfoResponse(proto.RequestRegisterInfoResponse{
			Status:     status.InsufficientRights,
			DenyReason: s.cfg.DenyRegisterReason,
		}), true
	}
	return proto.WriteRequestRegisterInfoResponse(proto.RequestRegisterInfoResponse{
		Status:        status.Ok,
		MinNameLength: int8(s.cfg.Character.MinNameLength),
		MaxNameLength: int8(s.cfg.Character.MaxNameLength),
		CaptchaURL:    s.cfg.CaptchaURL,
	}), true
}

// validUsername applies the content filter named throughout spec.md §4.3/
// §4.5: length bounds and no stray quotes.
func validUsername(name string, minLen, maxLen int) bool {
	if len(name) < minLen || len(name) > maxLen {
		return false
	}
	if strings.ContainsAny(name, `"'`) {
		return false
	}
	return true
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.Contains(email[at+1:], "@")
}
