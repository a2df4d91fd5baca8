// Package session hosts one match: it admits players, counts down, drives their
// engines in real time and reports the verdict to the lobby.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"slices"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/config"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/game"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
)

const (
	protocolVersion  = 1
	gravityFixed     = "fixed"
	roleSpectator    = "SPECTATOR"
	joinQueueSize    = 16
	inboundQueueSize = 256
)

var errExpectHello = errors.New("expect HELLO")

// Reporter delivers the verdict to the lobby.
type Reporter interface {
	Do(ctx context.Context, action string, data any) (*protocol.Response, error)
}

// Runtime runs a single match. All match state belongs to the goroutine in Run;
// other goroutines only hand over connections and frames through channels.
type Runtime struct {
	logger   *slog.Logger
	conf     *config.Session
	factory  game.Factory
	reporter Reporter
	bagRule  string
	seed     int64

	joins   chan *peer
	inbound chan inbound

	joined     map[int64]*peer
	joinOrder  []*peer
	roster     []*peer
	spectators []*peer
	engines    []game.Engine
	rules      *Rules
	playing    bool
	tick       int64
}

// New prepares a runtime. reporter may be nil when no lobby should be told the result.
func New(logger *slog.Logger, conf *config.Session, factory game.Factory, bagRule string, reporter Reporter) *Runtime {
	seed := conf.Seed
	if seed == 0 {
		seed = rand.Int64N(1<<31) + 1 //nolint: gosec // piece order, not a secret
	}

	return &Runtime{
		logger:   logger.With("component", "session", "room_id", conf.RoomID),
		conf:     conf,
		factory:  factory,
		reporter: reporter,
		bagRule:  bagRule,
		seed:     seed,
		joins:    make(chan *peer, joinQueueSize),
		inbound:  make(chan inbound, inboundQueueSize),
		joined:   make(map[int64]*peer),
	}
}

func (that *Runtime) Seed() int64 {
	return that.seed
}

// Announce writes the handshake line the lobby's spawner waits for.
func Announce(w io.Writer, addr net.Addr) error {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("listener address %s is not tcp", addr)
	}

	line, err := json.Marshal(protocol.Listening{Type: protocol.TypeListening, Port: tcp.Port})
	if err != nil {
		return fmt.Errorf("failed to encode listening line: %w", err)
	}

	if _, err = fmt.Fprintln(w, string(line)); err != nil {
		return fmt.Errorf("failed to announce port: %w", err)
	}

	return nil
}

// Run plays the match on listener and returns its verdict.
func (that *Runtime) Run(ctx context.Context, listener net.Listener) (*entity.WinDecision, error) {
	log := that.logger.With("method", "Run")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
	})
	defer stop()

	defer listener.Close()
	defer that.closeAll()

	log.Info("waiting for players", "addr", listener.Addr().String(), "expected", that.conf.Users, "mode", that.conf.Mode, "seed", that.seed)

	go that.accept(ctx, listener)

	if err := that.awaitPlayers(ctx); err != nil {
		return nil, err
	}

	that.welcome()

	if err := that.countdown(ctx); err != nil {
		return nil, err
	}

	decision, err := that.play(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("match over", "winner", decision.Winner, "reason", decision.Reason, "scores", decision.Scores)

	that.finish(ctx, decision)

	return decision, nil
}

func (that *Runtime) accept(ctx context.Context, listener net.Listener) {
	log := that.logger.With("method", "accept")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() == nil {
				log.Error("failed to accept", "error", err)
			}

			return
		}

		go that.handshake(ctx, conn)
	}
}

// handshake waits for HELLO and queues the connection for the main loop.
func (that *Runtime) handshake(ctx context.Context, conn net.Conn) {
	log := that.logger.With("method", "handshake", "remote", conn.RemoteAddr().String())

	_ = conn.SetReadDeadline(time.Now().Add(that.conf.HelloTimeout))

	var hello protocol.Hello

	err := protocol.Recv(conn, &hello)
	if err == nil && hello.Type != protocol.TypeHello {
		err = errExpectHello
	}

	if err != nil {
		log.Info("connection dropped before hello", "error", err)

		_ = conn.SetWriteDeadline(time.Now().Add(that.conf.WriteTimeout))
		_ = protocol.Send(conn, protocol.NewError(errExpectHello.Error()))
		_ = conn.Close()

		return
	}

	_ = conn.SetReadDeadline(time.Time{})

	select {
	case that.joins <- newPeer(conn, &hello, that.conf.WriteTimeout):
	case <-ctx.Done():
		_ = conn.Close()
	}
}

// awaitPlayers is the join barrier. When it times out the roster shrinks to
// whoever made it.
func (that *Runtime) awaitPlayers(ctx context.Context) error {
	log := that.logger.With("method", "awaitPlayers")

	timer := time.NewTimer(that.conf.JoinTimeout)
	defer timer.Stop()

barrier:
	for !that.allExpectedJoined() {
		select {
		case p := <-that.joins:
			that.admitEarly(ctx, p)
		case ev := <-that.inbound:
			that.onInbound(ev)
		case <-timer.C:
			log.Warn("join barrier expired", "error", apperror.ErrJoinTimeout, "joined", len(that.joined), "expected", len(that.conf.Users))
			break barrier
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return that.buildRoster()
}

func (that *Runtime) allExpectedJoined() bool {
	if len(that.conf.Users) == 0 {
		return false
	}

	for _, userID := range that.conf.Users {
		if _, ok := that.joined[userID]; !ok {
			return false
		}
	}

	return true
}

func (that *Runtime) admitEarly(ctx context.Context, p *peer) {
	log := that.logger.With("method", "admitEarly", "user_id", p.userID)

	if p.role == protocol.RoleSpectator {
		that.spectators = append(that.spectators, p)
		go p.read(ctx, that.inbound)

		log.Info("spectator joined")

		return
	}

	if _, ok := that.joined[p.userID]; ok {
		that.reject(p, "duplicate user")
		return
	}

	if !slices.Contains(that.conf.Users, p.userID) {
		log.Warn("player outside the expected roster accepted")
	}

	that.joined[p.userID] = p
	that.joinOrder = append(that.joinOrder, p)

	go p.read(ctx, that.inbound)

	log.Info("player joined")
}

// admitLate handles a connection that arrives after the roster is fixed.
func (that *Runtime) admitLate(ctx context.Context, p *peer) {
	log := that.logger.With("method", "admitLate", "user_id", p.userID)

	if p.role == protocol.RolePlayer && slices.ContainsFunc(that.roster, func(member *peer) bool {
		return member.userID == p.userID
	}) {
		that.reject(p, "duplicate user")
		return
	}

	p.role = protocol.RoleSpectator
	that.spectators = append(that.spectators, p)
	that.deliver(p, that.welcomeFor(p))

	go p.read(ctx, that.inbound)

	log.Info("late arrival admitted as spectator")
}

func (that *Runtime) reject(p *peer, message string) {
	that.logger.Warn("connection rejected", "user_id", p.userID, "reason", message)

	_ = p.send(protocol.NewError(message))
	p.close()
}

// buildRoster fixes sides: expected players in expected order, then unexpected
// ones in join order. Engines and rules are sized to the result.
func (that *Runtime) buildRoster() error {
	log := that.logger.With("method", "buildRoster")

	roster := make([]*peer, 0, len(that.joinOrder))

	for _, userID := range that.conf.Users {
		if p, ok := that.joined[userID]; ok && !slices.Contains(roster, p) {
			roster = append(roster, p)
		}
	}

	for _, p := range that.joinOrder {
		if !slices.Contains(roster, p) {
			roster = append(roster, p)
		}
	}

	if len(roster) == 0 {
		return apperror.ErrNoPlayers
	}

	users := make([]int64, len(roster))
	that.engines = make([]game.Engine, len(roster))

	for side, p := range roster {
		p.side = side
		users[side] = p.userID
		that.engines[side] = that.factory(that.seed)
	}

	that.roster = roster
	that.rules = NewRules(that.conf, users)

	if len(roster) != len(that.conf.Users) {
		log.Warn("roster re-derived", "expected", that.conf.Users, "players", users)
	}

	return nil
}

func (that *Runtime) users() []int64 {
	users := make([]int64, len(that.roster))
	for side, p := range that.roster {
		users[side] = p.userID
	}

	return users
}

func (that *Runtime) gravityPlan() protocol.GravityPlan {
	return protocol.GravityPlan{Mode: gravityFixed, DropMS: that.conf.DropMS}
}

func (that *Runtime) welcomeFor(p *peer) protocol.Welcome {
	welcome := protocol.Welcome{
		Type:        protocol.TypeWelcome,
		Version:     protocolVersion,
		Role:        roleSpectator,
		Seed:        that.seed,
		BagRule:     that.bagRule,
		GravityPlan: that.gravityPlan(),
	}

	if p.isPlayer() {
		welcome.Role = Label(p.side)
		welcome.Side = p.side
	}

	return welcome
}

func (that *Runtime) welcome() {
	for _, p := range that.peers() {
		that.deliver(p, that.welcomeFor(p))
	}
}

func (that *Runtime) countdown(ctx context.Context) error {
	for seconds := that.conf.CountdownSteps; seconds > 0; seconds-- {
		that.broadcast(protocol.Countdown{Type: protocol.TypeCountdown, Seconds: seconds})

		if err := that.pump(ctx, that.conf.CountdownStep); err != nil {
			return err
		}
	}

	that.broadcast(protocol.Envelope{Type: protocol.TypeStart})
	that.rules.Start(time.Now())

	return nil
}

// pump keeps serving joins and frames for d.
func (that *Runtime) pump(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case p := <-that.joins:
			that.admitLate(ctx, p)
		case ev := <-that.inbound:
			that.onInbound(ev)
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (that *Runtime) play(ctx context.Context) (*entity.WinDecision, error) {
	ticker := time.NewTicker(that.conf.LoopInterval)
	defer ticker.Stop()

	dropEvery := time.Duration(that.conf.DropMS) * time.Millisecond
	lastDrop, lastSnapshot := time.Now(), time.Time{}

	that.playing = true
	defer func() {
		that.playing = false
	}()

	for {
		select {
		case p := <-that.joins:
			that.admitLate(ctx, p)
		case ev := <-that.inbound:
			that.onInbound(ev)
		case now := <-ticker.C:
			if now.Sub(lastDrop) >= dropEvery {
				for _, engine := range that.engines {
					if !engine.IsTerminal() {
						engine.Tick()
					}
				}

				lastDrop = now
			}

			if now.Sub(lastSnapshot) >= that.conf.SnapshotInterval {
				that.broadcastSnapshots(now)
				lastSnapshot = now
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if decision, over := that.rules.Evaluate(time.Now(), that.engines); over {
			return decision, nil
		}
	}
}

func (that *Runtime) onInbound(ev inbound) {
	log := that.logger.With("method", "onInbound", "user_id", ev.peer.userID)
	p := ev.peer

	if ev.err != nil {
		that.drop(p, ev.err)
		return
	}

	var envelope protocol.Envelope
	if err := protocol.Decode(ev.body, &envelope); err != nil {
		log.Warn("ignoring malformed frame", "error", err)
		return
	}

	switch envelope.Type {
	case protocol.TypeInput:
		if !that.playing || !p.isPlayer() {
			return
		}

		var input protocol.Input
		if err := protocol.Decode(ev.body, &input); err != nil {
			log.Warn("ignoring malformed input", "error", err)
			return
		}

		that.engines[p.side].ApplyInput(input.Action)
	case protocol.TypeChat, protocol.TypePlugin:
		for _, other := range that.peers() {
			if other.alive {
				if err := other.sendRaw(ev.body); err != nil {
					other.close()
				}
			}
		}
	default:
		log.Debug("ignoring frame", "type", envelope.Type)
	}
}

// drop handles a peer whose connection failed. A player in a running roster forfeits.
func (that *Runtime) drop(p *peer, cause error) {
	log := that.logger.With("method", "drop", "user_id", p.userID)

	p.close()

	switch {
	case p.isPlayer():
		if !that.rules.forfeited[p.side] {
			that.engines[p.side].Forfeit()
			that.rules.Forfeit(p.side)

			log.Info("player disconnected, forfeiting", "side", p.side, "error", cause)
		}
	case p.role == protocol.RolePlayer && that.joined[p.userID] == p:
		delete(that.joined, p.userID)
		that.joinOrder = slices.DeleteFunc(that.joinOrder, func(other *peer) bool { return other == p })

		log.Info("player left before the match", "error", cause)
	default:
		that.spectators = slices.DeleteFunc(that.spectators, func(other *peer) bool { return other == p })

		log.Debug("spectator left", "error", cause)
	}
}

// peers lists every connection frames go to; before the roster exists that is
// whoever has joined so far.
func (that *Runtime) peers() []*peer {
	players := that.roster
	if players == nil {
		players = that.joinOrder
	}

	peers := make([]*peer, 0, len(players)+len(that.spectators))
	peers = append(peers, players...)

	return append(peers, that.spectators...)
}

func (that *Runtime) broadcast(v any) {
	body, err := protocol.Encode(v)
	if err != nil {
		that.logger.Error("failed to encode broadcast", "error", err)
		return
	}

	for _, p := range that.peers() {
		if p.alive {
			if err = p.sendRaw(body); err != nil {
				p.close()
			}
		}
	}
}

// deliver sends v to p. A failed write closes p so its reader reports the loss.
func (that *Runtime) deliver(p *peer, v any) {
	if !p.alive {
		return
	}

	if err := p.send(v); err != nil {
		that.logger.Debug("write failed", "user_id", p.userID, "error", err)
		p.close()
	}
}

func (that *Runtime) broadcastSnapshots(now time.Time) {
	that.tick++

	compact := make([]any, len(that.engines))
	for side, engine := range that.engines {
		compact[side] = engine.Snapshot(true)
	}

	for side, p := range that.roster {
		snapshot := protocol.Snapshot{
			Type:        protocol.TypeSnapshot,
			Tick:        that.tick,
			UserID:      p.userID,
			Side:        side,
			Self:        that.engines[side].Snapshot(false),
			Opponents:   make([]protocol.OpponentView, 0, len(that.roster)-1),
			GravityPlan: that.gravityPlan(),
			At:          now.UnixMilli(),
		}

		for other, opponent := range that.roster {
			if other == side {
				continue
			}

			snapshot.Opponents = append(snapshot.Opponents, protocol.OpponentView{
				UserID: opponent.userID,
				Side:   other,
				Alive:  !that.engines[other].IsTerminal(),
				State:  compact[other],
			})
		}

		body, err := protocol.Encode(snapshot)
		if err != nil {
			that.logger.Error("failed to encode snapshot", "side", side, "error", err)
			continue
		}

		recipients := []*peer{p}
		if side == 0 {
			recipients = append(recipients, that.spectators...)
		}

		for _, recipient := range recipients {
			if recipient.alive {
				if err = recipient.sendRaw(body); err != nil {
					recipient.close()
				}
			}
		}
	}
}

// finish announces the verdict, reports it and lingers for the grace period.
func (that *Runtime) finish(ctx context.Context, decision *entity.WinDecision) {
	log := that.logger.With("method", "finish")

	that.broadcastSnapshots(time.Now())
	that.broadcast(protocol.GameOver{
		Type:         protocol.TypeGameOver,
		Winner:       decision.Winner,
		WinnerUserID: decision.WinnerUserID,
		Reason:       decision.Reason,
		Score:        decision.Scores,
		Lines:        decision.Lines,
	})

	that.report(ctx, decision)

	if err := that.pump(ctx, that.conf.Grace); err != nil {
		log.Debug("grace period cut short", "error", err)
	}
}

func (that *Runtime) report(ctx context.Context, decision *entity.WinDecision) {
	log := that.logger.With("method", "report")

	if that.reporter == nil {
		return
	}

	result := entity.MatchResult{
		RoomID:  that.conf.RoomID,
		Users:   that.users(),
		Results: *decision,
	}

	resp, err := that.reporter.Do(ctx, protocol.ActionMatchResult, result)
	if err != nil {
		log.Warn("failed to report result to lobby", "error", err)
		return
	}

	if !resp.IsSuccess() {
		log.Warn("lobby refused result", "message", resp.Message)
		return
	}

	log.Info("result reported")
}

func (that *Runtime) closeAll() {
	for _, p := range that.peers() {
		if p.alive {
			p.close()
		}
	}

	for _, p := range that.joinOrder {
		if p.alive {
			p.close()
		}
	}

	for {
		select {
		case p := <-that.joins:
			p.close()
		default:
			return
		}
	}
}
