package chat

import (
	"go.uber.org/zap"

	"github.com/y4my4my4m/nexus-server-sub000/logger"
	"github.com/y4my4my4m/nexus-server-sub000/protocol"
)

// Mirror republishes fan-out traffic to other gateway nodes. Nil on
// single-node deployments.
type Mirror interface {
	MirrorAll(payload []byte)
	MirrorUsers(userIDs []string, payload []byte)
}

// Fanout delivers one logical event to the right subset of connected
// peers. All primitives are best effort: a failed enqueue to one peer is
// counted and logged, never aborts delivery to the rest.
type Fanout struct {
	reg    *Registry
	mirror Mirror
}

func NewFanout(reg *Registry) *Fanout {
	return &Fanout{reg: reg}
}

// SetMirror attaches the cross-node relay. Call before serving traffic.
func (f *Fanout) SetMirror(m Mirror) { f.mirror = m }

// BroadcastAll reaches every authenticated peer.
func (f *Fanout) BroadcastAll(msg protocol.ServerMessage) {
	payload, err := protocol.EncodeServer(msg)
	if err != nil {
		logger.Error("encode broadcast", zap.Error(err))
		return
	}
	f.DeliverAll(payload)
	if f.mirror != nil {
		f.mirror.MirrorAll(payload)
	}
}

// BroadcastUsers reaches every session of every user in userIDs.
func (f *Fanout) BroadcastUsers(userIDs []string, msg protocol.ServerMessage) {
	if len(userIDs) == 0 {
		return
	}
	payload, err := protocol.EncodeServer(msg)
	if err != nil {
		logger.Error("encode broadcast", zap.Error(err))
		return
	}
	f.DeliverUsers(userIDs, payload)
	if f.mirror != nil {
		f.mirror.MirrorUsers(userIDs, payload)
	}
}

// BroadcastChannel delivers to the supplied member list. Membership is
// never cached here; callers re-read it from the persistence gateway for
// every fan-out.
func (f *Fanout) BroadcastChannel(memberIDs []string, msg protocol.ServerMessage) {
	f.BroadcastUsers(memberIDs, msg)
}

// SendToUser delivers to every live session of userID on this node and
// reports whether at least one received it. The result drives the "else
// persist a notification" branch in domain services; it reflects local
// presence only.
func (f *Fanout) SendToUser(userID string, msg protocol.ServerMessage) bool {
	payload, err := protocol.EncodeServer(msg)
	if err != nil {
		logger.Error("encode send", zap.Error(err))
		return false
	}
	delivered := f.DeliverUsers([]string{userID}, payload)
	if f.mirror != nil {
		f.mirror.MirrorUsers([]string{userID}, payload)
	}
	return delivered > 0
}

// SendToPeer enqueues a response for one connection (router replies).
func (f *Fanout) SendToPeer(p *Peer, msg protocol.ServerMessage) bool {
	if p == nil {
		return false
	}
	payload, err := protocol.EncodeServer(msg)
	if err != nil {
		logger.Error("encode reply", zap.Error(err))
		return false
	}
	if !p.Enqueue(payload) {
		logger.Warn("outbound queue overflow, dropping peer", zap.String("conn", p.ConnID()))
		return false
	}
	return true
}

// DeliverAll is the local-only half of BroadcastAll; the relay calls it
// for events originating on other nodes.
func (f *Fanout) DeliverAll(payload []byte) int {
	delivered := 0
	dropped := 0
	for _, p := range f.reg.AuthenticatedPeers() {
		if p.Enqueue(payload) {
			delivered++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		logger.Warn("broadcast dropped slow peers", zap.Int("dropped", dropped))
	}
	return delivered
}

// DeliverUsers is the local-only half of BroadcastUsers.
func (f *Fanout) DeliverUsers(userIDs []string, payload []byte) int {
	delivered := 0
	dropped := 0
	for _, p := range f.reg.PeersForUsers(userIDs) {
		if p.Enqueue(payload) {
			delivered++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		logger.Warn("fanout dropped slow peers", zap.Int("dropped", dropped))
	}
	return delivered
}
