// Package relay mirrors fan-out traffic between gateway nodes over NATS,
// so a user's sessions on another node still receive pushes originated
// here. Single-node deployments never construct it.
package relay

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/y4my4my4m/nexus-server-sub000/logger"
)

const defaultSubject = "nexus.fanout"

const (
	scopeAll   = "all"
	scopeUsers = "users"
)

type event struct {
	Node    string          `json:"node"`
	Scope   string          `json:"scope"`
	UserIDs []string        `json:"user_ids,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// LocalDeliverer is the local-only half of the fan-out service.
type LocalDeliverer interface {
	DeliverAll(payload []byte) int
	DeliverUsers(userIDs []string, payload []byte) int
}

type Relay struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	node    string
	local   LocalDeliverer
}

// New connects, subscribes, and starts delivering remote events locally.
func New(url, nodeID string, local LocalDeliverer) (*Relay, error) {
	nc, err := nats.Connect(url, nats.Name("nexus-relay-"+nodeID))
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	r := &Relay{nc: nc, subject: defaultSubject, node: nodeID, local: local}
	sub, err := nc.Subscribe(r.subject, r.onRemote)
	if err != nil {
		nc.Close()
		return nil, errors.Wrap(err, "nats subscribe")
	}
	r.sub = sub
	logger.Info("relay connected", zap.String("url", url), zap.String("node", nodeID))
	return r, nil
}

func (r *Relay) Close() {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	r.nc.Close()
}

// MirrorAll republishes a broadcast-to-all payload.
func (r *Relay) MirrorAll(payload []byte) {
	r.publish(event{Node: r.node, Scope: scopeAll, Payload: payload})
}

// MirrorUsers republishes a user-scoped payload.
func (r *Relay) MirrorUsers(userIDs []string, payload []byte) {
	if len(userIDs) == 0 {
		return
	}
	r.publish(event{Node: r.node, Scope: scopeUsers, UserIDs: userIDs, Payload: payload})
}

func (r *Relay) publish(ev event) {
	b, err := json.Marshal(ev)
	if err != nil {
		logger.Error("relay marshal", zap.Error(err))
		return
	}
	if err := r.nc.Publish(r.subject, b); err != nil {
		// Best effort, like every fan-out path: log and move on.
		logger.Warn("relay publish failed", zap.Error(err))
	}
}

func (r *Relay) onRemote(m *nats.Msg) {
	var ev event
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		logger.Warn("relay decode failed", zap.Error(err))
		return
	}
	if ev.Node == r.node {
		return // own echo
	}
	switch ev.Scope {
	case scopeAll:
		r.local.DeliverAll(ev.Payload)
	case scopeUsers:
		r.local.DeliverUsers(ev.UserIDs, ev.Payload)
	default:
		logger.Warn("relay unknown scope", zap.String("scope", ev.Scope))
	}
}
