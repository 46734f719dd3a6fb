package connect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flashconn/flashconn/internal/array"
	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/types"
)

// groupAPI is the slice of the array API group management needs.
type groupAPI interface {
	ListHosts(ctx context.Context) ([]array.HostRecord, error)
	CreateHost(ctx context.Context, name string, iqns, wwns []string) error
	SetHostPersonality(ctx context.Context, name, personality string) error
	AddHostInitiator(ctx context.Context, name string, protocol types.Protocol, initiator string) error
}

// GroupManager resolves an initiator set to an array-side initiator group,
// creating one when none exists. Resolution is idempotent: a fixed set
// resolves to the same group on every call and never creates a duplicate.
type GroupManager struct {
	api       groupAPI
	namer     *Namer
	defaultOS string
	logger    *slog.Logger
}

// NewGroupManager wires a group manager. defaultOS is the personality
// applied to new groups when the caller supplies none; empty disables it.
func NewGroupManager(api groupAPI, namer *Namer, defaultOS string, logger *slog.Logger) *GroupManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupManager{api: api, namer: namer, defaultOS: defaultOS, logger: logger}
}

// GetOrCreate returns the name of a group containing any member of set,
// creating and populating a new one when no candidate exists. When several
// groups match, the first in the array's listing order wins; the choice is
// deterministic per call but not stable across array-side reordering.
func (m *GroupManager) GetOrCreate(ctx context.Context, set *types.InitiatorSet, protocol types.Protocol, osType string) (string, error) {
	if set == nil || set.Empty() {
		return "", errors.New(errors.ErrCodeInvalidInput, "initiator set is empty")
	}

	hosts, err := m.api.ListHosts(ctx)
	if err != nil {
		return "", err
	}
	for _, h := range hosts {
		ids := h.IQNs
		if protocol == types.ProtocolFC {
			ids = h.WWNs
		}
		if set.ContainsAny(ids) {
			m.logger.Debug("reusing existing initiator group",
				"group", h.Name, "protocol", string(protocol))
			return h.Name, nil
		}
	}

	name := m.namer.Generate("ig-" + string(protocol))
	if err := m.api.CreateHost(ctx, name, nil, nil); err != nil {
		return "", err
	}
	personality := osType
	if personality == "" {
		personality = m.defaultOS
	}
	if personality != "" {
		if err := m.api.SetHostPersonality(ctx, name, personality); err != nil {
			return "", err
		}
	}
	for i, initiator := range set.Members() {
		if err := m.api.AddHostInitiator(ctx, name, protocol, initiator); err != nil {
			// The group keeps the initiators added so far; no rollback.
			return "", errors.Wrap(errors.ErrCodeGroupPartial, err,
				fmt.Sprintf("group %s left partially populated after %d of %d initiators",
					name, i, set.Len()))
		}
	}
	m.logger.Info("created initiator group",
		"group", name, "protocol", string(protocol), "os_type", personality,
		"initiators", set.Len())
	return name, nil
}
