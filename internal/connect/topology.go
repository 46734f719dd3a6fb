package connect

import (
	"context"
	"log/slog"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/types"
)

// TargetWWPNLister is the protocol capability that enumerates target WWPNs.
type TargetWWPNLister interface {
	TargetWWPNs(ctx context.Context) ([]string, error)
}

// Topology is the initiator-target reachability map for an FC connection.
type Topology struct {
	TargetWWNs         []string
	InitiatorTargetMap map[string][]string
	// NumPaths is the summed per-initiator path count reported by the
	// fabric, or 0 when no lookup service is configured (unknown/unzoned).
	NumPaths int
}

// TopologyBuilder computes which target ports each initiator can reach,
// through a fabric zoning lookup service when one is configured.
type TopologyBuilder struct {
	targets TargetWWPNLister
	lookup  types.FabricLookup
	logger  *slog.Logger
}

// NewTopologyBuilder wires a builder. lookup may be nil; targets may not.
func NewTopologyBuilder(targets TargetWWPNLister, lookup types.FabricLookup, logger *slog.Logger) (*TopologyBuilder, error) {
	if targets == nil {
		return nil, errors.New(errors.ErrCodeMissingCapability,
			"topology builder requires a protocol-specific target port lister")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TopologyBuilder{targets: targets, lookup: lookup, logger: logger}, nil
}

// Build maps the connector's initiators onto reachable target WWPNs.
// Without a lookup service every initiator is assumed reachable to every
// target and the path count is 0. With one, the result's target set is the
// union of all per-initiator reachable subsets and the path count the sum
// of per-initiator counts; an empty union is fatal, the connection cannot
// proceed.
func (b *TopologyBuilder) Build(ctx context.Context, connector types.Connector) (*Topology, error) {
	initiators := types.NewInitiatorSet(connector.WWPNs...)
	if initiators.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "connector presents no initiator WWPNs")
	}

	targets, err := b.targets.TargetWWPNs(ctx)
	if err != nil {
		return nil, err
	}

	if b.lookup == nil {
		itMap := make(map[string][]string, initiators.Len())
		for _, init := range initiators.Members() {
			itMap[init] = append([]string(nil), targets...)
		}
		return &Topology{TargetWWNs: targets, InitiatorTargetMap: itMap, NumPaths: 0}, nil
	}

	fabric, err := b.lookup.MapDevices(ctx, initiators.Members(), targets)
	if err != nil {
		return nil, err
	}

	union := mapset.NewSet[string]()
	itMap := make(map[string][]string)
	numPaths := 0
	for _, init := range initiators.Members() {
		entry, ok := fabric[init]
		if !ok || len(entry.TargetWWPNs) == 0 {
			continue
		}
		reachable := make([]string, 0, len(entry.TargetWWPNs))
		for _, t := range entry.TargetWWPNs {
			norm := types.NormalizeInitiator(t)
			reachable = append(reachable, norm)
			union.Add(norm)
		}
		itMap[init] = reachable
		numPaths += entry.NumPaths
	}

	if union.Cardinality() == 0 {
		return nil, errors.New(errors.ErrCodeNoReachableTargets,
			"fabric reports no target ports reachable from any initiator")
	}

	targetWWNs := union.ToSlice()
	sort.Strings(targetWWNs)
	b.logger.Debug("built initiator-target map",
		"initiators", initiators.Len(), "targets", len(targetWWNs), "num_paths", numPaths)
	return &Topology{TargetWWNs: targetWWNs, InitiatorTargetMap: itMap, NumPaths: numPaths}, nil
}
