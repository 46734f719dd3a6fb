package connect

import (
	"log/slog"

	"github.com/flashconn/flashconn/internal/config"
	"github.com/flashconn/flashconn/pkg/types"
)

// API is the full slice of the array client the connection layer consumes.
// The per-manager interfaces stay narrow; this union exists so callers can
// hand over one client and let assembly slice it up.
type API interface {
	groupAPI
	hostAPI
	mapAPI
	protocolAPI
	volumeAPI
}

// Stack is the assembled connection layer for one array.
type Stack struct {
	Namer       *Namer
	Groups      *GroupManager
	Hosts       *HostManager
	Volumes     *VolumeManager
	FC          *FibreChannel
	ISCSI       *ISCSI
	Topology    *TopologyBuilder
	FCMapper    *LunMapper
	ISCSIMapper *LunMapper
}

// NewStack assembles the connection layer from configuration. store is
// required; lookup and prober may be nil. A lookup service supplied while
// fabric.use_lookup_service is off is ignored, so operators can disable
// zoning lookup without rewiring the caller.
func NewStack(cfg *config.Configuration, api API, store types.LunStore,
	lookup types.FabricLookup, prober types.PortProber, logger *slog.Logger) (*Stack, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxSize, err := cfg.MaxVolumeSizeBytes()
	if err != nil {
		return nil, err
	}
	if !cfg.Fabric.UseLookupService {
		lookup = nil
	}

	namer := NewNamer(cfg.Naming.HostSuffix)
	groups := NewGroupManager(api, namer, cfg.Naming.DefaultOS, logger)
	fc := NewFibreChannel(api, logger)
	iscsi := NewISCSI(api, prober, logger)

	topology, err := NewTopologyBuilder(fc, lookup, logger)
	if err != nil {
		return nil, err
	}
	fcMapper, err := NewLunMapper(store, groups, api, fc, logger)
	if err != nil {
		return nil, err
	}
	iscsiMapper, err := NewLunMapper(store, groups, api, iscsi, logger)
	if err != nil {
		return nil, err
	}

	return &Stack{
		Namer:       namer,
		Groups:      groups,
		Hosts:       NewHostManager(api, namer, logger),
		Volumes:     NewVolumeManager(api, maxSize, cfg.Array.DefaultPool, logger),
		FC:          fc,
		ISCSI:       iscsi,
		Topology:    topology,
		FCMapper:    fcMapper,
		ISCSIMapper: iscsiMapper,
	}, nil
}
