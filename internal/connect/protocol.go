package connect

import (
	"context"
	"log/slog"

	"github.com/flashconn/flashconn/internal/array"
	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/types"
)

// protocolAPI is the slice of the array API protocol families need.
type protocolAPI interface {
	ListHosts(ctx context.Context) ([]array.HostRecord, error)
	ListVolumeConnections(ctx context.Context, volume string) ([]array.ConnectionRecord, error)
	ListPorts(ctx context.Context) ([]types.TargetPort, error)
}

// UnimplementedProtocol is embedded by protocol families. Any capability a
// family does not override reports MISSING_CAPABILITY instead of guessing;
// reaching one of these at runtime means the wiring skipped a constructor.
type UnimplementedProtocol struct{}

func (UnimplementedProtocol) FindMappedGroupAndLun(context.Context, string, *types.InitiatorSet) (string, int, bool, error) {
	return "", 0, false, errors.New(errors.ErrCodeMissingCapability,
		"FindMappedGroupAndLun requires a protocol-specific implementation")
}

func (UnimplementedProtocol) TargetWWPNs(context.Context) ([]string, error) {
	return nil, errors.New(errors.ErrCodeMissingCapability,
		"TargetWWPNs requires a protocol-specific implementation")
}

func (UnimplementedProtocol) TargetPortal(context.Context) (*types.TargetPort, error) {
	return nil, errors.New(errors.ErrCodeMissingCapability,
		"TargetPortal requires a protocol-specific implementation")
}

// findMappedConnection is the shared discovery algorithm: list the volume's
// connections, then return the first connected group (in the array's listing
// order) owning any initiator in set. A volume the array does not know about
// simply has no mapping.
func findMappedConnection(ctx context.Context, api protocolAPI, path string, set *types.InitiatorSet,
	initiators func(array.HostRecord) []string) (string, int, bool, error) {

	conns, err := api.ListVolumeConnections(ctx, volumeFromPath(path))
	if err != nil {
		if errors.IsFault(err, errors.FaultNotFound) {
			return "", 0, false, nil
		}
		return "", 0, false, err
	}
	if len(conns) == 0 {
		return "", 0, false, nil
	}

	hosts, err := api.ListHosts(ctx)
	if err != nil {
		return "", 0, false, err
	}
	byName := make(map[string][]string, len(hosts))
	for _, h := range hosts {
		byName[h.Name] = initiators(h)
	}
	for _, conn := range conns {
		if set.ContainsAny(byName[conn.Host]) {
			return conn.Host, conn.LUN, true, nil
		}
	}
	return "", 0, false, nil
}

// FibreChannel is the FC protocol family.
type FibreChannel struct {
	UnimplementedProtocol
	api    protocolAPI
	logger *slog.Logger
}

// NewFibreChannel wires the FC family.
func NewFibreChannel(api protocolAPI, logger *slog.Logger) *FibreChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &FibreChannel{api: api, logger: logger}
}

// FindMappedGroupAndLun locates an existing FC mapping for path.
func (p *FibreChannel) FindMappedGroupAndLun(ctx context.Context, path string, set *types.InitiatorSet) (string, int, bool, error) {
	return findMappedConnection(ctx, p.api, path, set, func(h array.HostRecord) []string {
		return h.WWNs
	})
}

// TargetWWPNs returns the normalized WWPNs of every FC-capable target port.
func (p *FibreChannel) TargetWWPNs(ctx context.Context) ([]string, error) {
	ports, err := p.api.ListPorts(ctx)
	if err != nil {
		return nil, err
	}
	var wwpns []string
	for _, port := range ports {
		if port.WWN != "" {
			wwpns = append(wwpns, types.NormalizeInitiator(port.WWN))
		}
	}
	if len(wwpns) == 0 {
		return nil, errors.New(errors.ErrCodeNoUsablePorts, "no FC-enabled ports on target array")
	}
	return wwpns, nil
}

// ISCSI is the iSCSI protocol family.
type ISCSI struct {
	UnimplementedProtocol
	api    protocolAPI
	prober types.PortProber
	logger *slog.Logger
}

// NewISCSI wires the iSCSI family. prober may be nil, in which case the
// first iSCSI-capable port is taken on faith.
func NewISCSI(api protocolAPI, prober types.PortProber, logger *slog.Logger) *ISCSI {
	if logger == nil {
		logger = slog.Default()
	}
	return &ISCSI{api: api, prober: prober, logger: logger}
}

// FindMappedGroupAndLun locates an existing iSCSI mapping for path.
func (p *ISCSI) FindMappedGroupAndLun(ctx context.Context, path string, set *types.InitiatorSet) (string, int, bool, error) {
	return findMappedConnection(ctx, p.api, path, set, func(h array.HostRecord) []string {
		return h.IQNs
	})
}

// TargetPortal returns the first reachable iSCSI-enabled target port.
func (p *ISCSI) TargetPortal(ctx context.Context) (*types.TargetPort, error) {
	ports, err := p.api.ListPorts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range ports {
		port := ports[i]
		if port.IQN == "" {
			continue
		}
		if p.prober != nil {
			if perr := p.prober.Probe(ctx, port.Portal); perr != nil {
				p.logger.Warn("iSCSI port failed probe, skipping",
					"port", port.Name, "portal", port.Portal, "error", perr)
				continue
			}
		}
		p.logger.Info("using iSCSI target port", "port", port.Name, "portal", port.Portal)
		return &port, nil
	}
	return nil, errors.New(errors.ErrCodeNoUsablePorts, "no reachable iSCSI-enabled ports on target array")
}
