package connect

import (
	"context"
	"log/slog"
	"slices"

	"github.com/flashconn/flashconn/internal/array"
	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/types"
)

type hostAPI interface {
	ListHosts(ctx context.Context) ([]array.HostRecord, error)
	CreateHost(ctx context.Context, name string, iqns, wwns []string) error
	DeleteHost(ctx context.Context, name string) error
	ConnectHost(ctx context.Context, host, volume string, lun int) (*array.ConnectionRecord, error)
	DisconnectHost(ctx context.Context, host, volume string) error
	ListVolumeConnections(ctx context.Context, volume string) ([]array.ConnectionRecord, error)
	ListHostConnections(ctx context.Context, host string, private bool) ([]array.ConnectionRecord, error)
}

// HostManager discovers or creates host objects for connectors, connects
// and disconnects volumes, and garbage-collects hosts this library created
// once their last connection is gone.
type HostManager struct {
	api    hostAPI
	namer  *Namer
	logger *slog.Logger
}

// NewHostManager wires a host manager.
func NewHostManager(api hostAPI, namer *Namer, logger *slog.Logger) *HostManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &HostManager{api: api, namer: namer, logger: logger}
}

// findHost returns the name of an existing host registered with the
// connector's initiator, or "". First match in listing order wins; no
// uniqueness is assumed or enforced.
func (m *HostManager) findHost(ctx context.Context, initiator string) (string, error) {
	hosts, err := m.api.ListHosts(ctx)
	if err != nil {
		return "", err
	}
	for _, h := range hosts {
		if slices.Contains(h.IQNs, initiator) {
			return h.Name, nil
		}
	}
	return "", nil
}

// Connect connects a volume to the connector's host, creating the host
// when the connector is new to the array. An already-connected conflict is
// treated as success by recovering the existing connection record from the
// volume's connection listing.
func (m *HostManager) Connect(ctx context.Context, volumeName string, connector types.Connector) (*array.ConnectionRecord, error) {
	if connector.Initiator == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "connector has no initiator identifier")
	}

	hostName, err := m.findHost(ctx, connector.Initiator)
	if err != nil {
		return nil, err
	}
	if hostName != "" {
		m.logger.Info("re-using existing host", "host", hostName)
	} else {
		hostName = m.namer.Generate(connector.Host)
		m.logger.Info("creating host", "host", hostName, "initiator", connector.Initiator)
		if err := m.api.CreateHost(ctx, hostName, []string{connector.Initiator}, nil); err != nil {
			return nil, err
		}
	}

	conn, err := m.api.ConnectHost(ctx, hostName, volumeName, 0)
	if err == nil {
		return conn, nil
	}
	if !errors.IsFault(err, errors.FaultAlreadyConnected) {
		return nil, err
	}

	m.logger.Warn("volume connection already exists, recovering record",
		"host", hostName, "volume", volumeName)
	conns, lerr := m.api.ListVolumeConnections(ctx, volumeName)
	if lerr == nil {
		for i := range conns {
			if conns[i].Host == hostName {
				return &conns[i], nil
			}
		}
	}
	return nil, errors.Wrap(errors.ErrCodeConnectionNotFound, err,
		"unable to connect or find connection to host "+hostName)
}

// Disconnect disconnects a volume from a host, tolerating a connection that
// is already gone. A host this library generated is deleted once it has no
// private connections left; admin-named hosts are never deleted.
func (m *HostManager) Disconnect(ctx context.Context, hostName, volumeName string) error {
	if err := m.api.DisconnectHost(ctx, hostName, volumeName); err != nil {
		if !errors.IsFault(err, errors.FaultNotConnected) && !errors.IsFault(err, errors.FaultNotFound) {
			return err
		}
		m.logger.Warn("volume already disconnected", "host", hostName, "volume", volumeName)
	}

	if !m.namer.Generated(hostName) {
		return nil
	}
	conns, err := m.api.ListHostConnections(ctx, hostName, true)
	if err != nil {
		return err
	}
	if len(conns) > 0 {
		return nil
	}
	m.logger.Info("deleting unneeded host", "host", hostName)
	return m.api.DeleteHost(ctx, hostName)
}
