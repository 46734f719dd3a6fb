package connect

import (
	"context"
	"log/slog"
	gopath "path"

	"github.com/flashconn/flashconn/internal/array"
	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/types"
)

// MappedLunFinder locates a pre-existing mapping for a LUN path. Protocol
// families supply the implementation; found==false with a nil error means
// no mapping exists.
type MappedLunFinder interface {
	FindMappedGroupAndLun(ctx context.Context, path string, set *types.InitiatorSet) (group string, lun int, found bool, err error)
}

type mapAPI interface {
	ConnectHost(ctx context.Context, host, volume string, lun int) (*array.ConnectionRecord, error)
	DisconnectHost(ctx context.Context, host, volume string) error
}

// LunMapper maps and unmaps volumes to initiator groups, idempotently: a
// mapping that already exists anywhere is discovered and reused, never
// duplicated.
type LunMapper struct {
	store  types.LunStore
	groups *GroupManager
	api    mapAPI
	finder MappedLunFinder
	logger *slog.Logger
}

// NewLunMapper wires a mapper. A nil finder is a wiring error: the conflict
// recovery path cannot work without the protocol family's discovery
// capability.
func NewLunMapper(store types.LunStore, groups *GroupManager, api mapAPI, finder MappedLunFinder, logger *slog.Logger) (*LunMapper, error) {
	if store == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "lun mapper requires a lun store")
	}
	if finder == nil {
		return nil, errors.New(errors.ErrCodeMissingCapability,
			"lun mapper requires a protocol-specific mapped-lun finder")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LunMapper{store: store, groups: groups, api: api, finder: finder, logger: logger}, nil
}

// Map connects a volume to the group resolved for set and returns the
// assigned LUN id. lunHint, when positive, asks the array for that id. When
// the array reports the mapping already exists, the pre-existing LUN id is
// discovered and returned; if discovery comes up empty after a reported
// conflict, the original conflict is fatal.
func (m *LunMapper) Map(ctx context.Context, volumeRef string, set *types.InitiatorSet, protocol types.Protocol, lunHint int) (int, error) {
	attrs, err := m.store.GetLunAttributes(ctx, volumeRef)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeVolumeNotFound, err,
			"no lun attributes recorded for volume "+volumeRef)
	}
	if attrs == nil {
		return 0, errors.New(errors.ErrCodeVolumeNotFound,
			"no lun attributes recorded for volume "+volumeRef)
	}

	group, err := m.groups.GetOrCreate(ctx, set, protocol, attrs.OSType)
	if err != nil {
		return 0, err
	}

	conn, err := m.api.ConnectHost(ctx, group, volumeFromPath(attrs.Path), lunHint)
	if err == nil {
		m.logger.Debug("mapped volume", "volume", volumeRef, "group", group, "lun", conn.LUN)
		return conn.LUN, nil
	}
	if !errors.IsFault(err, errors.FaultAlreadyConnected) && !errors.IsFault(err, errors.FaultAlreadyExists) {
		return 0, err
	}

	existingGroup, lun, found, ferr := m.finder.FindMappedGroupAndLun(ctx, attrs.Path, set)
	if ferr != nil || !found {
		return 0, errors.Wrap(errors.ErrCodeMappingConflict, err,
			"array reported an existing mapping that could not be located")
	}
	m.logger.Debug("reusing existing mapping",
		"volume", volumeRef, "group", existingGroup, "lun", lun)
	return lun, nil
}

// Unmap removes the mapping for path from whichever group holds it. A path
// with no mapping is already in the desired state and succeeds as a no-op.
func (m *LunMapper) Unmap(ctx context.Context, path string, set *types.InitiatorSet) error {
	group, _, found, err := m.finder.FindMappedGroupAndLun(ctx, path, set)
	if err != nil {
		return err
	}
	if !found {
		m.logger.Debug("volume not mapped, nothing to unmap", "path", path)
		return nil
	}
	return m.api.DisconnectHost(ctx, group, volumeFromPath(path))
}

// volumeFromPath extracts the array volume name from a LUN path.
func volumeFromPath(p string) string {
	return gopath.Base(p)
}
