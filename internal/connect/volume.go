package connect

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/docker/go-units"

	"github.com/flashconn/flashconn/internal/array"
	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/types"
)

type volumeAPI interface {
	CreateVolume(ctx context.Context, name string, size int64) error
	CopyVolume(ctx context.Context, source, dest string) error
	ExtendVolume(ctx context.Context, name string, size int64) error
	DestroyVolume(ctx context.Context, name string) error
	CreateSnapshot(ctx context.Context, volume, suffix string) (*array.SnapshotRecord, error)
	ListVolumeConnections(ctx context.Context, volume string) ([]array.ConnectionRecord, error)
	DisconnectHost(ctx context.Context, host, volume string) error
	CreateProtectionGroupSnapshot(ctx context.Context, pgroup, suffix string) error
	GetInfo(ctx context.Context, space bool) (*array.Info, error)
}

// VolumeManager provisions array volumes and tears them down cleanly.
type VolumeManager struct {
	api         volumeAPI
	maxSize     int64  // bytes, 0 means uncapped
	defaultPool string // placement when the volume carries no pool hint
	logger      *slog.Logger
}

// NewVolumeManager wires a volume manager.
func NewVolumeManager(api volumeAPI, maxSize int64, defaultPool string, logger *slog.Logger) *VolumeManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &VolumeManager{api: api, maxSize: maxSize, defaultPool: defaultPool, logger: logger}
}

var poolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][-a-zA-Z0-9]*$`)

// placedName resolves the array volume name for a placement: the volume's
// pool hint, falling back to the manager's default pool, qualifies the
// name. No pool at all places the volume at the array root. A malformed
// pool is rejected before any remote call.
func (m *VolumeManager) placedName(vol types.Volume) (string, error) {
	pool := vol.Pool
	if pool == "" {
		pool = m.defaultPool
	}
	if pool == "" {
		return vol.Name, nil
	}
	if !poolNamePattern.MatchString(pool) {
		return "", errors.Newf(errors.ErrCodeInvalidInput, "invalid pool name %q", pool)
	}
	return pool + "/" + vol.Name, nil
}

func (m *VolumeManager) checkSize(size int64) error {
	if size <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "volume size must be positive")
	}
	if m.maxSize > 0 && size > m.maxSize {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"volume size %s exceeds the configured cap of %s",
			units.BytesSize(float64(size)), units.BytesSize(float64(m.maxSize)))
	}
	return nil
}

// Create provisions a volume and returns its array name, pool-qualified
// when a placement applies.
func (m *VolumeManager) Create(ctx context.Context, vol types.Volume) (string, error) {
	if err := m.checkSize(vol.Size); err != nil {
		return "", err
	}
	name, err := m.placedName(vol)
	if err != nil {
		return "", err
	}
	if err := m.api.CreateVolume(ctx, name, vol.Size); err != nil {
		return "", err
	}
	m.logger.Info("created volume", "volume", name,
		"size", units.BytesSize(float64(vol.Size)))
	return name, nil
}

// CreateFromSnapshot copies a snapshot into a new volume, growing it when
// the requested size exceeds the snapshot's. Returns the new array name.
func (m *VolumeManager) CreateFromSnapshot(ctx context.Context, snapshot string, snapshotSize int64, vol types.Volume) (string, error) {
	if err := m.checkSize(vol.Size); err != nil {
		return "", err
	}
	name, err := m.placedName(vol)
	if err != nil {
		return "", err
	}
	if err := m.api.CopyVolume(ctx, snapshot, name); err != nil {
		return "", err
	}
	return name, m.extendIfNeeded(ctx, name, snapshotSize, vol.Size)
}

// Clone copies an existing volume, growing the copy when requested larger
// than the source. Returns the new array name.
func (m *VolumeManager) Clone(ctx context.Context, source string, sourceSize int64, vol types.Volume) (string, error) {
	if err := m.checkSize(vol.Size); err != nil {
		return "", err
	}
	name, err := m.placedName(vol)
	if err != nil {
		return "", err
	}
	if err := m.api.CopyVolume(ctx, source, name); err != nil {
		return "", err
	}
	return name, m.extendIfNeeded(ctx, name, sourceSize, vol.Size)
}

func (m *VolumeManager) extendIfNeeded(ctx context.Context, name string, current, want int64) error {
	if want <= current {
		return nil
	}
	return m.api.ExtendVolume(ctx, name, want)
}

// Extend grows a volume to newSize.
func (m *VolumeManager) Extend(ctx context.Context, name string, newSize int64) error {
	if err := m.checkSize(newSize); err != nil {
		return err
	}
	return m.api.ExtendVolume(ctx, name, newSize)
}

// Delete disconnects every connected host, then destroys the volume. A
// volume the array no longer knows about is already in the desired state.
func (m *VolumeManager) Delete(ctx context.Context, name string) error {
	conns, err := m.api.ListVolumeConnections(ctx, name)
	if err != nil {
		if errors.IsFault(err, errors.FaultNotFound) {
			m.logger.Warn("volume already absent", "volume", name)
			return nil
		}
		return err
	}
	for _, conn := range conns {
		if derr := m.api.DisconnectHost(ctx, conn.Host, name); derr != nil {
			if !errors.IsFault(derr, errors.FaultNotConnected) && !errors.IsFault(derr, errors.FaultNotFound) {
				return derr
			}
		}
	}
	if err := m.api.DestroyVolume(ctx, name); err != nil {
		if errors.IsFault(err, errors.FaultNotFound) {
			m.logger.Warn("volume deletion raced with removal", "volume", name)
			return nil
		}
		return err
	}
	return nil
}

// Snapshot snapshots a volume and returns the snapshot's array name.
func (m *VolumeManager) Snapshot(ctx context.Context, volume, suffix string) (string, error) {
	snap, err := m.api.CreateSnapshot(ctx, volume, suffix)
	if err != nil {
		return "", err
	}
	return snap.Name, nil
}

// DeleteSnapshot destroys a snapshot, tolerating one that is already gone.
func (m *VolumeManager) DeleteSnapshot(ctx context.Context, name string) error {
	if err := m.api.DestroyVolume(ctx, name); err != nil {
		if errors.IsFault(err, errors.FaultNotFound) {
			m.logger.Warn("snapshot already absent", "snapshot", name)
			return nil
		}
		return err
	}
	return nil
}

// SnapshotGroup takes a crash-consistent snapshot of a protection group.
func (m *VolumeManager) SnapshotGroup(ctx context.Context, pgroup, suffix string) error {
	return m.api.CreateProtectionGroupSnapshot(ctx, pgroup, suffix)
}

// Capacity reports the array's total and free bytes.
func (m *VolumeManager) Capacity(ctx context.Context) (total, free int64, err error) {
	info, err := m.api.GetInfo(ctx, true)
	if err != nil {
		return 0, 0, err
	}
	return info.Capacity, info.Capacity - info.Used, nil
}
