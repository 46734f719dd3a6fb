package connect

import (
	"context"
	"testing"

	"github.com/docker/go-units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashconn/flashconn/internal/array"
	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/types"
)

func TestCreateRejectsBadSizes(t *testing.T) {
	m := NewVolumeManager(newFakeAPI(), 10*units.GiB, "", nil)

	_, err := m.Create(context.Background(), types.Volume{Name: "vol1", Size: 0})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	_, err = m.Create(context.Background(), types.Volume{Name: "vol1", Size: 11 * units.GiB})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	_, err = m.Create(context.Background(), types.Volume{Name: "vol1", Size: 10 * units.GiB})
	require.NoError(t, err)
}

func TestCreateUncappedWhenNoLimit(t *testing.T) {
	m := NewVolumeManager(newFakeAPI(), 0, "", nil)
	name, err := m.Create(context.Background(), types.Volume{Name: "vol1", Size: 100 * units.TiB})
	require.NoError(t, err)
	assert.Equal(t, "vol1", name)
}

func TestCreatePlacesInPool(t *testing.T) {
	api := newFakeAPI()
	m := NewVolumeManager(api, 0, "bronze", nil)

	name, err := m.Create(context.Background(), types.Volume{Name: "vol1", Size: units.GiB, Pool: "ssd"})
	require.NoError(t, err)
	assert.Equal(t, "ssd/vol1", name, "explicit pool hint wins")

	name, err = m.Create(context.Background(), types.Volume{Name: "vol2", Size: units.GiB})
	require.NoError(t, err)
	assert.Equal(t, "bronze/vol2", name, "no hint falls back to the default pool")

	assert.Equal(t, []string{"ssd/vol1", "bronze/vol2"}, api.created)
}

func TestCreateRejectsMalformedPool(t *testing.T) {
	api := newFakeAPI()
	m := NewVolumeManager(api, 0, "", nil)

	_, err := m.Create(context.Background(),
		types.Volume{Name: "vol1", Size: units.GiB, Pool: "bad/pool"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
	assert.Empty(t, api.created, "validation must run before any remote call")
}

func TestCreateFromSnapshotGrowsWhenRequestedLarger(t *testing.T) {
	api := newFakeAPI()
	m := NewVolumeManager(api, 0, "", nil)

	name, err := m.CreateFromSnapshot(context.Background(), "vol1.snap", 1*units.GiB,
		types.Volume{Name: "vol2", Size: 2 * units.GiB})
	require.NoError(t, err)
	assert.Equal(t, "vol2", name)
	assert.Equal(t, [][2]string{{"vol1.snap", "vol2"}}, api.copied)
	assert.Equal(t, int64(2*units.GiB), api.extended["vol2"])
}

func TestCloneSameSizeSkipsExtend(t *testing.T) {
	api := newFakeAPI()
	m := NewVolumeManager(api, 0, "", nil)

	name, err := m.Clone(context.Background(), "vol1", 2*units.GiB,
		types.Volume{Name: "vol2", Size: 2 * units.GiB})
	require.NoError(t, err)
	assert.Equal(t, "vol2", name)
	assert.Equal(t, [][2]string{{"vol1", "vol2"}}, api.copied)
	assert.NotContains(t, api.extended, "vol2")
}

func TestDeleteDisconnectsThenDestroys(t *testing.T) {
	api := newFakeAPI()
	api.hosts = []array.HostRecord{{Name: "h1", IQNs: []string{testIQN}}}
	_, err := api.ConnectHost(context.Background(), "h1", "vol1", 0)
	require.NoError(t, err)
	m := NewVolumeManager(api, 0, "", nil)

	require.NoError(t, m.Delete(context.Background(), "vol1"))
	assert.Equal(t, [][2]string{{"h1", "vol1"}}, api.disconnects)
	assert.Equal(t, []string{"vol1"}, api.destroyed)
}

func TestDeleteAbsentVolumeIsNoop(t *testing.T) {
	api := newFakeAPI()
	api.missingVolumes["vol1"] = true
	m := NewVolumeManager(api, 0, "", nil)

	require.NoError(t, m.Delete(context.Background(), "vol1"))
	assert.Empty(t, api.destroyed)
}

func TestSnapshotReturnsArrayName(t *testing.T) {
	m := NewVolumeManager(newFakeAPI(), 0, "", nil)
	name, err := m.Snapshot(context.Background(), "vol1", "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "vol1.snap-1", name)
}

func TestDeleteSnapshotToleratesAbsent(t *testing.T) {
	api := newFakeAPI()
	api.missingVolumes["vol1.snap-1"] = true
	m := NewVolumeManager(api, 0, "", nil)
	require.NoError(t, m.DeleteSnapshot(context.Background(), "vol1.snap-1"))
}

func TestSnapshotGroup(t *testing.T) {
	api := newFakeAPI()
	m := NewVolumeManager(api, 0, "", nil)
	require.NoError(t, m.SnapshotGroup(context.Background(), "pg1", "backup-1"))
	assert.Equal(t, [][2]string{{"pg1", "backup-1"}}, api.pgroupSnaps)
}

func TestCapacity(t *testing.T) {
	api := newFakeAPI()
	api.info = array.Info{Capacity: 100 * units.GiB, Used: 30 * units.GiB}
	m := NewVolumeManager(api, 0, "", nil)

	total, free, err := m.Capacity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100*units.GiB), total)
	assert.Equal(t, int64(70*units.GiB), free)
}
