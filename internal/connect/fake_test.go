package connect

import (
	"context"
	"fmt"
	"sync"

	"github.com/flashconn/flashconn/internal/array"
	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/types"
)

// fakeAPI is an in-memory array for orchestration tests. It mimics the
// conflict behavior of the real thing: duplicate connections fault with
// FaultAlreadyConnected, absent objects with FaultNotFound.
type fakeAPI struct {
	mu sync.Mutex

	hosts          []array.HostRecord
	personalities  map[string]string
	hostConns      map[string][]array.ConnectionRecord // host -> connections
	volumeConns    map[string][]array.ConnectionRecord // volume -> connections
	ports          []types.TargetPort
	info           array.Info
	missingVolumes map[string]bool

	createHostCalls int
	created         []string
	deletedHosts    []string
	disconnects     [][2]string // host, volume
	destroyed       []string
	copied          [][2]string // source, dest
	extended        map[string]int64
	pgroupSnaps     [][2]string

	connectErr   error // forced ConnectHost error
	listHostsErr error
	addInitErrAt int // fail the nth AddHostInitiator call, 0 = never
	addInitCalls int
	nextLun      int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		personalities:  map[string]string{},
		hostConns:      map[string][]array.ConnectionRecord{},
		volumeConns:    map[string][]array.ConnectionRecord{},
		missingVolumes: map[string]bool{},
		extended:       map[string]int64{},
		nextLun:        1,
	}
}

func notFoundFault(what string) error {
	return &errors.ArrayError{Status: 400, Message: what + " does not exist.", Kind: errors.FaultNotFound}
}

func (f *fakeAPI) ListHosts(ctx context.Context) ([]array.HostRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listHostsErr != nil {
		return nil, f.listHostsErr
	}
	return append([]array.HostRecord(nil), f.hosts...), nil
}

func (f *fakeAPI) CreateHost(ctx context.Context, name string, iqns, wwns []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createHostCalls++
	f.hosts = append(f.hosts, array.HostRecord{Name: name, IQNs: iqns, WWNs: wwns})
	return nil
}

func (f *fakeAPI) SetHostPersonality(ctx context.Context, name, personality string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.personalities[name] = personality
	return nil
}

func (f *fakeAPI) AddHostInitiator(ctx context.Context, name string, protocol types.Protocol, initiator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addInitCalls++
	if f.addInitErrAt > 0 && f.addInitCalls == f.addInitErrAt {
		return &errors.ArrayError{Status: 500, Message: "internal error", Kind: errors.FaultOther}
	}
	for i := range f.hosts {
		if f.hosts[i].Name != name {
			continue
		}
		if protocol == types.ProtocolFC {
			f.hosts[i].WWNs = append(f.hosts[i].WWNs, initiator)
		} else {
			f.hosts[i].IQNs = append(f.hosts[i].IQNs, initiator)
		}
		return nil
	}
	return notFoundFault("Host")
}

func (f *fakeAPI) DeleteHost(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedHosts = append(f.deletedHosts, name)
	for i := range f.hosts {
		if f.hosts[i].Name == name {
			f.hosts = append(f.hosts[:i], f.hosts[i+1:]...)
			return nil
		}
	}
	return notFoundFault("Host")
}

func (f *fakeAPI) ConnectHost(ctx context.Context, host, volume string, lun int) (*array.ConnectionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	for _, c := range f.volumeConns[volume] {
		if c.Host == host {
			return nil, &errors.ArrayError{Status: 400, Message: "Connection already exists.", Kind: errors.FaultAlreadyConnected}
		}
	}
	if lun == 0 {
		lun = f.nextLun
		f.nextLun++
	}
	rec := array.ConnectionRecord{Host: host, Volume: volume, LUN: lun}
	f.volumeConns[volume] = append(f.volumeConns[volume], rec)
	f.hostConns[host] = append(f.hostConns[host], rec)
	return &rec, nil
}

func (f *fakeAPI) DisconnectHost(ctx context.Context, host, volume string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects = append(f.disconnects, [2]string{host, volume})
	conns := f.volumeConns[volume]
	for i, c := range conns {
		if c.Host == host {
			f.volumeConns[volume] = append(conns[:i], conns[i+1:]...)
			hc := f.hostConns[host]
			for j, h := range hc {
				if h.Volume == volume {
					f.hostConns[host] = append(hc[:j], hc[j+1:]...)
					break
				}
			}
			return nil
		}
	}
	return &errors.ArrayError{Status: 400,
		Message: fmt.Sprintf("Volume %s is not connected to host %s.", volume, host),
		Kind:    errors.FaultNotConnected}
}

func (f *fakeAPI) ListHostConnections(ctx context.Context, host string, private bool) ([]array.ConnectionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]array.ConnectionRecord(nil), f.hostConns[host]...), nil
}

func (f *fakeAPI) ListVolumeConnections(ctx context.Context, volume string) ([]array.ConnectionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missingVolumes[volume] {
		return nil, notFoundFault("Volume")
	}
	return append([]array.ConnectionRecord(nil), f.volumeConns[volume]...), nil
}

func (f *fakeAPI) ListPorts(ctx context.Context) ([]types.TargetPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.TargetPort(nil), f.ports...), nil
}

func (f *fakeAPI) CreateVolume(ctx context.Context, name string, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	return nil
}

func (f *fakeAPI) CopyVolume(ctx context.Context, source, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copied = append(f.copied, [2]string{source, dest})
	return nil
}

func (f *fakeAPI) ExtendVolume(ctx context.Context, name string, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extended[name] = size
	return nil
}

func (f *fakeAPI) DestroyVolume(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missingVolumes[name] {
		return notFoundFault("Volume")
	}
	f.destroyed = append(f.destroyed, name)
	return nil
}

func (f *fakeAPI) CreateSnapshot(ctx context.Context, volume, suffix string) (*array.SnapshotRecord, error) {
	return &array.SnapshotRecord{Name: volume + "." + suffix, Source: volume}, nil
}

func (f *fakeAPI) CreateProtectionGroupSnapshot(ctx context.Context, pgroup, suffix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pgroupSnaps = append(f.pgroupSnaps, [2]string{pgroup, suffix})
	return nil
}

func (f *fakeAPI) GetInfo(ctx context.Context, space bool) (*array.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.info
	return &info, nil
}

// fakeLunStore maps volume references to lun attributes.
type fakeLunStore map[string]*types.LunAttributes

func (s fakeLunStore) GetLunAttributes(ctx context.Context, volumeRef string) (*types.LunAttributes, error) {
	attrs, ok := s[volumeRef]
	if !ok {
		return nil, fmt.Errorf("no record for %s", volumeRef)
	}
	return attrs, nil
}

// fakeFabric is a canned fabric zoning lookup.
type fakeFabric struct {
	entries map[string]types.FabricEntry
	err     error
}

func (f *fakeFabric) MapDevices(ctx context.Context, initiators, targets []string) (map[string]types.FabricEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}
