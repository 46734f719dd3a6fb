package array

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/types"
)

// HostRecord is the array's description of a host object. A host doubles as
// the initiator group the array enforces access control with.
type HostRecord struct {
	Name string   `json:"name"`
	IQNs []string `json:"iqn"`
	WWNs []string `json:"wwn"`
}

// ConnectionRecord describes one host-to-volume connection.
type ConnectionRecord struct {
	Host   string `json:"host,omitempty"`
	Volume string `json:"vol,omitempty"`
	LUN    int    `json:"lun"`
}

// SnapshotRecord describes a snapshot the array created.
type SnapshotRecord struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Size   int64  `json:"size"`
}

// Info is the array-level information record.
type Info struct {
	ArrayName string `json:"array_name"`
	Version   string `json:"version"`
	Capacity  int64  `json:"capacity"`
	Used      int64  `json:"total"`
}

// Typed single-call operations over the session client. Each method is
// exactly one request; all recovery lives in the session layer.

func (c *Client) CreateVolume(ctx context.Context, name string, size int64) error {
	return c.Do(ctx, http.MethodPost, "volume/"+url.PathEscape(name), nil,
		map[string]interface{}{"size": size}, nil)
}

func (c *Client) CopyVolume(ctx context.Context, source, dest string) error {
	return c.Do(ctx, http.MethodPost, "volume/"+url.PathEscape(dest), nil,
		map[string]interface{}{"source": source}, nil)
}

func (c *Client) ExtendVolume(ctx context.Context, name string, size int64) error {
	return c.Do(ctx, http.MethodPut, "volume/"+url.PathEscape(name), nil,
		map[string]interface{}{"size": size, "truncate": false}, nil)
}

func (c *Client) DestroyVolume(ctx context.Context, name string) error {
	return c.Do(ctx, http.MethodDelete, "volume/"+url.PathEscape(name), nil, nil, nil)
}

// CreateSnapshot snapshots a volume under the given suffix and returns the
// record the array assigned.
func (c *Client) CreateSnapshot(ctx context.Context, volume, suffix string) (*SnapshotRecord, error) {
	body := map[string]interface{}{"snap": true, "suffix": suffix, "source": []string{volume}}
	var out []SnapshotRecord
	if err := c.Do(ctx, http.MethodPost, "volume", nil, body, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.Newf(errors.ErrCodeInternalError,
			"array returned no snapshot record for %s.%s", volume, suffix)
	}
	return &out[0], nil
}

func (c *Client) ListHosts(ctx context.Context) ([]HostRecord, error) {
	var out []HostRecord
	err := c.Do(ctx, http.MethodGet, "host", nil, nil, &out)
	return out, err
}

// CreateHost registers a host object, optionally seeded with initiators.
func (c *Client) CreateHost(ctx context.Context, name string, iqns, wwns []string) error {
	body := map[string]interface{}{}
	if len(iqns) > 0 {
		body["iqnlist"] = iqns
	}
	if len(wwns) > 0 {
		body["wwnlist"] = wwns
	}
	return c.Do(ctx, http.MethodPost, "host/"+url.PathEscape(name), nil, body, nil)
}

// AddHostInitiator appends a single initiator to a host object.
func (c *Client) AddHostInitiator(ctx context.Context, name string, protocol types.Protocol, initiator string) error {
	key := "addiqnlist"
	if protocol == types.ProtocolFC {
		key = "addwwnlist"
	}
	return c.Do(ctx, http.MethodPut, "host/"+url.PathEscape(name), nil,
		map[string]interface{}{key: []string{initiator}}, nil)
}

// SetHostPersonality records the host OS personality the array should tune
// LUN behavior for.
func (c *Client) SetHostPersonality(ctx context.Context, name, personality string) error {
	return c.Do(ctx, http.MethodPut, "host/"+url.PathEscape(name), nil,
		map[string]interface{}{"personality": personality}, nil)
}

func (c *Client) DeleteHost(ctx context.Context, name string) error {
	return c.Do(ctx, http.MethodDelete, "host/"+url.PathEscape(name), nil, nil, nil)
}

// ConnectHost connects a volume to a host. A positive lun requests that LUN
// id; zero lets the array assign one.
func (c *Client) ConnectHost(ctx context.Context, host, volume string, lun int) (*ConnectionRecord, error) {
	body := map[string]interface{}{}
	if lun > 0 {
		body["lun"] = lun
	}
	var out ConnectionRecord
	err := c.Do(ctx, http.MethodPost,
		fmt.Sprintf("host/%s/volume/%s", url.PathEscape(host), url.PathEscape(volume)), nil, body, &out)
	if err != nil {
		return nil, err
	}
	if out.Host == "" {
		out.Host = host
	}
	return &out, nil
}

func (c *Client) DisconnectHost(ctx context.Context, host, volume string) error {
	return c.Do(ctx, http.MethodDelete,
		fmt.Sprintf("host/%s/volume/%s", url.PathEscape(host), url.PathEscape(volume)), nil, nil, nil)
}

// ListHostConnections lists the volumes connected to a host. private=true
// restricts the listing to connections made directly on the host rather
// than through a host group.
func (c *Client) ListHostConnections(ctx context.Context, host string, private bool) ([]ConnectionRecord, error) {
	var params url.Values
	if private {
		params = url.Values{"private": []string{"true"}}
	}
	var out []ConnectionRecord
	err := c.Do(ctx, http.MethodGet, "host/"+url.PathEscape(host)+"/volume", params, nil, &out)
	return out, err
}

// ListVolumeConnections lists the hosts a volume is connected to.
func (c *Client) ListVolumeConnections(ctx context.Context, volume string) ([]ConnectionRecord, error) {
	var out []ConnectionRecord
	err := c.Do(ctx, http.MethodGet, "volume/"+url.PathEscape(volume)+"/host", nil, nil, &out)
	return out, err
}

func (c *Client) ListPorts(ctx context.Context) ([]types.TargetPort, error) {
	var out []types.TargetPort
	err := c.Do(ctx, http.MethodGet, "port", nil, nil, &out)
	return out, err
}

// GetInfo returns array-level information; space=true includes capacity
// accounting.
func (c *Client) GetInfo(ctx context.Context, space bool) (*Info, error) {
	var params url.Values
	if space {
		params = url.Values{"space": []string{"true"}}
	}
	var out Info
	err := c.Do(ctx, http.MethodGet, "array", params, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProtectionGroup(ctx context.Context, name string) error {
	return c.Do(ctx, http.MethodPost, "pgroup/"+url.PathEscape(name), nil, nil, nil)
}

func (c *Client) DeleteProtectionGroup(ctx context.Context, name string) error {
	return c.Do(ctx, http.MethodDelete, "pgroup/"+url.PathEscape(name), nil, nil, nil)
}

// CreateProtectionGroupSnapshot snapshots every volume in a pgroup
// consistently under the given suffix.
func (c *Client) CreateProtectionGroupSnapshot(ctx context.Context, pgroup, suffix string) error {
	body := map[string]interface{}{"snap": true, "suffix": suffix, "source": []string{pgroup}}
	return c.Do(ctx, http.MethodPost, "pgroup", nil, body, nil)
}

func (c *Client) DeleteProtectionGroupSnapshot(ctx context.Context, name string) error {
	return c.Do(ctx, http.MethodDelete, "pgroup/"+url.PathEscape(name), nil, nil, nil)
}

func (c *Client) AddVolumeToProtectionGroup(ctx context.Context, pgroup, volume string) error {
	return c.Do(ctx, http.MethodPut, "pgroup/"+url.PathEscape(pgroup), nil,
		map[string]interface{}{"addvollist": []string{volume}}, nil)
}
