package types

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Protocol identifies a storage protocol family.
type Protocol string

const (
	ProtocolFC    Protocol = "fc"
	ProtocolISCSI Protocol = "iscsi"
)

// Volume describes a logical volume as known to the caller. The array is
// authoritative for its state; flashconn never persists it.
type Volume struct {
	Name string `json:"name"`
	Size int64  `json:"size"` // bytes
	// Pool is the placement hint; empty falls back to the configured
	// default pool, or root placement when none is configured.
	Pool string `json:"pool,omitempty"`
}

// Connector describes the host that is initiating a connection.
type Connector struct {
	Host      string   `json:"host"`
	Initiator string   `json:"initiator,omitempty"` // IQN for iSCSI
	WWPNs     []string `json:"wwpns,omitempty"`     // FC initiator ports
}

// TargetPort is an array-side endpoint exposing volumes to initiators.
type TargetPort struct {
	Name   string `json:"name"`
	IQN    string `json:"iqn,omitempty"`
	WWN    string `json:"wwn,omitempty"`
	Portal string `json:"portal,omitempty"`
}

// LunAttributes is the local cross-reference record for a volume: where its
// LUN lives on the array and what OS type it was provisioned for.
type LunAttributes struct {
	Path   string `json:"path"`
	OSType string `json:"os_type"`
	Pool   string `json:"pool,omitempty"`
}

// ConnectionInfo is the descriptor returned to the connecting host.
type ConnectionInfo struct {
	Protocol           Protocol            `json:"protocol"`
	LUN                int                 `json:"lun"`
	TargetIQN          string              `json:"target_iqn,omitempty"`
	TargetPortal       string              `json:"target_portal,omitempty"`
	TargetWWNs         []string            `json:"target_wwns,omitempty"`
	InitiatorTargetMap map[string][]string `json:"initiator_target_map,omitempty"`
	NumPaths           int                 `json:"num_paths"`
}

// NormalizeInitiator canonicalizes an initiator identifier. FC WWPNs are
// compared without separators and case-insensitively. In an IQN the colons
// are structural, so anything that is not a plain hex string passes through
// byte for byte.
func NormalizeInitiator(id string) string {
	stripped := strings.ReplaceAll(id, ":", "")
	if stripped != "" && isHexString(stripped) {
		return strings.ToLower(stripped)
	}
	return id
}

func isHexString(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// InitiatorSet is an ordered, de-duplicated set of initiator identifiers
// presented by a connecting host. Order is first-seen insertion order.
type InitiatorSet struct {
	members []string
	index   mapset.Set[string]
}

// NewInitiatorSet builds a set from raw identifiers, normalizing and
// dropping duplicates while preserving first-seen order.
func NewInitiatorSet(ids ...string) *InitiatorSet {
	s := &InitiatorSet{index: mapset.NewSet[string]()}
	for _, id := range ids {
		norm := NormalizeInitiator(id)
		if norm == "" {
			continue
		}
		if s.index.Add(norm) {
			s.members = append(s.members, norm)
		}
	}
	return s
}

// Members returns the initiators in insertion order. The returned slice is
// shared; callers must not modify it.
func (s *InitiatorSet) Members() []string {
	return s.members
}

// Contains reports membership of the normalized form of id.
func (s *InitiatorSet) Contains(id string) bool {
	return s.index.Contains(NormalizeInitiator(id))
}

// ContainsAny reports whether any of ids is a member.
func (s *InitiatorSet) ContainsAny(ids []string) bool {
	for _, id := range ids {
		if s.Contains(id) {
			return true
		}
	}
	return false
}

// Len returns the member count.
func (s *InitiatorSet) Len() int {
	return len(s.members)
}

// Empty reports whether the set has no members.
func (s *InitiatorSet) Empty() bool {
	return len(s.members) == 0
}
