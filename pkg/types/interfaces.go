package types

import "context"

// LunStore is the local cross-reference collaborator. It resolves a volume
// reference to the LUN attributes recorded when the volume was provisioned.
// flashconn only reads this store; it never owns or infers the metadata.
type LunStore interface {
	GetLunAttributes(ctx context.Context, volumeRef string) (*LunAttributes, error)
}

// FabricEntry is the per-initiator result of a fabric zoning lookup.
type FabricEntry struct {
	TargetWWPNs []string `json:"target_port_wwn_list"`
	NumPaths    int      `json:"num_paths"`
}

// FabricLookup is the optional fabric zoning service. Given initiator and
// target WWPNs it reports, per initiator, the subset of targets actually
// reachable through the fabric.
type FabricLookup interface {
	MapDevices(ctx context.Context, initiators, targets []string) (map[string]FabricEntry, error)
}

// PortProber optionally verifies that a target portal is reachable before
// it is handed to a connecting host. The physical probe mechanism (iscsiadm
// discovery or similar) lives with the caller.
type PortProber interface {
	Probe(ctx context.Context, portal string) error
}
