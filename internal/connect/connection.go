package connect

import "github.com/flashconn/flashconn/pkg/types"

// FCConnectionInfo assembles the descriptor handed back to an FC host.
func FCConnectionInfo(topo *Topology, lun int) *types.ConnectionInfo {
	return &types.ConnectionInfo{
		Protocol:           types.ProtocolFC,
		LUN:                lun,
		TargetWWNs:         topo.TargetWWNs,
		InitiatorTargetMap: topo.InitiatorTargetMap,
		NumPaths:           topo.NumPaths,
	}
}

// ISCSIConnectionInfo assembles the descriptor handed back to an iSCSI host.
func ISCSIConnectionInfo(port *types.TargetPort, lun int) *types.ConnectionInfo {
	return &types.ConnectionInfo{
		Protocol:     types.ProtocolISCSI,
		LUN:          lun,
		TargetIQN:    port.IQN,
		TargetPortal: port.Portal,
	}
}
