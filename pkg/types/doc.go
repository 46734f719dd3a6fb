/*
Package types defines the shared data model for flashconn and the interfaces
its external collaborators must satisfy.

The model mirrors the array's view of the world: volumes, initiators, target
ports, and the connection descriptor handed back to a connecting host. The
InitiatorSet type carries the initiators a host presents, ordered and
de-duplicated, so group resolution is deterministic for a fixed input.

Collaborator interfaces:

  - LunStore: local cross-reference resolving a volume reference to
    {path, os type, pool}. Read-only from flashconn's side.
  - FabricLookup: optional Fibre Channel zoning service used to build the
    initiator-target reachability map.
  - PortProber: optional portal reachability check for iSCSI port selection.
*/
package types
