/*
Package connect reconciles logical storage intent with the array's object
model: initiator-group lifecycle, LUN mapping, Fibre Channel topology
construction, host lifecycle, and volume provisioning.

Every operation here is written against a remote authoritative store that
other actors mutate concurrently: a group or mapping may already exist
before we act, or be gone before we tear it down. The reconciliation rules
are idempotent throughout: existing objects are discovered and reused,
"already gone" is success, and only objects this library itself created
(recognized by their generated-name pattern) are ever garbage-collected.

Protocol-specific capabilities (finding a pre-existing mapping, listing
target ports) are supplied by the FibreChannel and ISCSI families; the
UnimplementedProtocol base turns a missing override into a wiring error
rather than silent misbehavior.
*/
package connect
