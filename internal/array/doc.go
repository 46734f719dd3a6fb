/*
Package array implements the session-managing client for the storage
array's HTTP/JSON management API and the typed resource operations built
on it.

The client negotiates an API version at construction by intersecting the
array's advertised version list with its own supported set, newest first,
and establishes an authenticated session. From then on every call is one
request plus at most one bounded recovery:

  - an expired session is renewed once and the call retried once; a second
    expiry is fatal
  - a rejected API version triggers one renegotiation; if negotiation
    converges back to the rejected version the call fails with
    INCOMPATIBLE_ARRAY_VERSION rather than looping

Transport-level failures (DNS, refused connections) surface as
ARRAY_UNREACHABLE and are never retried. All other non-success responses
become *errors.ArrayError values whose FaultKind was classified here, at
the transport boundary; nothing above this package inspects message text.

Session token, negotiated version and derived base URL are shared by all
calls through one Client; renewal and renegotiation hold the client mutex
so concurrent callers observing the same failure cannot race the triple
into an inconsistent state. The array itself is the serialization
authority for its object model; this package adds no caching of array
state beyond the session.
*/
package array
