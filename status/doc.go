// Package status exposes a read-only HTTP view of a running experiment:
// the live job registry and the results recorded so far. It is disabled
// unless an address is configured.
package status
