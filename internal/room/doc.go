// Package room holds the in-memory connection registry and room directory
// that back signaling message routing.
//
// Neither type locks internally. All mutation and reads must be serialized
// by the caller; in this service the signaling hub wraps every access in a
// single exclusive section, so partial state is never observable.
package room
