// Package connection implements the websocket push source.
//
// A Source dials the configured relay (for example a bridge that forwards
// exchange announcement channels), optionally sends a subscribe frame, and
// exposes the stream as a Subscription with a blocking Next. Reconnection is
// driven by the caller: each Subscribe dials a fresh connection.
package connection
