// Package dispatch implements the Action Dispatcher.
//
// The Action Dispatcher:
//   - Places one quote-denominated buy per symbol through an ExecutionBackend
//   - Records a symbol as done only after the backend reports success
//   - Serializes attempts per symbol with a keyed lock; different symbols
//     never wait on each other
//   - Notifies the operator when an order cannot be placed, leaving the
//     symbol eligible for a later attempt
package dispatch
