// SPDX-License-Identifier: MPL-2.0

// Package subnet copies a reference validator's weights onto the operator's
// own validator across a set of subnets.
//
// Chain access goes through the Querier and Voter interfaces; RPCClient is a
// JSON-RPC implementation of both. Query results live in a Cache owned by the
// Loop, refreshed after every round, so a failed refresh leaves the last good
// snapshot in place.
package subnet
