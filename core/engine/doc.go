// Package engine runs the charging control loop. One poll fetches price,
// weather, vehicle and charger snapshots, synthesizes the hourly price
// forecast, resolves which vehicle is on the charger, evaluates every
// vehicle against its target band, gates the decisions to the resolved
// identity, drives the charger toward the wanted state and feeds the
// session accountant.
//
// Collaborator reads are graded Ok, Degraded or Failed; a failed read
// within the cache TTL degrades to the last good value instead of
// dropping to zero. A failure while evaluating one vehicle never prevents
// evaluation of the other or the final charger-control step.
package engine
