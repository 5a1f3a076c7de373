// Package resolver decides which of the vehicles sharing the charger is the
// one physically drawing power.
//
// Vehicle cloud APIs are unreliable on their own: plugged-in flags go stale
// and a car can report charging minutes after it stopped. The charger is
// treated as ground truth for the physical connection, and phase activity
// is used as an electrical fingerprint. A three-phase vehicle energizes two
// or more lines while a single-phase vehicle only energizes L2, so the
// phase map usually names the car before any cloud API does. When the
// fingerprint and the self-reports disagree the resolver falls back to the
// "guest" identity rather than guessing.
package resolver
