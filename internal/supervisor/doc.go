// Package supervisor runs the network setup cycle and the periodic loop that
// keeps the station connected.
//
// A setup cycle loads the network document, scans, ranks candidates, tries
// them in order until one connects, applies the access point policy, and
// starts the companion service when something asked for it. Setup cycles
// never overlap: the periodic loop and the config server share one
// Supervisor and its lock.
//
// Every tick of the periodic loop first compares the current link state
// with the last one seen and emits connected or disconnected on a change.
// It then runs a setup cycle unless the station reports an address.
package supervisor
