// Package engine replays candidate call sequences against an interface model.
//
// The engine is the lifecycle core of seqscore: a Tracker holds the state of
// every handle instance created during one replay, and Validate drives a
// Tracker through a sequence one call at a time.
//
// ARCHITECTURE:
//
// Per-Sequence Isolation:
// Each Validate call owns a private Tracker and Clock. Nothing is shared
// between sequences except the InterfaceModel, which is never mutated after
// load. This makes replay safe to fan out across workers.
//
// Lifecycle FSM (generic across handle types):
//
//	Unborn -> Live -> (Borrowed -> Live)* -> Released
//	Unborn -> LiveAlias -> Revoked          owner released
//	Live   -> LiveAlias                     ownership handed to a container
//
// Replay Flow:
//  1. Resolve the call's FunctionSpec by name (UnknownSymbolError if absent)
//  2. Resolve each argument: literal, or the instance a variable names
//  3. Tracker.Apply checks handle arguments, then applies effects, then
//     creates the returned instance and binds the destination variable
//  4. After the last call, Live instances of release-requiring types are
//     reported as UnreleasedResource
//
// Strict mode halts at the first violation. Permissive mode poisons the
// offending instance and keeps going; every later reference to a poisoned
// instance reports PoisonedUse, naming the kind that poisoned it, so each
// misuse is counted under its own kind exactly once.
package engine
