package wfconfig

import "errors"

// ErrHookFailed is returned when an init or completion hook fails after
// exhausting its retries. Both are configuration-scoped integrity
// points, unlike a transition hook failure, which only routes one
// entity to the phase's failure bucket and lets the run continue.
var ErrHookFailed = errors.New("hook failed")

// ErrUnknownPhase is returned when a persisted or jump-target phase
// name does not name a phase declared in the workflow.
var ErrUnknownPhase = errors.New("unknown phase")
