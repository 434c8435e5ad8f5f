// Package pipeline orchestrates a staged migration pipeline on top of the
// workflow engine.
//
// A Pipeline wires registered PhaseRunner implementations into a StateGraph:
// the happy path runs parse → analyze → build → execute → validate in
// sequence, and a registered diagnose phase is reached through the failure
// edge out of validate as well as through a conditional edge that fires when
// validation reports a failed check. Phase behavior is entirely
// caller-supplied; the package owns only the wiring, per-phase configuration
// and checkpointed resume.
package pipeline
