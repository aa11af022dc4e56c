/*
Package domain contains the core domain models of the Turing machine service.

It defines the tape, the transition rules and the persisted machine snapshot.
This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Tape: an unbounded-to-the-right sequence of single-character cells with a movable head.
  - Rule: a (state, read symbol) -> (write symbol, move, next state) instruction.
  - Definition: the immutable program of a machine (rules, initial and final states).
  - Machine: the canonical snapshot exchanged with stores, transports and the engine.
  - StepOutcome / HaltReason: halting is reported as data, never as an error.
*/
package domain
