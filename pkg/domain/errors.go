package domain

import "errors"

// ErrInvalidHeadPosition is returned when a write is attempted with a negative head.
// The tape clamps its head on every move and reset, so a correct caller never sees it.
var ErrInvalidHeadPosition = errors.New("invalid head position")

// ErrMachineNotFound is returned when a machine ID cannot be found in the store.
var ErrMachineNotFound = errors.New("machine not found")

// ErrInvalidDefinition is returned when a machine definition fails validation.
var ErrInvalidDefinition = errors.New("invalid machine definition")

// ErrInvalidID is returned when a machine ID cannot be stored safely by every backend.
var ErrInvalidID = errors.New("invalid machine id")

// ErrTemplateNotFound is returned when a named template is not in the catalog.
var ErrTemplateNotFound = errors.New("template not found")

// ErrAlreadyExists is returned when a store refuses to overwrite an existing machine on create.
var ErrAlreadyExists = errors.New("machine already exists")

// ErrInvalidSymbol is returned when a symbol is not exactly one character.
var ErrInvalidSymbol = errors.New("symbol must be a single character")

// ErrInvalidDirection is returned when a move direction cannot be parsed.
var ErrInvalidDirection = errors.New("invalid move direction")
