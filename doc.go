/*
Package turing runs single-tape deterministic Turing machines as a service.

A Service owns the use cases of the system (create, inspect, step, run, reset
and delete a machine). Each operation loads the machine snapshot from a
ports.MachineStore, rebuilds the engine from it, applies the operation and
persists the result, all while holding the machine's lock. Halting is data:
a machine that stops on a final state, on a missing rule, or on its step
budget returns normally and reports why.

# Usage

	svc := turing.New(memory.NewStore())

	m, err := svc.Create(ctx, turing.CreateRequest{Template: domain.TemplateUnarySuccessor})
	if err != nil {
		log.Fatal(err)
	}

	res, err := svc.Run(ctx, m.ID, 100)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Machine.Tape, res.HaltReason) // 1111111 reached_final_state

# Adapters

The same Service backs the HTTP API (pkg/adapters/http), the MCP server
(pkg/adapters/mcp) and the CLI (cmd/turing). Stores live under pkg/adapters:
memory, file, sqlite and redis. Templates come from a ports.TemplateCatalog,
either the builtin one or a Loam directory of YAML, JSON or Markdown files.

Changes to a machine are published as domain.MachineDiff values; subscribe
with Service.Subscribe to follow a machine live.
*/
package turing
