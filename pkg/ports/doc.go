/*
Package ports defines the driven ports (interfaces) of the Turing machine service.

These interfaces decouple the engine and the service facade from storage and
coordination backends.

# Key Interfaces

  - MachineStore: persists and loads machine snapshots (memory, file, SQLite, Redis).
  - TemplateCatalog: serves named machine definitions (builtin or a Loam vault).
  - DistributedLocker: serializes access to a machine across replicas.

RunMachineStoreContract is a reusable test suite every MachineStore adapter runs.
*/
package ports
