// Package envexec runs a single toolchain process with a wall clock limit
// and a shared output budget.
//
// # Cmd
//
// Cmd defines the program to run together with its working directory,
// environment and limits.
//
// # Single
//
// Single runs one Cmd. The process is started in its own process group so that
// everything it spawns (e.g. the binary built by `go run`) is killed together
// once a limit is hit or the caller's context is done.
package envexec
