// Package app contains the core application logic. It wires the session,
// artifact store and scoring configuration into a runnable App instance,
// decoupled from any specific entrypoint like a CLI.
package app
