/*
Package memory implements ports.Context as an in-process service registry.

It carries the three planes a program can depend on: a service registry with
trackers and reference-counted service objects, a bundle plane with state-mask
tracking, and a configuration-admin plane that configuration source adapters
push dictionaries into.

Dispatch is synchronous: the goroutine that registers, modifies, or
unregisters something runs every interested tracker callback on its own stack
before the mutating call returns. Callbacks run outside the registry lock, so
they may re-enter the context freely.
*/
package memory
