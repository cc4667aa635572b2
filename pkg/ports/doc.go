/*
Package ports defines the driven ports (interfaces) between the program
algebra and the host service platform.

The core combinators never talk to a concrete registry; they materialize
against a Context, which any platform can satisfy. The repository ships an
in-process implementation in pkg/adapters/memory that tests and embedders use
as a live host.

# Key Interfaces

  - Context: the host handle a program runs against (service registration,
    trackers, service objects, managed configuration, filters).
  - Tracker: an open/close view over a set of services or bundles.
  - ServiceRegistration: a handle to a registered service, supporting
    property updates and unregistration.
  - ConfigurationSink: the host-side entry point configuration source
    adapters push dictionaries into.
*/
package ports
