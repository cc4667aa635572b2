/*
Package osgi is a declarative dependency-tracking combinator library for
dynamic service platforms.

Applications describe a reactive dependency graph as an algebraic expression,
a Program, and then execute that expression against a live host registry.
Derived computations come up when all their dependencies are simultaneously
present and tear down precisely when any dependency departs.

A Program is an inert description. Running it against a ports.Context
materializes a Result: two synchronous event channels (added and removed), a
start action that wires the program to the host, and a close action that
releases everything acquired since start. Tokens flowing through the channels
carry a provenance identity, so a removal is always paired with the addition
it undoes, no matter how many Map or FlatMap stages sit in between.

Example usage:

	program := osgi.FlatMap(osgi.Services[Speaker](""),
		func(s Speaker) osgi.Source[ports.ServiceRegistration] {
			return osgi.Register[Announcer](loudAnnouncer{s}, nil)
		})

	result, err := osgi.Run(host, program)
	if err != nil {
		// ...
	}
	defer result.Close()

Here an Announcer is published for every Speaker present in the registry and
withdrawn the moment its Speaker goes away. The library spawns no goroutines;
every event is delivered on the stack of the party that triggered it.
*/
package osgi
