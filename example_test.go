package osgi_test

import (
	"fmt"

	osgi "github.com/csierra/osgi-component-dsl"
	"github.com/csierra/osgi-component-dsl/pkg/adapters/memory"
)

type Greeter interface {
	Greet() string
}

type greeter struct {
	name string
}

func (g greeter) Greet() string { return "hello, " + g.name }

// A program comes up for every Greeter in the registry and tears down when
// its Greeter departs. Events are synchronous, so the output is
// deterministic.
func Example() {
	host := memory.New()

	program := osgi.Foreach(osgi.Services[Greeter](""), func(g Greeter) osgi.Source[struct{}] {
		fmt.Println(g.Greet())
		return osgi.OnClose(func() {
			fmt.Println("goodbye")
		})
	})

	result, err := osgi.Run(host, program)
	if err != nil {
		panic(err)
	}

	reg, _ := host.RegisterService(osgi.ClassName[Greeter](), greeter{name: "world"}, nil)
	_ = reg.Unregister()

	result.Close()

	// Output:
	// hello, world
	// goodbye
}
