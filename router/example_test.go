package router_test

import (
	"context"
	"fmt"
	"github.com/saylorsolutions/typebus/router"
)

type Greeter struct {
	name string
}

func (g *Greeter) HandleName(name string) {
	fmt.Println("Hello,", name)
}

type Unheard struct {
	name string
}

func (u *Unheard) HandleDead(evt router.DeadEvent) {
	fmt.Printf("Nobody handled %v\n", evt.Event)
}

type Seed struct {
	name string
}

func (s *Seed) ProduceName() string {
	return "seed"
}

func ExampleRouter_Post() {
	ctx := context.Background()
	r := router.MustNew(router.WithIdentifier("example"))
	if err := r.Register(ctx, new(Greeter)); err != nil {
		panic(err)
	}
	if err := r.Register(ctx, new(Unheard)); err != nil {
		panic(err)
	}
	_ = r.Post(ctx, "world")
	_ = r.Post(ctx, 42)
	// Output:
	// Hello, world
	// Nobody handled 42
}

func ExampleRouter_Register() {
	ctx := context.Background()
	r := router.MustNew()
	if err := r.Register(ctx, new(Seed)); err != nil {
		panic(err)
	}
	// The producer's value is delivered before Register returns.
	if err := r.Register(ctx, new(Greeter)); err != nil {
		panic(err)
	}
	fmt.Println("Registered")
	// Output:
	// Hello, seed
	// Registered
}
