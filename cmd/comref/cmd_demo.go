package main

import (
	"fmt"
	"io"

	"comref/internal/aggregate"
	"comref/internal/logging"
	"comref/internal/unknown"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// demoCmd walks an object through its lifetime
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk a plain and an aggregated object through their lifetimes",
	Args:  cobra.NoArgs,
	RunE:  runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if err := demoPlain(out); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return demoAggregate(out)
}

func demoPlain(out io.Writer) error {
	finalized := 0
	obj := unknown.New(nil,
		unknown.WithLogger(loggers.Get(logging.CategoryRefcount)),
		unknown.WithFinalizer(unknown.FinalizerFn(func() { finalized++ })))

	self, isSelf := obj.Outer().(unknown.Self)
	fmt.Fprintf(out, "plain object: outer is self = %v\n", isSelf && self.NonDelegatingUnknown == obj)

	fmt.Fprintf(out, "AddRef  -> %d\n", obj.NonDelegatingAddRef())
	fmt.Fprintf(out, "AddRef  -> %d\n", obj.NonDelegatingAddRef())
	fmt.Fprintf(out, "Release -> %d (destroyed=%v)\n", obj.NonDelegatingRelease(), obj.Destroyed())
	n := obj.NonDelegatingRelease()
	fmt.Fprintf(out, "Release -> %d (destroyed=%v, finalized=%d)\n", n, obj.Destroyed(), finalized)

	if finalized != 1 {
		return fmt.Errorf("expected one finalization, got %d", finalized)
	}
	return nil
}

func demoAggregate(out io.Writer) error {
	comp := aggregate.New(unknown.WithLogger(loggers.Get(logging.CategoryAggregate)))

	iidVolume, iidClock := uuid.New(), uuid.New()
	vol, err := comp.Aggregate(aggregate.PartFactory("volume", iidVolume))
	if err != nil {
		return err
	}
	clk, err := comp.Aggregate(aggregate.PartFactory("clock", iidClock))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "composite with %d parts\n", len(comp.Inners()))

	var got any
	if err := comp.QueryInterface(iidVolume, &got); err != nil {
		return fmt.Errorf("query volume: %w", err)
	}
	volume := got.(*aggregate.Part)
	fmt.Fprintf(out, "composite -> %s (composite refs=%d)\n", volume.Name(), comp.RefCount())

	if err := volume.QueryInterface(iidClock, &got); err != nil {
		return fmt.Errorf("query clock via volume: %w", err)
	}
	clock := got.(*aggregate.Part)
	fmt.Fprintf(out, "volume -> %s (composite refs=%d)\n", clock.Name(), comp.RefCount())

	err = clock.QueryInterface(uuid.New(), &got)
	fmt.Fprintf(out, "clock -> unknown identity: %s\n", unknown.StatusOf(err))

	clock.Release()
	fmt.Fprintf(out, "Release -> composite destroyed=%v\n", comp.Destroyed())
	volume.Release()
	fmt.Fprintf(out, "Release -> composite destroyed=%v, parts destroyed=%v/%v\n",
		comp.Destroyed(), vol.(*aggregate.Part).Destroyed(), clk.(*aggregate.Part).Destroyed())
	return nil
}
