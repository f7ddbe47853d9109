// Package trace follows an IPv4 endpoint across a chain of managed switches
// to the access port it is attached to.
//
// At each switch the Resolver reads the address-resolution table to learn
// the target's hardware address, finds the port that address was learned on
// in the forwarding table, and asks the neighbor-discovery protocol whether
// another switch sits behind that port. The Tracer repeats this from the
// root switch until the endpoint's access port is found, the address
// disappears, a switch cannot be reached, or a switch is about to be visited
// twice.
//
// A trace owns all of its state. Independent traces may run concurrently on
// one Tracer; see TraceMany.
//
//	tr := trace.New(dialer, trace.Options{Directory: inv})
//	res, err := tr.Trace(ctx, "core1", "10.0.0.5")
//	if err != nil {
//		// invalid target, canceled, or a switch could not be queried
//	}
//	for _, hop := range res.Path {
//		fmt.Println(hop.Device, hop.Port, hop.Outcome)
//	}
package trace
