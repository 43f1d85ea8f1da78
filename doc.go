// Package spanlink instruments operations with OpenTelemetry spans and
// correlates them across asynchronous message boundaries.
//
// The package does not implement a tracer: spans come from whatever
// TracerProvider is injected (or the otel global). What it adds on top
// of the tracer primitive is the interception, enrichment, and
// cross-boundary linking logic:
//
//   - A Descriptor captures an operation's span name, kind, and static
//     attributes once; Traced and TracedResult wrap the operation body,
//     bind per-call parameters as attributes, classify the outcome, and
//     end the span exactly once.
//   - AddAttributes, AddAttributer, AddEvent, and TraceID enrich
//     whatever span is currently active, best-effort: they can never
//     fail the calling business logic.
//   - The spanctx subpackage serializes a producer span's coordinates
//     into message fields and reconstructs them as a remote context on
//     the consumer side, where the engine attaches them as a span link
//     (not a parent), keeping the two traces independent but navigable.
//
// Usage:
//
//	var descCreate = spanlink.NewDescriptor("OrderService", "Create",
//		spanlink.Name("order.create"),
//		spanlink.StaticPairs("operation:create", "entity:order"),
//	)
//
//	func (s *OrderService) Create(ctx context.Context, customerID string) (Order, error) {
//		return spanlink.TracedResult(ctx, descCreate, func(ctx context.Context) (Order, error) {
//			// span is current here; nested traced calls become children
//			return s.insert(ctx, customerID)
//		}, attr.String("customer.id", customerID))
//	}
package spanlink
