package attr

// Attributer marks domain objects that can project their
// telemetry-relevant fields as span attributes.
//
// Keys should be stable, namespaced, dot-separated identifiers
// (for example "order.id"). Entries that do not apply to an instance
// are simply omitted from the map; consumers filter blank keys and
// values automatically. Implementations must be pure projections of
// the object's current state, with no side effects.
//
// Usage:
//
//	func (o Order) TraceAttributes() map[string]string {
//		attrs := map[string]string{
//			"order.id":     o.ID,
//			"order.status": string(o.Status),
//		}
//		if o.CustomerID != "" {
//			attrs["customer.id"] = o.CustomerID
//		}
//		return attrs
//	}
type Attributer interface {
	TraceAttributes() map[string]string
}
