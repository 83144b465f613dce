// Package registry provides a generic concurrency-safe map for values
// indexed by comparable keys.
//
// Inside this module it backs the cancel broker's channel table;
// applications use it for the same kind of name-keyed lookup, for
// example a table of node transforms assembled from configuration:
//
//	transforms := registry.New[string, turngraph.NodeFunc]()
//	transforms.Register("classify", classify)
//	transforms.Register("search", search)
//
//	fn, ok := transforms.Get("classify")
//
// # Lazy initialization
//
// GetOrCreate performs atomic lazy initialization: the factory is
// called at most once per key, even when many goroutines race on the
// same key.
//
//	signals := registry.New[string, *cancel.Signal]()
//	sig := signals.GetOrCreate("user-42", cancel.New)
//
// # Thread safety
//
// All methods are safe for concurrent use. Range iterates over a
// snapshot, so entries may be registered or deleted from inside the
// callback without affecting the iteration in progress.
package registry
