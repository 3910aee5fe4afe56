// Package resource maps opaque handle tokens to host-side values.
//
// A Table hands out small integer handles for values that never cross the
// boundary themselves, such as decoded sectors. Guests and JavaScript callers
// hold the token and pass it back on later calls.
//
//	table := resource.NewTable[*sector.Handle]()
//
//	h := table.Insert(root)
//	root, ok := table.Get(h)
//
// # Borrows
//
// A caller that uses a value for the duration of an operation borrows it.
// Remove refuses while a borrow is outstanding:
//
//	if !table.Borrow(h) {
//	    return errInvalid
//	}
//	defer table.ReturnBorrow(h)
//
// # Observers
//
// Observers receive lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s handle %d", e.Type, e.Handle)
//	}))
//
// Handle 0 is never issued. A freed slot is reused under a new generation, so
// a stale handle stops resolving instead of reaching the slot's next value.
// Generations wrap after 256 reuses of one slot. Values are not garbage
// collected: the owner must call Remove or Close.
package resource
