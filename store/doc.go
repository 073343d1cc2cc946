// Package store holds users, events, locations and participants in process memory.
//
// A Store owns four insertion-ordered collections, each guarded by its own
// read/write lock. Resolvers read copies and write through the Store's methods;
// nothing else mutates a record. Lookups by id are linear scans and return an
// errors.NotFoundError ("User not found", ...) when the id is absent.
//
// Partial updates take a per-kind patch whose fields are pointers: a nil field
// keeps the stored value.
//
//	st, err := store.Open(store.Config{})
//	u := st.AddUser(store.NewUser{Username: "a", Email: "a@x.com"})
//	name := "b"
//	u, err = st.UpdateUser(u.ID, store.UserPatch{Username: &name})
//
// Foreign keys are not checked unless WithStrictReferences is set: deleting a user
// leaves its events' user_id dangling, and the dangling key surfaces as NotFound
// when the relationship is resolved.
package store
