// Package storage persists the discovery ledger between runs.
//
// Two backends implement Backend:
//   - JSONBackend writes the state file that earlier versions of the tool
//     produced, replacing it atomically through a temporary file and rename
//   - SQLiteBackend keeps the same accounts in a single-file database and
//     also records one row per polling run
//
// Save always receives the full snapshot; both backends replace their
// contents with it, so a cleared store saves as an empty ledger.
//
// Usage:
//
//	backend, err := storage.Open(cfg.Storage, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	snap, err := backend.Load(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := discovery.NewStore()
//	store.Restore(snap)
package storage
