// Package lfc tracks large and binary files alongside a Git repository
// without committing their bytes. Git tracks a small pointer sidecar
// (<path>.lfc) holding a SHA-256 digest; the bytes live in a local
// content-addressed cache under .lfc/cache and in named remote caches
// reachable over local paths, ssh, or http(s).
//
// Basic usage:
//
//	repo, _ := lfc.Init(".")
//
//	// Track a large file: hash it, cache the blob, write myfile.dat.lfc
//	repo.Add(ctx, "myfile.dat")
//
//	// Inspect tracked files
//	entries, _ := repo.Status(ctx)
//
//	// Rebuild working-tree files from sidecars
//	repo.Checkout(ctx)
//
// With a remote cache:
//
//	repo, _ := lfc.Open(".", lfc.WithRemote("hub"))
//	summary, _ := repo.Push(ctx)
//	summary, _ = repo.Pull(ctx)
//	for _, res := range summary.Results {
//	    fmt.Println(res.Hash, res.Outcome)
//	}
//
// Maintenance:
//
//	removed, _ := repo.GC(ctx, false) // drop unreferenced blobs
package lfc
