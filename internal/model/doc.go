// Package model defines the core data structures shared by the
// enumerator, the dispatcher and the post-processing steps of audioconv.
//
// # Task
//
// Task is one conversion job: an input file and the output path computed for
// it by MapOutputPath:
//
//	out := model.MapOutputPath("/in/a/b.flac", "/in", "/out", "mp3")
//	// out = "/out/a/b.mp3"
//
// The root rewrite is a literal substring replacement, so every occurrence of
// the input root text in a path is rewritten, not only the leading one.
//
// # Directory
//
// Directory groups the tasks whose outputs share a parent directory. It is
// used for playlist generation and cover art:
//
//	dirs := model.GroupByDirectory(tasks, pathConfig)
//	for _, dir := range dirs {
//	    fmt.Println(dir.Path, len(dir.Tasks), dir.PlaylistPath)
//	}
//
// # RunSummary
//
// RunSummary holds the counters reported at the end of a run.
package model
