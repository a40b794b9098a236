// Package convert runs conversion tasks against a Transcoder.
//
// A Dispatcher turns enumerated input files into model.Task values, runs
// them with the configured scheduling mode and reports progress through a
// ProgressEvent callback:
//
//	d := convert.NewDispatcher(settings, transcode.NewFFmpeg(opts), func(e convert.ProgressEvent) {
//	    fmt.Println(e.Message)
//	})
//	summary := d.Dispatch(ctx, "/in", "/out", files)
//
// Per-file failures never stop a run; they are reported as LevelError
// events and counted in the RunSummary.
package convert
