// Package transcode wraps the external transcoder that performs the actual
// media conversion.
//
// The dispatcher only sees the Transcoder interface, so tests can substitute
// a fake. FFmpeg is the production implementation:
//
//	ff := transcode.NewFFmpeg(transcode.Options{Binary: "ffmpeg", NoStdin: true})
//	if err := ff.Convert(ctx, "/in/a.flac", "/out/a.mp3"); err != nil {
//	    var terr *transcode.TranscodeError
//	    if errors.As(err, &terr) {
//	        fmt.Println(terr.ExitCode, terr.Stderr)
//	    }
//	}
//
// Each call runs one blocking process; the calling goroutine is occupied for
// the whole conversion. Cancelling ctx kills the process.
package transcode
