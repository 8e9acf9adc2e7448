// Package follow streams the logs of a remote job to completion.
//
// The jobs log stream is unreliable: it may stay silent, time
// out, carry only a start marker, or break off in the middle. A
// Follower reconnects until either a real log line has been
// delivered or a status poll reports the job finished. Stream
// timeouts double on each timeout up to a cap; there is a fixed
// pause between attempts.
//
// Example:
//
//	f, err := follow.New(follow.Config{
//	    API: client,
//	    Out: printer,
//	})
//	if err != nil {
//	    return err
//	}
//
//	state, err := f.Follow(ctx, jobs.Ref{Owner: "alice", ID: id})
package follow
