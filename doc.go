/*
go-tubestitch links the short per class tubelets output once per detection
window by a tubelet activity detector into activity tracks that span a whole
video.

The Engine takes one Window of tubelets at a time, prunes them with per class
tubelet NMS, stitches the survivors onto the open tracks and emits the tracks
that did not continue.  All open tracks are flushed when the video ends or a
window for a different video arrives.

The stitching algorithm lives in the tube subpackage, finished tracks can be
persisted to SQLite with the store subpackage.  See the replay example for
usage.
*/
package tubestitch
