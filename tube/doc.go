/*
Package tube assembles fixed length per class tubelets, produced once per
detection window, into activity tracks spanning a whole video.

Each window is pruned with per class tubelet NMS and the survivors are stitched
onto the open tracks by the IoU between the last frame of a track and the first
frame of a tubelet.  Matching is greedy, the first tubelet above the continuity
threshold wins, so results depend on the order of the open tracks and the
tubelets.
*/
package tube
