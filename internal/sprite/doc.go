/*
Package sprite builds scrubber-thumbnail mosaics.

One generation samples evenly-spaced frames across a video's duration,
scales each to tile size, and pastes them into a single grid image. A
companion WEBVTT cue sheet maps each tile's time range to its pixel
rectangle via #xywh fragments, so a player can look thumbnails up by
position.

Frame extraction runs on a small bounded pool nested inside the scene
worker that requested the sprite. Cue entries must appear in raster
order, so out-of-order completions are buffered and flushed once every
earlier tile has finished. The scratch directory is namespaced by the
artifact naming key and always removed, whether generation succeeds or
fails.
*/
package sprite
