// Package scene implements the per-scene enrichment pipeline.
//
// A scene moves through four steps in order: perceptual hashing, cover
// image replacement, sprite sheet generation, preview video generation.
// Progress is tracked on the library service itself through workflow
// tags: a claim tag marks a scene as in-progress, and two error tags
// mark hashing-class and cover-class failures. A scene that completes
// every step has its claim removed; a scene that fails keeps an error
// tag so the selection filter never picks it up again.
//
// Failure severity is not uniform. A hashing failure aborts the scene
// because every later artifact is named after the hash. A cover failure
// is tagged and logged but the remaining steps still run, since they do
// not depend on the cover. Sprite and preview failures abort the scene.
package scene
