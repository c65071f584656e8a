// Package pipeline holds the pure transformations behind every dashboard view:
// city vocabulary, filtering, category tallies, height aggregation and column
// projection. Every function here is synchronous, deterministic and leaves its
// inputs untouched; the loaded dataset is passed in explicitly.
package pipeline
