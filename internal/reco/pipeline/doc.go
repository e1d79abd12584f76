// Package pipeline composes the refinement layers into the per-event
// sequence vertexCleaning -> fsrPhotons -> dretPhotonSelection ->
// electronIDEmbedding -> muonIDEmbedding -> leptonDRETFSREmbedding ->
// leptonIsoEmbedding -> jetFSRCleaning.
//
// This package is the composition root: it imports the layer packages
// (l1vertices .. l6cleaning) and the registry, but none of those import
// pipeline/. It performs no I/O; the replay driver feeds it events.
package pipeline
