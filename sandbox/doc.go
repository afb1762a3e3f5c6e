// Package sandbox implements the bounded, traversal-safe file store the agent
// may read and write through directives.
//
// Every operation resolves its filename against a fixed root directory and
// rejects anything that would escape it (parent segments, absolute paths,
// symlinks). Files with the reserved text extension hold ordered numbered
// entries whose ids are stable identifiers, never positions; all other
// extensions are opaque blobs subject only to whole-content operations.
// Writes that would exceed the character ceiling fail without modifying the
// file, and file creation is capped by a sandbox-wide count.
package sandbox
