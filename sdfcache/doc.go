// Package sdfcache memoizes SDF rasterization by content.
//
// The atlas already rasterizes each glyph at most once per atlas. A [Memo]
// extends that across atlases and processes: it wraps an [sdf.Rasterizer]
// and keys results by a hash of everything that determines the output, so
// the same outline at the same glyph size is computed once per [Backend].
//
// Two backends are provided. [Memory] is a sharded LRU held in process;
// [Redis] shares results between processes. Backend failures are logged
// and treated as misses.
package sdfcache
