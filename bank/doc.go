// SPDX-License-Identifier: EPL-2.0

// Package bank is the pad sample cache.
//
// A Bank maps pad ids to immutable Records holding canonical PCM
// (mono, 44.1 kHz, float32) and a waveform envelope. Misses are loaded
// lazily from a Storage through a Codec; stores are write-through, so a
// freshly finalized recording is persisted and cached before its caller
// is told about it.
//
// Reads that hit the cache share a read lock. Inserts, evictions and
// clears take the write lock. A per-pad generation counter keeps a slow
// disk load from reinserting a record that was removed while it ran.
//
//	b := bank.New(bank.NewDirStorage(dir), adpcm.Codec{})
//	rec, err := b.Get(12)
package bank
