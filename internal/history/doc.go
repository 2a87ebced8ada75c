// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package history provides the bounded buffers fed by the OctoPrint push stream.

# Buffers

  - RingBuffer[T]: fixed-capacity FIFO used for temperature samples (400),
    SoC temperature samples (400) and raw terminal lines (200)
  - CommandHistory: most-recently-used list of sent G-code commands (15)
  - Terminal: unfiltered log buffer plus a filtered view derived from a FilterSet

All types are safe for concurrent use. Writers in OctoSync run on the sync
executor; the local API reads concurrently.
*/
package history
