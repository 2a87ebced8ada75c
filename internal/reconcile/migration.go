// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package reconcile

// Migration forces Domain through the write path once per printer. The ID is
// recorded on the printer record after it has run.
type Migration struct {
	ID     string
	Domain string
}

// OrientationMigration rewrites the orientation of printers whose camera
// flips were stored before axis inversion was tracked.
var OrientationMigration = Migration{ID: "orientation-axes-v1", Domain: DomainOrientation}

// DefaultMigrations are applied by NewDefault.
var DefaultMigrations = []Migration{OrientationMigration}
