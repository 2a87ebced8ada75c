// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package models defines the data structures shared across OctoSync.

Model Categories:

 1. Live state:
    - StateSnapshot: canonical printer/job state merged from the REST baseline and push frames
    - TemperatureSample: one reading of bed, tools and chamber
    - SoCTemperature: host board temperature sample

 2. OctoPrint payloads:
    - Settings: /api/settings (features, webcam, temperature presets, plugin sections)
    - PrinterProfiles: /api/printerprofiles and the active profile
    - VersionInfo, Session, Event, PluginMessage, ConnectedInfo

 3. Plugin data:
    - CancelObject, Relay, IPPlugState, PrintFile

 4. Persisted configuration:
    - Printer: the printer record
    - Camera, EnclosureInput, EnclosureOutput, SmartPlug, TerminalFilter: capability records

 5. Errors:
    - Error with ErrorKind (transport, authentication, protocol, not operational, tunnel)

Optional numeric fields are pointers: nil means the server did not send the field.
*/
package models
