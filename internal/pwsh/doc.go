// Package pwsh locates the PowerShell binary for spawned-process
// connections and builds its server-mode command line.
package pwsh
