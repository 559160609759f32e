// Package preflight provides readiness checks for the directories and host
// programs framebridge depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs failures without refusing
//     to start; a missing scripts directory only matters once a script runs.
//   - The bridge Status operation and the CLI "framebridge status" command
//     report each result so users can see what is misconfigured.
package preflight
