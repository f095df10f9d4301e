// Package model holds the pieces shared by every record kind in the
// integrator data layer: the Identifiable contract and the error taxonomy.
//
// Record types live next to the component that owns them (artifact, audit,
// issue, schemaver) so that persistence backends depend on the components,
// never the reverse.
package model
