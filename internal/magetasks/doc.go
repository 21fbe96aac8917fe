// Package magetasks provides organized build tasks for the quarantine project.
//
// Tasks are grouped into namespaces by the Magefile; this package holds
// their implementations so they can be tested without mage.
package magetasks
