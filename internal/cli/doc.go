// Package cli parses the command-line surface into an app.Config.
package cli
