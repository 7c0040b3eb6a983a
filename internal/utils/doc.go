// Package utils provides small helpers shared across the application:
// filename sanitizing, regex group extraction, file checks and User-Agent providers.
package utils
