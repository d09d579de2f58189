// Package application contains use-case orchestration services.
package application
