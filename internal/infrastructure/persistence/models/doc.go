// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns: all GORM tags and table mappings live here, and each model carries
// a mapper to and from its domain counterpart.
package models
