// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the domain stays free of ORM
// tags; each model converts to and from its domain counterpart.
//
// Structure:
//   - base.go: BaseModel with id and timestamps
//   - pricing.go: pricing_settings and shop_sessions
package models
