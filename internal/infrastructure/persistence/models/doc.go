// Package models contains GORM persistence models for the purchasing tables.
// They are kept apart from the domain entities so the domain layer carries
// no ORM tags. Repositories convert between the two with the
// ToDomain / FromDomain helpers defined next to each model.
//
// Tables: suppliers, items, purchase_orders, purchase_order_lines.
package models
