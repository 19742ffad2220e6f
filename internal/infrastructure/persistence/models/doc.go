// Package models contains GORM-specific persistence models that map to the
// back-office finance tables. Domain types stay free of GORM tags; repositories
// convert between the two.
//
// Columns that older shop databases may lack (device_id, company_id,
// category_name, ...) are pointers so inserts can omit them.
package models
