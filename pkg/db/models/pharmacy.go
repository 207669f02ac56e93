package models

import "time"

// Pharmacy is a customer identified by its tax registration number.
type Pharmacy struct {
	TaxID      string     `gorm:"column:tax_id;primaryKey"`
	Name       string     `gorm:"column:name;not null"`
	Address    string     `gorm:"column:address;not null"`
	City       string     `gorm:"column:city;not null"`
	PostalCode string     `gorm:"column:postal_code;not null"`
	Phone      *string    `gorm:"column:phone"`
	Email      *string    `gorm:"column:email"`
	Contracts  []Contract `gorm:"foreignKey:PharmacyTaxID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
