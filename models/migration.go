package models

import (
	"log"

	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) {
	err := db.AutoMigrate(
		&SiteConnection{},
		&StockSyncRun{},
		&ExternalStockEntry{},
		&Item{}, &Bin{},
		&ApiCredential{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
